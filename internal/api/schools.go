package api

import (
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/school"
	"jogosescolares/internal/team"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type checkSchoolRequest struct {
	INEP    string    `json:"inep"`
	EventID uuid.UUID `json:"event_id"`
}

// CheckSchool is the registration form's pre-check. It answers before the
// responsible fills in the rest of the form.
func (h *Handler) CheckSchool(c *fiber.Ctx) error {
	var req checkSchoolRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.limiter.Check(ctx, ratelimit.ActionRegister, c.IP()); err != nil {
		return err
	}
	if err := h.schools.CheckEventAvailability(ctx, req.INEP, req.EventID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"available": true})
}

type responsibleRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	CPF      string `json:"cpf"`
	Password string `json:"password"`
}

type registerSchoolRequest struct {
	EventID      uuid.UUID          `json:"event_id"`
	INEP         string             `json:"inep"`
	Name         string             `json:"name"`
	DirectorName string             `json:"director_name"`
	Address      string             `json:"address"`
	City         string             `json:"city"`
	State        string             `json:"state"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email"`
	Responsible  responsibleRequest `json:"responsible"`
}

// RegisterSchool signs a school up and logs its responsible in.
func (h *Handler) RegisterSchool(c *fiber.Ctx) error {
	var req registerSchoolRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	if err := h.limiter.Check(ctx, ratelimit.ActionRegister, c.IP()); err != nil {
		return err
	}

	result, err := h.schools.Register(ctx, school.RegisterParams{
		EventID:      req.EventID,
		INEP:         req.INEP,
		Name:         req.Name,
		DirectorName: req.DirectorName,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Phone:        req.Phone,
		Email:        req.Email,
		Responsible: school.ResponsibleParams{
			Name:     req.Responsible.Name,
			Email:    req.Responsible.Email,
			Phone:    req.Responsible.Phone,
			CPF:      req.Responsible.CPF,
			Password: req.Responsible.Password,
		},
	})
	if err != nil {
		return err
	}

	if err := h.sessions.Login(c, result.Responsible.ID); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *Handler) GetSchool(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	schoolID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := requireSchool(u, schoolID); err != nil {
		return err
	}

	s, err := h.schools.GetSchool(c.UserContext(), schoolID)
	if err != nil {
		return err
	}
	return c.JSON(s)
}

func (h *Handler) ListEventSchools(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.requireEvent(c, u, eventID, team.ActionView); err != nil {
		return err
	}

	schools, err := h.schools.ListSchools(c.UserContext(), school.ListSchoolsParams{EventID: util.Some(eventID)})
	if err != nil {
		return err
	}
	return c.JSON(schools)
}

type linkSchoolRequest struct {
	SchoolID uuid.UUID `json:"school_id"`
}

func (h *Handler) LinkSchool(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.requireEvent(c, u, eventID, team.ActionEdit); err != nil {
		return err
	}

	var req linkSchoolRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	s, err := h.schools.LinkEvent(c.UserContext(), school.LinkEventParams{
		ActorID:  u.ID,
		SchoolID: req.SchoolID,
		EventID:  eventID,
	})
	if err != nil {
		return err
	}
	return c.JSON(s)
}
