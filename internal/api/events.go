package api

import (
	"time"

	"jogosescolares/internal/event"
	"jogosescolares/internal/team"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type scheduleRequest struct {
	Name                        string     `json:"name"`
	Location                    string     `json:"location"`
	StartDate                   time.Time  `json:"start_date"`
	EndDate                     time.Time  `json:"end_date"`
	RegistrationIndividualStart *time.Time `json:"registration_individual_start"`
	RegistrationIndividualEnd   *time.Time `json:"registration_individual_end"`
	RegistrationCollectiveStart *time.Time `json:"registration_collective_start"`
	RegistrationCollectiveEnd   *time.Time `json:"registration_collective_end"`
}

func (r scheduleRequest) schedule() event.Schedule {
	return event.Schedule{
		Name:                        r.Name,
		Location:                    r.Location,
		StartDate:                   r.StartDate,
		EndDate:                     r.EndDate,
		RegistrationIndividualStart: util.FromPtr(r.RegistrationIndividualStart),
		RegistrationIndividualEnd:   util.FromPtr(r.RegistrationIndividualEnd),
		RegistrationCollectiveStart: util.FromPtr(r.RegistrationCollectiveStart),
		RegistrationCollectiveEnd:   util.FromPtr(r.RegistrationCollectiveEnd),
	}
}

// ListEvents shows producers the events they belong to. Everyone else sees
// the full list.
func (h *Handler) ListEvents(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	var params event.ListEventsParams
	if u.Role == user.RoleProducer {
		params.MemberUserID = util.Some(u.ID)
	}

	events, err := h.events.ListEvents(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(events)
}

func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	var req scheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	created, err := h.events.CreateEvent(ctx, event.CreateEventParams{
		ActorID:  u.ID,
		Schedule: req.schedule(),
	})
	if err != nil {
		return err
	}

	if err := h.teams.SyncOwner(ctx, created.ID); err != nil {
		h.logger.ErrorContext(ctx, "Failed to sync event owner", "event_id", created.ID, "error", err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) GetEvent(c *fiber.Ctx) error {
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	e, err := h.events.GetEvent(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(e)
}

func (h *Handler) UpdateEvent(c *fiber.Ctx) error {
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

	var req scheduleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	updated, err := h.events.UpdateEvent(c.UserContext(), event.UpdateEventParams{
		ActorID:  u.ID,
		ID:       eventID,
		Schedule: req.schedule(),
	})
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

type changeStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ChangeEventStatus(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	if err := h.requireEvent(c, u, eventID, team.ActionManageTeam); err != nil {
		return err
	}

	var req changeStatusRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	to, err := event.ParseAdminStatus(req.Status)
	if err != nil {
		return err
	}

	updated, err := h.events.ChangeStatus(c.UserContext(), event.ChangeStatusParams{
		ActorID: u.ID,
		ID:      eventID,
		To:      to,
	})
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *Handler) ListEventModalities(c *fiber.Ctx) error {
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ids, err := h.events.ListEventModalityIDs(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"modality_ids": ids})
}

type setModalitiesRequest struct {
	ModalityIDs []uuid.UUID `json:"modality_ids"`
}

func (h *Handler) SetEventModalities(c *fiber.Ctx) error {
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

	var req setModalitiesRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	err = h.events.SetEventModalities(c.UserContext(), event.SetEventModalitiesParams{
		ActorID:     u.ID,
		EventID:     eventID,
		ModalityIDs: req.ModalityIDs,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
