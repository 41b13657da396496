package api

import (
	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/inscription"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type createInscriptionRequest struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	EventID       uuid.UUID `json:"event_id"`
	ModalityID    uuid.UUID `json:"modality_id"`
}

func (h *Handler) CreateInscription(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createInscriptionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	p, err := h.participants.GetParticipant(ctx, req.ParticipantID)
	if err != nil {
		return err
	}
	if err := requireSchool(u, p.SchoolID); err != nil {
		return err
	}

	created, err := h.inscriptions.Enroll(ctx, inscription.EnrollParams{
		ActorID:       u.ID,
		ParticipantID: req.ParticipantID,
		EventID:       req.EventID,
		ModalityID:    req.ModalityID,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *Handler) DeleteInscription(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	existing, err := h.inscriptions.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := requireSchool(u, existing.SchoolID); err != nil {
		return err
	}

	if err := h.inscriptions.Delete(ctx, inscription.DeleteParams{ActorID: u.ID, ID: id}); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListInscriptions filters by ?athlete= and ?event=. School admins only see
// their own school's rows.
func (h *Handler) ListInscriptions(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	if !u.Role.IsStaff() && u.Role != user.RoleSchoolAdmin {
		return apperrors.Forbidden("not allowed to list inscriptions")
	}

	var params inscription.ListParams
	athleteID, ok, err := queryUUID(c, "athlete")
	if err != nil {
		return err
	}
	if ok {
		params.AthleteID = util.Some(athleteID)
	}
	eventID, ok, err := queryUUID(c, "event")
	if err != nil {
		return err
	}
	if ok {
		params.EventID = util.Some(eventID)
	}

	inscriptions, err := h.inscriptions.List(c.UserContext(), params)
	if err != nil {
		return err
	}

	if !u.Role.IsStaff() {
		visible := inscriptions[:0]
		for _, i := range inscriptions {
			if u.SchoolID.IsSet && i.SchoolID == u.SchoolID.Val {
				visible = append(visible, i)
			}
		}
		inscriptions = visible
	}
	return c.JSON(inscriptions)
}
