package api

import (
	"jogosescolares/internal/modality"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) ListModalities(c *fiber.Ctx) error {
	modalities, err := h.modalities.ListModalities(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(modalities)
}

type createModalityRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Gender        string `json:"gender"`
	MinAge        int    `json:"min_age"`
	MaxAge        int    `json:"max_age"`
	EventCategory string `json:"event_category"`
}

func (h *Handler) CreateModality(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := requireStaff(u); err != nil {
		return err
	}

	var req createModalityRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	created, err := h.modalities.CreateModality(c.UserContext(), modality.CreateModalityParams{
		ActorID:       u.ID,
		Name:          req.Name,
		Type:          req.Type,
		Gender:        req.Gender,
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
		EventCategory: req.EventCategory,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
