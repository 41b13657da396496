package api

import (
	"jogosescolares/internal/event"
	"jogosescolares/internal/team"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func (h *Handler) ListTeam(c *fiber.Ctx) error {
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

	members, err := h.teams.Members(c.UserContext(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(members)
}

type memberRequest struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   event.Role `json:"role"`
}

func (h *Handler) AddTeamMember(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req memberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	member, err := h.teams.AddMember(c.UserContext(), team.MemberParams{
		ActorID: u.ID,
		UserID:  req.UserID,
		EventID: eventID,
		Role:    req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(member)
}

func (h *Handler) UpdateTeamMember(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramUUID(c, "userID")
	if err != nil {
		return err
	}

	var req memberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	member, err := h.teams.UpdateRole(c.UserContext(), team.MemberParams{
		ActorID: u.ID,
		UserID:  userID,
		EventID: eventID,
		Role:    req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(member)
}

func (h *Handler) RemoveTeamMember(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	eventID, err := paramUUID(c, "id")
	if err != nil {
		return err
	}
	userID, err := paramUUID(c, "userID")
	if err != nil {
		return err
	}

	err = h.teams.RemoveMember(c.UserContext(), team.RemoveMemberParams{
		ActorID: u.ID,
		UserID:  userID,
		EventID: eventID,
	})
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) TeamCandidates(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := requireStaff(u); err != nil {
		return err
	}

	params := team.CandidatesParams{Limit: c.QueryInt("limit", 20)}
	if search := c.Query("search"); search != "" {
		params.Search = util.Some(search)
	}

	candidates, err := h.teams.Candidates(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(candidates)
}
