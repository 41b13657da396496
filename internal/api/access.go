package api

import (
	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/middleware"
	"jogosescolares/internal/session"
	"jogosescolares/internal/team"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func currentUser(c *fiber.Ctx) (user.User, error) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return user.User{}, session.ErrUnauthenticated
	}
	return u, nil
}

// requireEvent checks the team role of u on the event.
func (h *Handler) requireEvent(c *fiber.Ctx, u user.User, eventID uuid.UUID, action team.Action) error {
	allowed, err := h.teams.Can(c.UserContext(), u.ID, eventID, action)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.Forbidden("not allowed to %s event %s", action, eventID)
	}
	return nil
}

func requireStaff(u user.User) error {
	if !u.Role.IsStaff() {
		return apperrors.Forbidden("staff role required")
	}
	return nil
}

// requireSchool lets staff through and holds school admins to their own school.
func requireSchool(u user.User, schoolID uuid.UUID) error {
	if u.Role.IsStaff() {
		return nil
	}
	if u.Role == user.RoleSchoolAdmin && u.SchoolID.IsSet && u.SchoolID.Val == schoolID {
		return nil
	}
	return apperrors.Forbidden("not allowed to access school %s", schoolID)
}
