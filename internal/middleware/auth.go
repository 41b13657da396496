package middleware

import (
	"errors"
	"log/slog"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/session"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
)

const userLocalsKey = "user"

// Authenticated rejects requests without a logged-in session and exposes
// the session user through CurrentUser.
func Authenticated(sessions *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u, err := sessions.CurrentUser(c)
		if err != nil {
			if errors.Is(err, session.ErrUnauthenticated) || apperrors.IsNotFound(err) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "authentication required",
				})
			}
			slog.ErrorContext(c.UserContext(), "Failed to resolve session user", "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "session error",
			})
		}

		c.Locals(userLocalsKey, u)
		return c.Next()
	}
}

// CurrentUser returns the user set by Authenticated.
func CurrentUser(c *fiber.Ctx) (user.User, bool) {
	u, ok := c.Locals(userLocalsKey).(user.User)
	return u, ok
}
