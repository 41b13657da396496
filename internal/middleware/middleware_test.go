package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/config"
	"jogosescolares/internal/session"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noUsers struct{}

func (noUsers) GetUser(_ context.Context, id uuid.UUID) (user.User, error) {
	return user.User{}, apperrors.NotFound("user %s not found", id)
}

func TestAuthenticated_RejectsAnonymous(t *testing.T) {
	sessions := session.New(nil, config.ServerConfig{}, noUsers{})

	app := fiber.New()
	app.Get("/private", Authenticated(sessions), func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/private", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestSecurityHeaders(t *testing.T) {
	app := fiber.New()
	app.Use(SecurityHeaders())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}

func TestRequestTimeout_SetsDeadline(t *testing.T) {
	app := fiber.New()
	app.Use(Logger(slog.New(slog.DiscardHandler)), RequestTimeout(time.Second))
	app.Get("/", func(c *fiber.Ctx) error {
		_, ok := c.UserContext().Deadline()
		if !ok {
			return c.SendString("none")
		}
		return c.SendString("deadline")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "deadline", string(body))
}
