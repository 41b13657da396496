package session

import (
	"context"
	"net/http/httptest"
	"testing"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/config"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticUsers map[uuid.UUID]user.User

func (s staticUsers) GetUser(_ context.Context, userID uuid.UUID) (user.User, error) {
	u, ok := s[userID]
	if !ok {
		return user.User{}, apperrors.NotFound("user %s not found", userID)
	}
	return u, nil
}

func TestStore_LoginAndCurrentUser(t *testing.T) {
	id := uuid.New()
	store := New(nil, config.ServerConfig{}, staticUsers{id: {ID: id, Name: "Ana", Role: user.RoleProducer}})

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		return store.Login(c, id)
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		u, err := store.CurrentUser(c)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(u.Name)
	})
	app.Post("/logout", func(c *fiber.Ctx) error {
		return store.Logout(c)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodPost, "/login", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodPost, "/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	_, err = app.Test(req)
	require.NoError(t, err)

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
