package api

import (
	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/user"
	"jogosescolares/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	key := c.IP() + ":" + user.NormalizeEmail(req.Email)
	if err := h.limiter.Check(ctx, ratelimit.ActionLogin, key); err != nil {
		return err
	}

	u, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	if err := h.sessions.Login(c, u.ID); err != nil {
		return err
	}
	if err := h.limiter.ResetAttempts(ctx, ratelimit.ActionLogin, key); err != nil {
		h.logger.WarnContext(ctx, "Failed to reset login attempts", "error", err)
	}

	return c.JSON(u)
}

func (h *Handler) Logout(c *fiber.Ctx) error {
	if err := h.sessions.Logout(c); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Me(c *fiber.Ctx) error {
	u, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(u)
}

type createUserRequest struct {
	Role     user.Role  `json:"role"`
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Phone    string     `json:"phone"`
	CPF      string     `json:"cpf"`
	Password string     `json:"password"`
	SchoolID *uuid.UUID `json:"school_id"`
}

// CreateUser lets admins provision accounts, typically producers.
func (h *Handler) CreateUser(c *fiber.Ctx) error {
	actor, err := currentUser(c)
	if err != nil {
		return err
	}
	if actor.Role != user.RoleAdmin {
		return apperrors.Forbidden("only admins can create users")
	}

	var req createUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	created, err := h.users.CreateUser(c.UserContext(), user.CreateUserParams{
		Role:     req.Role,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		CPF:      req.CPF,
		Password: req.Password,
		SchoolID: util.FromPtr(req.SchoolID),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}
