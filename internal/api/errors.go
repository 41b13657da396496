package api

import (
	"errors"
	"log/slog"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/session"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type errorResponse struct {
	Error    string            `json:"error"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ErrorHandler maps domain errors onto status codes. Anything unexpected is
// logged and reported as a bare 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			status := fiber.StatusInternalServerError
			switch appErr.Kind {
			case apperrors.KindValidation:
				status = fiber.StatusUnprocessableEntity
			case apperrors.KindNotFound:
				status = fiber.StatusNotFound
			case apperrors.KindForbidden:
				status = fiber.StatusForbidden
			}
			return c.Status(status).JSON(errorResponse{Error: appErr.Message, Metadata: appErr.Metadata})
		}

		var fiberErr *fiber.Error
		switch {
		case errors.Is(err, ratelimit.ErrTooManyAttempts):
			return c.Status(fiber.StatusTooManyRequests).JSON(errorResponse{Error: "too many attempts, try again later"})
		case errors.Is(err, user.ErrInvalidCredentials):
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: err.Error()})
		case errors.Is(err, session.ErrUnauthenticated):
			return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "authentication required"})
		case errors.As(err, &fiberErr):
			return c.Status(fiberErr.Code).JSON(errorResponse{Error: fiberErr.Message})
		}

		logger.ErrorContext(c.UserContext(), "Request failed",
			"method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal server error"})
	}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid %s", name).WithMetadata(name, c.Params(name))
	}
	return id, nil
}

func queryUUID(c *fiber.Ctx, name string) (uuid.UUID, bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, apperrors.Validation("invalid %s", name).WithMetadata(name, raw)
	}
	return id, true, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Wrap(apperrors.KindValidation, "invalid request body", err)
	}
	return nil
}
