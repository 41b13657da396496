// Package api exposes the managers over a JSON HTTP surface.
package api

import (
	"context"
	"log/slog"
	"time"

	"jogosescolares/internal/config"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/event"
	"jogosescolares/internal/inscription"
	"jogosescolares/internal/middleware"
	"jogosescolares/internal/modality"
	"jogosescolares/internal/participant"
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/school"
	"jogosescolares/internal/session"
	"jogosescolares/internal/team"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/user"

	"github.com/gofiber/fiber/v2"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	logger       *slog.Logger
	db           Pinger
	sessions     *session.Store
	limiter      *ratelimit.RateLimiter
	users        *user.Manager
	events       *event.Manager
	schools      *school.Manager
	inscriptions *inscription.Manager
	teams        *team.Manager
	participants *participant.Manager
	modalities   *modality.Manager
	resolver     *eligibility.Resolver
}

type HandlerParams struct {
	Logger       *slog.Logger
	DB           Pinger
	Sessions     *session.Store
	Limiter      *ratelimit.RateLimiter
	Users        *user.Manager
	Events       *event.Manager
	Schools      *school.Manager
	Inscriptions *inscription.Manager
	Teams        *team.Manager
	Participants *participant.Manager
	Modalities   *modality.Manager
	Resolver     *eligibility.Resolver
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		logger:       params.Logger,
		db:           params.DB,
		sessions:     params.Sessions,
		limiter:      params.Limiter,
		users:        params.Users,
		events:       params.Events,
		schools:      params.Schools,
		inscriptions: params.Inscriptions,
		teams:        params.Teams,
		participants: params.Participants,
		modalities:   params.Modalities,
		resolver:     params.Resolver,
	}
}

// NewApp builds the fiber application with the shared middleware chain.
func NewApp(cfg config.Config, h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.Telemetry.ServiceName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: ErrorHandler(h.logger),
	})

	app.Use(telemetry.FiberMiddleware(cfg.Telemetry.ServiceName))
	app.Use(middleware.Logger(h.logger))
	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	h.Register(app)
	return app
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", h.Health)

	api.Post("/login", h.Login)
	api.Post("/logout", h.Logout)
	api.Post("/schools/check", h.CheckSchool)
	api.Post("/schools/register", h.RegisterSchool)

	auth := api.Group("", middleware.Authenticated(h.sessions))

	auth.Get("/me", h.Me)
	auth.Post("/users", h.CreateUser)

	auth.Get("/events", h.ListEvents)
	auth.Post("/events", h.CreateEvent)
	auth.Get("/events/:id", h.GetEvent)
	auth.Put("/events/:id", h.UpdateEvent)
	auth.Post("/events/:id/status", h.ChangeEventStatus)
	auth.Get("/events/:id/modalities", h.ListEventModalities)
	auth.Put("/events/:id/modalities", h.SetEventModalities)
	auth.Get("/events/:id/schools", h.ListEventSchools)
	auth.Post("/events/:id/schools", h.LinkSchool)

	auth.Get("/events/:id/team", h.ListTeam)
	auth.Post("/events/:id/team", h.AddTeamMember)
	auth.Patch("/events/:id/team/:userID", h.UpdateTeamMember)
	auth.Delete("/events/:id/team/:userID", h.RemoveTeamMember)
	auth.Get("/team/candidates", h.TeamCandidates)

	auth.Get("/schools/:id", h.GetSchool)

	auth.Get("/modalities", h.ListModalities)
	auth.Post("/modalities", h.CreateModality)

	auth.Get("/participants", h.ListParticipants)
	auth.Post("/participants", h.CreateParticipant)
	auth.Get("/participants/:id", h.GetParticipant)
	auth.Get("/participants/:id/eligibility", h.Eligibility)
	auth.Post("/participants/:id/documents", h.UploadDocument)
	auth.Get("/participants/:id/documents/:documentID", h.DownloadDocument)

	auth.Get("/inscriptions", h.ListInscriptions)
	auth.Post("/inscriptions", h.CreateInscription)
	auth.Delete("/inscriptions/:id", h.DeleteInscription)
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.db.Ping(c.UserContext()); err != nil {
		h.logger.ErrorContext(c.UserContext(), "Database connection failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "Database connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
