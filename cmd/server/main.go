package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jogosescolares/internal/api"
	"jogosescolares/internal/audit"
	"jogosescolares/internal/authz"
	"jogosescolares/internal/config"
	"jogosescolares/internal/database"
	"jogosescolares/internal/database/migrations"
	"jogosescolares/internal/eligibility"
	"jogosescolares/internal/event"
	"jogosescolares/internal/inscription"
	"jogosescolares/internal/logger"
	"jogosescolares/internal/modality"
	"jogosescolares/internal/participant"
	"jogosescolares/internal/ratelimit"
	"jogosescolares/internal/school"
	"jogosescolares/internal/session"
	"jogosescolares/internal/storage"
	"jogosescolares/internal/team"
	"jogosescolares/internal/telemetry"
	"jogosescolares/internal/user"
	"jogosescolares/internal/validator"

	"github.com/redis/go-redis/v9"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	tel, err := telemetry.NewOpenTelemetry(ctx, cfg.Telemetry, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	log := logger.New(cfg)

	// Schema first, over a short-lived lib/pq handle.
	sqlDB, err := database.OpenSQL(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := migrations.Up(sqlDB); err != nil {
		_ = sqlDB.Close()
		return err
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Failed to close migration connection", "error", err)
	}

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		log.Error("Failed to initialize database", "error", err)
		return err
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
	} else {
		log.Info("Redis disabled, rate limiting is off")
	}

	limiter := ratelimit.NewRateLimiter(redisClient, map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionLogin:    {Limit: int64(cfg.RateLimit.Login), Window: cfg.RateLimit.Window},
		ratelimit.ActionRegister: {Limit: int64(cfg.RateLimit.Register), Window: cfg.RateLimit.Window},
	})

	authorizer, err := authz.NewClient(log, cfg.OpenFGA)
	if err != nil {
		return err
	}

	documents, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize document storage: %w", err)
	}

	v := validator.New()
	auditor := audit.NewAuditor(log)
	users := user.NewManager(log, &db, &auditor, v)
	events := event.NewManager(log, &db, &auditor, nil)
	resolver := eligibility.NewResolver(log, &db, nil)
	schools := school.NewManager(log, &db, &auditor, &users, &events, tel, v)
	inscriptions := inscription.NewManager(log, &db, &auditor, &resolver, tel)
	teams := team.NewManager(log, &db, &auditor, &events, authorizer, tel)
	participants := participant.NewManager(log, &db, &auditor, documents, v)
	modalities := modality.NewManager(log, &db, &auditor, v)

	sessions := session.New(session.NewPostgresStorage(db.Pool), cfg.Server, &users)

	handler := api.NewHandler(api.HandlerParams{
		Logger:       log,
		DB:           &db,
		Sessions:     sessions,
		Limiter:      limiter,
		Users:        &users,
		Events:       &events,
		Schools:      &schools,
		Inscriptions: &inscriptions,
		Teams:        &teams,
		Participants: &participants,
		Modalities:   &modalities,
		Resolver:     &resolver,
	})
	app := api.NewApp(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		log.Info("Starting server", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
