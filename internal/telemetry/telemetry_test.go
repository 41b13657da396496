package telemetry

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"

	"jogosescolares/internal/apperrors"
	"jogosescolares/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNewOpenTelemetry_Disabled(t *testing.T) {
	tel, err := NewOpenTelemetry(context.Background(), config.TelemetryConfig{Enabled: false}, "test")
	require.NoError(t, err)
	assert.False(t, tel.IsEnabled())

	// counters are nil while disabled
	tel.RecordSchoolRegistration(context.Background(), true)
	tel.RecordInscription(context.Background(), false)
	tel.RecordTeamChange(context.Background(), "add")

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestExporterTarget(t *testing.T) {
	tests := []struct {
		raw      string
		endpoint string
		secure   bool
	}{
		{raw: "localhost:4317", endpoint: "localhost:4317"},
		{raw: "http://collector:4317", endpoint: "collector:4317"},
		{raw: "grpc://collector:4317", endpoint: "collector:4317"},
		{raw: "https://otlp.example.com:443", endpoint: "otlp.example.com:443", secure: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			endpoint, creds := exporterTarget(tt.raw)
			assert.Equal(t, tt.endpoint, endpoint)
			assert.Equal(t, tt.secure, creds.Info().SecurityProtocol == "tls")
		})
	}
}

func TestConvertSlogAttr(t *testing.T) {
	kv := convertSlogAttr("req", slog.Int("status", 422))
	assert.Equal(t, "req.status", kv.Key)
	assert.Equal(t, log.KindInt64, kv.Value.Kind())
	assert.Equal(t, int64(422), kv.Value.AsInt64())
}

func TestOTelHandler_Enabled(t *testing.T) {
	h := NewOTelHandler("test", &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	// the default global provider is a no-op, emitting must not fail
	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("k", "v")}))
	logger.Error("boom", "n", 1)
}

func TestFiberMiddleware_PassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(FiberMiddleware("test"))
	app.Get("/ping", func(c *fiber.Ctx) error {
		assert.NotNil(t, c.UserContext())
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestFiberMiddleware_ReturnsDomainErrors(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if apperrors.IsNotFound(err) {
				return c.SendStatus(fiber.StatusNotFound)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Use(FiberMiddleware("test"))
	app.Get("/events/:id", func(c *fiber.Ctx) error {
		return apperrors.NotFound("event %s not found", c.Params("id"))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/events/123", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
