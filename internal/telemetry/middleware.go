package telemetry

import (
	"strconv"

	"jogosescolares/internal/apperrors"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FiberMiddleware opens a server span per request and stores it on the user
// context. The span is renamed to the matched route once routing is done.
// Domain errors are tagged with their kind but do not fail the span.
func FiberMiddleware(serviceName string) fiber.Handler {
	tracer := otel.Tracer(serviceName)
	propagator := otel.GetTextMapPropagator()

	return func(c *fiber.Ctx) error {
		ctx := propagator.Extract(c.UserContext(), requestCarrier{c: c})
		ctx, span := tracer.Start(ctx, "HTTP "+c.Method(),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Method()),
				attribute.String("http.target", c.OriginalURL()),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)
		propagator.Inject(ctx, responseCarrier{c: c})

		err := c.Next()

		route := c.Route().Path
		span.SetName(c.Method() + " " + route)
		span.SetAttributes(attribute.String("http.route", route))
		if id := c.Params("id"); id != "" {
			span.SetAttributes(attribute.String("app.resource_id", id))
		}

		if err != nil {
			if kind, ok := apperrors.KindOf(err); ok {
				span.SetAttributes(attribute.String("app.error_kind", string(kind)))
				return err
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= fiber.StatusInternalServerError {
			span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
		}
		return nil
	}
}

// requestCarrier reads propagation headers from the incoming request.
type requestCarrier struct {
	c *fiber.Ctx
}

func (rc requestCarrier) Get(key string) string {
	return rc.c.Get(key)
}

func (rc requestCarrier) Set(string, string) {}

func (rc requestCarrier) Keys() []string {
	var keys []string
	rc.c.Request().Header.VisitAll(func(key, _ []byte) {
		keys = append(keys, string(key))
	})
	return keys
}

// responseCarrier writes the trace context onto the response so clients can
// quote it when reporting a failed request.
type responseCarrier struct {
	c *fiber.Ctx
}

func (rc responseCarrier) Get(key string) string {
	return string(rc.c.Response().Header.Peek(key))
}

func (rc responseCarrier) Set(key, value string) {
	rc.c.Set(key, value)
}

func (rc responseCarrier) Keys() []string {
	return nil
}
