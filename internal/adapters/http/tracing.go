package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/landplot/internal/pkg/telemetry"
)

// fiberCarrier adapts request and response headers to the otel propagator.
type fiberCarrier struct{ c *fiber.Ctx }

func (f fiberCarrier) Get(key string) string { return f.c.Get(key) }
func (f fiberCarrier) Set(key, value string) { f.c.Set(key, value) }
func (f fiberCarrier) Keys() []string {
	var keys []string
	f.c.Request().Header.VisitAll(func(k, _ []byte) {
		keys = append(keys, string(k))
	})
	return keys
}

// TracingMiddleware continues an incoming W3C trace, or starts one, and
// wraps the request in a server span.
func TracingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := telemetry.Extract(c.UserContext(), fiberCarrier{c})
		ctx, end := telemetry.StartSpan(ctx, c.Method()+" "+c.Path(),
			attribute.String("http.method", c.Method()),
			attribute.String("http.target", c.OriginalURL()),
		)
		c.SetUserContext(ctx)

		err := c.Next()

		spanErr := err
		if status := c.Response().StatusCode(); spanErr == nil && status >= 500 {
			spanErr = fiber.NewError(status, "status "+strconv.Itoa(status))
		}
		end(spanErr)
		return err
	}
}
