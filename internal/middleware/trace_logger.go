package middleware

import (
	"github.com/c0dezer019/Presence/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TraceLoggerMiddleware stores a logger tagged with the request's trace in c.Locals("logger").
// It must run after otelfiber so the span is already on the user context.
func TraceLoggerMiddleware(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("logger", observability.WithContext(c.UserContext(), logger))

		return c.Next()
	}
}
