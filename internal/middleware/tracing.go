package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	traceHeader = "X-Trace-Id"
	traceLocal  = "trace_id"
)

// Tracing tags each request with a trace ID. An incoming X-Trace-Id is kept
// so callers can correlate their own logs; otherwise a fresh UUID is
// assigned. The ID is echoed back on the response either way.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(traceHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Locals(traceLocal, id)
		c.Set(traceHeader, id)
		return c.Next()
	}
}

// GetTraceID returns the request's trace ID, or "" outside the middleware.
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceLocal).(string)
	return id
}
