package web

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// accessLog writes one line per request. Health checks and scrapes log at trace.
func accessLog(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	level := zerolog.InfoLevel
	if c.Path() == CheckAlivePath || c.Path() == MetricsPath {
		level = zerolog.TraceLevel
	}

	log.WithLevel(level).
		Str("requestid", requestid.FromContext(c)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("latency", time.Since(start)).
		AnErr("error", err).
		Msg("http request")

	return err
}
