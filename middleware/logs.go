package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"Gmao/Models"
)

// LogConfig holds configuration for the request logger.
type LogConfig struct {
	// Skip logging for specific paths
	SkipPaths []string
	// Only log requests that failed
	ErrorsOnly bool
}

func DefaultLogConfig() LogConfig {
	return LogConfig{SkipPaths: []string{"/health"}}
}

// RequestLogger logs one structured line per request. A missing
// X-Request-ID header is filled in so the id can be echoed to the client.
func RequestLogger(config ...LogConfig) fiber.Handler {
	cfg := DefaultLogConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := skip[c.Path()]; ok {
			return c.Next()
		}
		start := time.Now()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		err := c.Next()

		status := c.Response().StatusCode()
		if cfg.ErrorsOnly && err == nil && status < fiber.StatusBadRequest {
			return nil
		}

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"latency":    time.Since(start).String(),
			"ip":         c.IP(),
		})
		if user, ok := c.Locals("user").(Models.User); ok {
			entry = entry.WithFields(log.Fields{"user_id": user.ID, "username": user.Name})
		}
		switch {
		case err != nil:
			entry.WithError(err).Error("request failed")
		case status >= fiber.StatusInternalServerError:
			entry.Error("request")
		case status >= fiber.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
		return err
	}
}
