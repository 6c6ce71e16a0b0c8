package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// accessLog logs one line per request. Errors from later handlers are
// resolved here so the logged status is the one the client sees.
func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := s.handleError(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info("request",
		zap.String("request_id", requestID(c)),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}
