package transport

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
		}

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		}
		if requestID := c.Get(fiber.HeaderXRequestID); requestID != "" {
			fields = append(fields, zap.String("requestId", requestID))
		}
		logger.Error("request error", fields...)

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
