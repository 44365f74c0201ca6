package server

import (
	"errors"

	"parkease/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// errorHandler renders every error as {"error": message} and logs server faults.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if !errors.As(err, &fe) {
			fe = apperr.HTTP(err, "internal server error")
		}
		if fe.Code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", fe.Code),
				zap.Error(err),
			)
		}
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
}
