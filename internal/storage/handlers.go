package storage

import (
	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

// RegisterRoutes mounts image routes below a spots router.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/:id/images", authMiddleware, func(c *fiber.Ctx) error {
		var req AttachRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		obj, err := svc.AttachImage(c.Context(), session, c.Params("id"), req)
		if err != nil {
			return apperr.HTTP(err, "failed to attach image")
		}
		return c.Status(fiber.StatusCreated).JSON(obj)
	})
}
