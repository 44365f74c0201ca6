package profile

import (
	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		p, err := svc.Get(c.Context(), session)
		if err != nil {
			return apperr.HTTP(err, "failed to load profile")
		}
		return c.JSON(p)
	})

	r.Put("/me", authMiddleware, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		p, err := svc.Update(c.Context(), session, req)
		if err != nil {
			return apperr.HTTP(err, "failed to update profile")
		}
		return c.JSON(p)
	})
}
