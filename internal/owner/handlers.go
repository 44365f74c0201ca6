package owner

import (
	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/inventory", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		inv, err := svc.Inventory(c.Context(), session)
		if err != nil {
			return apperr.HTTP(err, "failed to load inventory")
		}
		return c.JSON(inv)
	})

	r.Post("/spots/:id/toggle", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		inv, err := svc.ToggleSpot(c.Context(), session, c.Params("id"))
		if err != nil {
			return apperr.HTTP(err, "failed to update spot status")
		}
		return c.JSON(inv)
	})
}
