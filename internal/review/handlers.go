package review

import (
	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

// RegisterRoutes mounts review routes below a spots router.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/:id/reviews", func(c *fiber.Ctx) error {
		reviews, err := svc.List(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.HTTP(err, "failed to load reviews")
		}
		return c.JSON(reviews)
	})

	r.Post("/:id/reviews", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		rev, err := svc.Create(c.Context(), session, c.Params("id"), req)
		if err != nil {
			return apperr.HTTP(err, "failed to save review")
		}
		return c.Status(fiber.StatusCreated).JSON(rev)
	})
}
