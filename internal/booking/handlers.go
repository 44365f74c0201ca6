package booking

import (
	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/quote", func(c *fiber.Ctx) error {
		var req QuoteRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		quote, err := svc.Quote(c.Context(), req.SpotID, req.StartTime, req.EndTime)
		if err != nil {
			return apperr.HTTP(err, "failed to price booking")
		}
		return c.JSON(quote)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		req.IdempotencyKey = c.Get("Idempotency-Key")

		session, _ := auth.SessionFrom(c)
		b, err := svc.Create(c.Context(), session, req)
		if err != nil {
			return apperr.HTTP(err, "failed to create booking")
		}
		return c.Status(fiber.StatusCreated).JSON(b)
	})

	r.Get("/mine", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		dashboard, err := svc.ListMine(c.Context(), session)
		if err != nil {
			return apperr.HTTP(err, "failed to load bookings")
		}
		dashboard.Bookings = FilterByStatus(dashboard.Bookings, c.Query("status"))
		return c.JSON(dashboard)
	})

	r.Get("/:id", authMiddleware, func(c *fiber.Ctx) error {
		session, _ := auth.SessionFrom(c)
		b, err := svc.Get(c.Context(), session, c.Params("id"))
		if err != nil {
			return apperr.HTTP(err, "failed to load booking")
		}
		return c.JSON(b)
	})
}
