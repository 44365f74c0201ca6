package spot

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"parkease/internal/auth"
	"parkease/internal/shared/apperr"
)

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Get("/", func(c *fiber.Ctx) error {
		filter, err := filterFromQuery(c)
		if err != nil {
			return err
		}
		spots, err := svc.Search(c.Context(), filter)
		if err != nil {
			return apperr.HTTP(err, "failed to load parking spots")
		}
		return c.JSON(spots)
	})

	r.Post("/", authMiddleware, func(c *fiber.Ctx) error {
		var req CreateSpotRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		session, _ := auth.SessionFrom(c)
		spot, err := svc.Create(c.Context(), session, req)
		if err != nil {
			return apperr.HTTP(err, "failed to create parking spot")
		}
		return c.Status(fiber.StatusCreated).JSON(spot)
	})

	r.Get("/:id", func(c *fiber.Ctx) error {
		spot, err := svc.Get(c.Context(), c.Params("id"))
		if err != nil {
			return apperr.HTTP(err, "failed to load parking spot")
		}
		return c.JSON(spot)
	})
}

func filterFromQuery(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Location: c.Query("location"),
		Category: c.Query("category"),
		Sort:     c.Query("sort"),
	}
	if !ValidSort(f.Sort) {
		return Filter{}, fiber.NewError(fiber.StatusBadRequest, "unknown sort "+f.Sort)
	}

	var err error
	if f.MinPrice, err = optionalFloat(c, "min_price", 0); err != nil {
		return Filter{}, err
	}
	for key, dst := range map[string]**float64{"max_price": &f.MaxPrice, "lat": &f.Lat, "lng": &f.Lng} {
		if c.Query(key) == "" {
			continue
		}
		v, err := optionalFloat(c, key, 0)
		if err != nil {
			return Filter{}, err
		}
		*dst = &v
	}
	return f, nil
}

func optionalFloat(c *fiber.Ctx, key string, fallback float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, key+" must be a number")
	}
	return v, nil
}
