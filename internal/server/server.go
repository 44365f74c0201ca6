package server

import (
	"context"

	"parkease/internal/auth"
	"parkease/internal/booking"
	"parkease/internal/config"
	"parkease/internal/jobs"
	"parkease/internal/owner"
	"parkease/internal/profile"
	"parkease/internal/review"
	"parkease/internal/spot"
	"parkease/internal/storage"
	"parkease/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Jobs   *jobs.Scheduler
	Logger *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:      "parkease",
		ErrorHandler: errorHandler(log),
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
	}))
	app.Use(rateLimit(cfg.RateLimitPerMinute, log))

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Logger: log,
	}

	if err := registerRoutes(s); err != nil {
		return nil, err
	}
	return s, nil
}

func registerRoutes(s *Server) error {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	spots := spot.NewService(s.DB, spot.NewCache(s.Redis, s.Cfg.ListingCacheTTL, s.Logger), s.Logger)
	bookings := booking.NewService(s.DB, spots, s.Stream, booking.NewIdempotency(s.Redis), s.Logger)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB), jwtMiddleware)
	profile.RegisterRoutes(s.App.Group("/profile"), profile.NewService(s.DB), jwtMiddleware)

	spotRoutes := s.App.Group("/spots")
	spot.RegisterRoutes(spotRoutes, spots, jwtMiddleware)
	review.RegisterRoutes(spotRoutes, review.NewService(s.DB, spots, s.Logger), jwtMiddleware)
	storage.RegisterRoutes(spotRoutes, storage.NewService(s.DB, spots, s.Cfg.StorageBaseURL), jwtMiddleware)

	booking.RegisterRoutes(s.App.Group("/bookings"), bookings, jwtMiddleware)
	owner.RegisterRoutes(s.App.Group("/owner", jwtMiddleware), owner.NewService(spots, bookings, s.Logger), auth.RequireRole(auth.RoleOwner))
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, jwtMiddleware)

	if s.DB != nil {
		scheduler, err := jobs.NewScheduler(s.Cfg.LifecycleSchedule, bookings, s.Logger)
		if err != nil {
			return err
		}
		s.Jobs = scheduler
	}
	return nil
}

// Close stops background work. The caller owns the pool and Redis client.
func (s *Server) Close(ctx context.Context) {
	if s.Jobs != nil {
		s.Jobs.Stop(ctx)
	}
	if err := s.Stream.Close(); err != nil {
		s.Logger.Warn("stream close failed", zap.Error(err))
	}
}
