package server

import (
	"backend-voltride/internal/auth"
	"backend-voltride/internal/config"
	"backend-voltride/internal/group"
	"backend-voltride/internal/ride"
	"backend-voltride/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	authSvc := auth.NewService(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	group.RegisterRoutes(s.App.Group("/groups"), group.NewService(s.DB), jwtMiddleware)
	ride.RegisterRoutes(s.App.Group("/rides"), ride.NewService(s.DB), jwtMiddleware)

	// The hub trusts the same tokens the REST routes do.
	verify := func(token string) (stream.Identity, error) {
		claims, err := authSvc.VerifyToken(token)
		if err != nil {
			return stream.Identity{}, err
		}
		return stream.Identity{UserID: claims.UserID, Nickname: claims.Nickname}, nil
	}
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, verify,
		rate.Limit(s.Cfg.WSRateLimit), s.Cfg.WSRateBurst)
}
