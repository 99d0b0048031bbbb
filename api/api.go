package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/lillylive/lilly/web"
)

// Server is the lilly HTTP server.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server and registers its routes.
func NewServer(config Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Storer == nil {
		return nil, errors.New("api server requires a storage driver")
	}
	if deps.Hasher == nil {
		return nil, errors.New("api server requires a password hasher")
	}
	if deps.Tokens == nil {
		return nil, errors.New("api server requires a token manager")
	}
	if config.AllowOrigins == "" {
		config.AllowOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          jsonErrorHandler(logger),
	})

	s := &Server{
		config: config,
		deps:   deps,
		logger: logger,
		app:    app,
	}

	app.Use(recover.New())
	app.Use(s.requestLogger)
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	app.Get("/ping", s.handlePing)

	apiGroup := app.Group("/api")
	apiGroup.Post("/chat", s.handleChat)
	apiGroup.Get("/me", s.handleMe)

	limit := s.authLimiter()
	apiGroup.Post("/login", limit, s.handleLogin)
	apiGroup.Post("/signup", limit, s.handleSignup)

	app.Use("/", filesystem.New(filesystem.Config{
		Root:   http.FS(web.Site()),
		Index:  "index.html",
		Browse: false,
	}))

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// authLimiter throttles credential endpoints per client IP.
func (s *Server) authLimiter() fiber.Handler {
	if s.config.AuthRateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max: s.config.AuthRateLimit,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(errorBody("Too many attempts, please try again later"))
		},
	})
}
