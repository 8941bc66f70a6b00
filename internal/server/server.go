// Package server exposes the feed over an HTTP JSON API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fitprove/internal/auth"
	"fitprove/internal/cache"
	"fitprove/internal/config"
	"fitprove/internal/database"
	"fitprove/internal/featureflags"
	"fitprove/internal/gateway"
	"fitprove/internal/middleware"
	"fitprove/internal/models"
	"fitprove/internal/observability"
	"fitprove/internal/repository"
	"fitprove/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	cache           *cache.Store
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	verifier        *auth.Verifier
	validate        *validator.Validate
	featureFlags    *featureflags.Manager
	postService     *service.PostService
	reactionService *service.ReactionService
	commentService  *service.CommentService
}

// NewServer connects to the database and Redis and wires the services.
// Redis is optional; without it the caches are bypassed.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		observability.Logger.Warn("Redis unavailable, caching disabled", slog.String("error", err.Error()))
		rdb = nil
	}

	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// rdb may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	gw := gateway.NewGormGateway(db, gateway.Options{
		Timeout:     cfg.GatewayTimeout,
		ReadRetries: cfg.GatewayReadRetries,
	})
	store := cache.NewStore(rdb)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	provider := auth.ContextProvider{}

	profileRepo := repository.NewProfileRepository(gw, store)
	postRepo := repository.NewPostRepository(gw, profileRepo, flags)
	reactionRepo := repository.NewReactionRepository(gw)
	commentRepo := repository.NewCommentRepository(gw, profileRepo, flags)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          rdb,
		cache:          store,
		promMiddleware: middleware.InitMetrics("fitprove-api"),
		verifier:       auth.NewVerifier(cfg.JWTSecret),
		validate:       validator.New(),
		featureFlags:   flags,
	}
	s.postService = service.NewPostService(postRepo, reactionRepo, provider, store, cfg.FeedPageSize)
	s.reactionService = service.NewReactionService(postRepo, reactionRepo, provider, store)
	s.commentService = service.NewCommentService(commentRepo, postRepo, provider, store)
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.rateLimited()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api", middleware.OptionalAuth(s.verifier))
	api.Get("/feature-flags", s.GetFeatureFlags)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/comments", s.GetComments)

	required := middleware.AuthRequired(s.verifier)
	posts.Post("/", required, s.writeLimit(10, time.Minute, "create_post"), s.CreatePost)
	posts.Post("/:id/reactions", required, s.writeLimit(60, time.Minute, "react"), s.ToggleReaction)
	posts.Post("/:id/comments", required, s.writeLimit(20, time.Minute, "create_comment"), s.CreateComment)
	posts.Patch("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)
}

func (s *Server) writeLimit(limit int, window time.Duration, resource string) fiber.Handler {
	return middleware.RateLimit(s.redis, s.rateLimited() && s.redis != nil, limit, window, resource, middleware.FailOpen)
}

// rateLimited is false for local, test and load-test environments.
func (s *Server) rateLimited() bool {
	switch s.config.Env {
	case "", "development", "test", "stress":
		return false
	}
	return true
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "FITProve Feed API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and cache health. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.cache.Enabled() {
		redisStatus = "healthy"
		if err := s.cache.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	} else if redisStatus == "unhealthy" {
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.app = s.App()
	observability.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.Logger.Info("Server shutdown complete")
	return nil
}
