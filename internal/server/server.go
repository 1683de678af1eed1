// Package server contains the HTTP handlers for the picshare API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "picshare/docs" // swagger docs
	"picshare/internal/auth"
	"picshare/internal/cache"
	"picshare/internal/config"
	"picshare/internal/database"
	"picshare/internal/middleware"
	"picshare/internal/models"
	"picshare/internal/repository"
	"picshare/internal/service"
	"picshare/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	rateLimiter     *middleware.RateLimiter
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	files           *storage.LocalStore
	tokens          *auth.TokenService
	authService     *service.AuthService
	userService     *service.UserService
	imageService    *service.ImageService
	categoryService *service.CategoryService
	commentService  *service.CommentService
	socialService   *service.SocialService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	redisClient := cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use it with SQLite and, optionally, miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	files, err := storage.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("upload storage: %w", err)
	}
	cache.SetClient(redisClient)

	userRepo := repository.NewUserRepository(db)
	imageRepo := repository.NewImageRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	socialRepo := repository.NewSocialRepository(db)
	tx := repository.NewTransactor(db)
	tokens := auth.NewTokenServiceFromConfig(cfg)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.RateLimitsEnforced()),
		promMiddleware: middleware.InitMetrics("picshare-api"),
		files:          files,
		tokens:         tokens,
	}
	s.authService = service.NewAuthService(userRepo, tx, tokens, cfg.ResetTokenTTL())
	s.userService = service.NewUserService(userRepo, socialRepo, tx)
	s.imageService = service.NewImageService(imageRepo, categoryRepo, userRepo, tx, files, cfg.MaxUploadBytes())
	s.categoryService = service.NewCategoryService(categoryRepo, imageRepo, tx)
	s.commentService = service.NewCommentService(commentRepo, imageRepo, tx)
	s.socialService = service.NewSocialService(socialRepo, imageRepo, userRepo, tx)
	return s, nil
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "picshare API",
		// multipart overhead on top of the largest accepted file
		BodyLimit:    s.config.MaxUploadBytes() + 1024*1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escape handlers, including Fiber's own
// (unknown route, body too large), in the standard error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := models.CodeInternal
		switch {
		case fe.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fe.Code < fiber.StatusInternalServerError:
			code = models.CodeValidation
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message, Code: code})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithAppError(c, err)
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

	// Uploaded images are served to other origins, so the default
	// same-origin resource policy would block them.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.RateLimitsEnforced()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  middleware.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.files.URLPrefix(), s.files.Dir(), fiber.Static{
		MaxAge: 86400,
	})

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)

	authGroup := api.Group("/auth")
	authGroup.Post("/register", s.rateLimiter.Limit(5, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/login", s.rateLimiter.Limit(10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/refresh", s.Refresh)
	authGroup.Post("/forgot-password", s.rateLimiter.Limit(3, 15*time.Minute, "forgot_password"), s.ForgotPassword)
	authGroup.Post("/reset-password", s.ResetPassword)
	authGroup.Post("/logout", s.AuthRequired(), s.Logout)
	authGroup.Get("/profile", s.AuthRequired(), s.GetProfile)
	authGroup.Put("/profile", s.AuthRequired(), s.UpdateProfile)

	images := api.Group("/images")
	images.Get("/", s.GetImages)
	images.Post("/", s.AuthRequired(), s.rateLimiter.Limit(20, time.Hour, "upload"), s.UploadImage)
	// specific /:id/:resource routes before the generic /:id ones
	images.Get("/:id/comments", s.GetComments)
	images.Post("/:id/comments", s.AuthRequired(), s.rateLimiter.Limit(10, time.Minute, "create_comment"), s.CreateComment)
	images.Put("/:id/comments/:commentId", s.AuthRequired(), s.UpdateComment)
	images.Delete("/:id/comments/:commentId", s.AuthRequired(), s.DeleteComment)
	images.Get("/:id/likes", s.GetLikers)
	images.Post("/:id/like", s.AuthRequired(), s.LikeImage)
	images.Delete("/:id/like", s.AuthRequired(), s.UnlikeImage)
	images.Get("/:id", s.GetImage)
	images.Put("/:id", s.AuthRequired(), s.UpdateImage)
	images.Delete("/:id", s.AuthRequired(), s.DeleteImage)

	users := api.Group("/users")
	users.Get("/:userId/images", s.GetUserImages)
	users.Get("/:userId/followers", s.GetFollowers)
	users.Get("/:userId/following", s.GetFollowing)
	users.Post("/:userId/follow", s.AuthRequired(), s.FollowUser)
	users.Delete("/:userId/follow", s.AuthRequired(), s.UnfollowUser)
	users.Get("/:userId", s.GetUser)

	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Post("/", s.AuthRequired(), s.CreateCategory)
	categories.Post("/:id/images", s.AuthRequired(), s.AddImageToCategory)
	categories.Delete("/:id/images/:imageId", s.AuthRequired(), s.RemoveImageFromCategory)
	categories.Get("/:id", s.GetCategory)
	categories.Put("/:id", s.AuthRequired(), s.UpdateCategory)
	categories.Delete("/:id", s.AuthRequired(), s.DeleteCategory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the database decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
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

// bearerToken returns the token from an "Authorization: Bearer <token>" header.
func bearerToken(c *fiber.Ctx) string {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.authService.Authenticate(c.UserContext(), token)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", claims.UserID)
		c.Locals("claims", claims)
		c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
		return c.Next()
	}
}

// optionalUserID returns the caller's id on public routes. A missing,
// invalid or revoked token reads as anonymous.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	token := bearerToken(c)
	if token == "" {
		return 0
	}
	claims, err := s.authService.Authenticate(c.UserContext(), token)
	if err != nil {
		return 0
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
	return claims.UserID
}

// Start starts the server
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
