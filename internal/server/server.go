// Package server contains the HTTP handlers for the journaling API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "iskrib/docs" // swagger docs
	"iskrib/internal/bootstrap"
	"iskrib/internal/config"
	"iskrib/internal/featureflags"
	"iskrib/internal/mediafeed"
	"iskrib/internal/middleware"
	"iskrib/internal/models"
	"iskrib/internal/personalize"
	"iskrib/internal/repository"
	"iskrib/internal/service"
	"iskrib/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// uploadBuckets accept user uploads and deletes.
var uploadBuckets = []string{mediafeed.BucketJournalImages, mediafeed.BucketAvatars, mediafeed.BucketBackground}

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// initMetrics registers the request collectors once per process.
func initMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New("iskrib-api")
	})
	return prom
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	runtime        *bootstrap.Runtime
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          storage.ObjectStore
	signer         *storage.Signer
	featureFlags   *featureflags.Manager

	journalService      *service.JournalService
	searchService       *service.SearchService
	interactionService  *service.InteractionService
	commentService      *service.CommentService
	opinionService      *service.OpinionService
	notificationService *service.NotificationService
	canvasService       *service.CanvasService
	mediaService        *service.MediaService
	wallService         *service.WallService
}

// NewServer connects every dependency and builds a Server on them.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests pass a Runtime over SQLite and an in-memory store.
func NewServerWithDeps(cfg *config.Config, rt *bootstrap.Runtime) (*Server, error) {
	if rt == nil || rt.DB == nil || rt.Store == nil {
		return nil, fmt.Errorf("server needs a database and an object store")
	}
	middleware.InitMiddleware(cfg)

	flags := rt.Flags
	if flags == nil {
		flags = featureflags.NewManager(cfg.FeatureFlags)
	}
	embedder := rt.Embedder
	if embedder == nil {
		embedder = bootstrap.NewEmbedder(cfg)
	}

	signer := storage.NewSigner(storage.SignerConfig{
		Secret:        cfg.MediaSigningSecret,
		BaseURL:       cfg.MediaBaseURL,
		PublicBaseURL: cfg.MediaPublicBaseURL,
		PublicBuckets: cfg.PublicBuckets(),
	})

	users := repository.NewUserRepository(rt.DB)
	journals := repository.NewJournalRepository(rt.DB)
	interactions := repository.NewInteractionRepository(rt.DB)
	notifications := repository.NewNotificationRepository(rt.DB)
	comments := repository.NewCommentRepository(rt.DB)
	opinions := repository.NewOpinionRepository(rt.DB)
	canvas := repository.NewCanvasRepository(rt.DB)
	walls := repository.NewWallRepository(rt.DB)
	overlay := personalize.NewOverlay(interactions)

	feed := mediafeed.New(rt.Store, signer,
		mediafeed.WithSignedTTL(cfg.MediaSignedURLTTL),
		mediafeed.WithListTimeout(cfg.MediaBucketTimeout),
		mediafeed.WithLogger(middleware.Logger),
	)

	s := &Server{
		config:         cfg,
		runtime:        rt,
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: initMetrics(),
		store:          rt.Store,
		signer:         signer,
		featureFlags:   flags,

		journalService:      service.NewJournalService(journals, overlay, embedder),
		searchService:       service.NewSearchService(journals, overlay, embedder, flags),
		interactionService:  service.NewInteractionService(journals, interactions, notifications, users),
		commentService:      service.NewCommentService(journals, comments, notifications),
		opinionService:      service.NewOpinionService(opinions, notifications),
		notificationService: service.NewNotificationService(notifications),
		canvasService:       service.NewCanvasService(journals, canvas),
		mediaService:        service.NewMediaService(feed, rt.Store, signer, cfg.MediaSignedURLTTL, uploadBuckets...),
		wallService:         service.NewWallService(walls),
	}
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Propagates request, trace and user ids into the request context.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(helmet.New(helmet.Config{
		// Signed media is embedded by the web client from another origin.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Coarse per-IP ceiling; write routes also get the Redis limiter.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
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

// writeLimit throttles a write route per user.
func (s *Server) writeLimit(name string) fiber.Handler {
	policy := middleware.FailOpen
	if !s.config.RateLimitFailOpen {
		policy = middleware.FailClosed
	}
	limit := s.config.RateLimitWrites
	if limit <= 0 {
		limit = 60
	}
	window := s.config.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return middleware.RateLimitWithPolicy(s.redis, limit, window, policy, name)
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Signed URL redemption; the token is the credential.
	app.Get("/media/:bucket/*", s.ServeMedia)

	api := app.Group("/api")
	api.Get("/health/live", s.LivenessCheck)
	api.Get("/health/ready", s.ReadinessCheck)
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "iskrib API Metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/feature-flags", middleware.OptionalAuth, s.GetFeatureFlags)

	auth := middleware.AuthRequired
	optional := middleware.OptionalAuth

	journals := api.Group("/journals")
	journals.Get("/", optional, s.ListJournals)
	// Specific paths before /:id.
	journals.Get("/search", optional, s.SearchJournals)
	journals.Get("/hottest", optional, s.HottestJournals)
	journals.Post("/", auth, s.writeLimit("journals.create"), s.CreateJournal)
	journals.Get("/:id", optional, s.GetJournal)
	journals.Patch("/:id", auth, s.writeLimit("journals.update"), s.UpdateJournal)
	journals.Delete("/:id", auth, s.DeleteJournal)
	journals.Post("/:id/views", optional, s.AddJournalView)
	journals.Post("/:id/like", auth, s.writeLimit("journals.like"), s.ToggleLike)
	journals.Post("/:id/bookmark", auth, s.writeLimit("journals.bookmark"), s.ToggleBookmark)
	journals.Post("/:id/remix", auth, s.writeLimit("journals.remix"), s.RemixJournal)
	journals.Get("/:id/comments", optional, s.GetComments)
	journals.Post("/:id/comments", auth, s.writeLimit("comments.create"), s.CreateComment)
	journals.Get("/:id/margins", optional, s.ListMargins)
	journals.Post("/:id/margins", auth, s.writeLimit("margins.create"), s.AddMargin)
	journals.Get("/:id/stamps", optional, s.ListStamps)
	journals.Post("/:id/stamps", auth, s.writeLimit("stamps.create"), s.AddStamp)

	api.Delete("/margins/:id", auth, s.DeleteMargin)
	api.Delete("/stamps/:id", auth, s.DeleteStamp)

	users := api.Group("/users")
	users.Get("/me/journals", auth, s.ListMyJournals)
	users.Get("/me/media", auth, s.ListMyMedia)
	users.Delete("/me/media", auth, s.DeleteMedia)
	users.Post("/me/media/:bucket", auth, s.writeLimit("media.upload"), s.UploadMedia)
	users.Get("/:id/journals", optional, s.ListUserJournals)
	users.Get("/:id/media", optional, s.ListUserMedia)
	users.Post("/:id/follow", auth, s.writeLimit("users.follow"), s.ToggleFollow)

	api.Get("/bookmarks", auth, s.ListBookmarks)

	notifications := api.Group("/notifications", auth)
	notifications.Get("/", s.ListNotifications)
	notifications.Get("/unread-count", s.UnreadNotificationCount)
	notifications.Patch("/read-all", s.MarkAllNotificationsRead)
	notifications.Patch("/:source/:id/read", s.MarkNotificationRead)
	notifications.Delete("/:source/:id", s.DeleteNotification)

	opinions := api.Group("/opinions")
	opinions.Get("/:id/replies", optional, s.ListOpinionReplies)
	opinions.Post("/:id/replies", auth, s.writeLimit("opinions.reply"), s.ReplyToOpinion)

	wall := api.Group("/freedom-wall")
	wall.Get("/current", s.CurrentWallWeek)
	wall.Get("/weeks/:id/items", s.ListWallItems)
	wall.Post("/items", auth, s.writeLimit("wall.create"), s.CreateWallItem)
	wall.Patch("/items/:id", auth, s.writeLimit("wall.update"), s.UpdateWallItem)
	wall.Delete("/items/:id", auth, s.DeleteWallItem)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis backs rate limits and caching, both of which degrade.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	storageStatus := "memory"
	if s.runtime != nil && s.runtime.Mongo != nil {
		storageStatus = "healthy"
		if err := s.runtime.Mongo.Ping(ctx); err != nil {
			storageStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" || storageStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"storage":  storageStatus,
		},
		"time": time.Now(),
	})
}

// NewApp returns a Fiber app with the API error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "iskrib API",
		BodyLimit: service.MaxUploadSize + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// Start starts the server
func (s *Server) Start() error {
	app := NewApp()
	s.app = app
	s.SetupMiddleware(app)
	s.SetupRoutes(app)

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
	if s.runtime != nil {
		s.runtime.Close(ctx)
	}
	middleware.Logger.Info("server shutdown complete")
	return nil
}
