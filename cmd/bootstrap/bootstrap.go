package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-backoffice/config"
	deliveryHttp "clinic-backoffice/internal/delivery/http"
	"clinic-backoffice/internal/delivery/http/handler"
	"clinic-backoffice/internal/delivery/http/middleware"
	infraCache "clinic-backoffice/internal/infrastructure/cache"
	"clinic-backoffice/internal/infrastructure/database"
	"clinic-backoffice/internal/repository"
	"clinic-backoffice/internal/service"
	"clinic-backoffice/internal/usecase"
	"clinic-backoffice/pkg/cache"
	"clinic-backoffice/pkg/jwt"
	"clinic-backoffice/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server
	Sweep       *service.SweepService
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Setup logger
	setupLogger()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := infraCache.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	server, sweep := initializeServer(cfg, db, redisClient)
	app.Server = server
	app.Sweep = sweep

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
}

// newReadCache picks the cache driver: the in-process TTL cache by default,
// Redis when the deployment shares invalidations across processes.
func newReadCache(cfg config.CacheConfig, redisClient *redis.Client, log *logrus.Logger) cache.Cache {
	if cfg.Driver == "redis" {
		log.Info("Using Redis read cache")
		return cache.NewRedisCache(redisClient, log)
	}
	log.Infof("Using in-memory read cache, capacity %d", cfg.Capacity)
	return cache.NewMemoryCache(cfg.Capacity)
}

// initializeServer creates and configures the HTTP server and background jobs
func initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*http.Server, *service.SweepService) {
	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.Auth)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	clinicRepo := repository.NewClinicRepository(db)

	// Shared engine plumbing
	readCache := newReadCache(cfg.Cache, redisClient, log)
	calendar := service.NewWorkingCalendar(cfg.Booking.DefaultTimezone, log)
	guard := usecase.NewLedgerGuard()

	// Initialize usecases
	allocationUsecase := usecase.NewAllocationUsecase(log, cfg.Booking, ledgerRepo, clinicRepo, calendar, readCache, guard)
	cancellationUsecase := usecase.NewCancellationUsecase(log, ledgerRepo, readCache, guard)
	archivalUsecase := usecase.NewArchivalUsecase(log, ledgerRepo, archiveRepo, clinicRepo, calendar, readCache, guard)
	feedUsecase := usecase.NewFeedUsecase(log, ledgerRepo, readCache, cfg.Feed.SnapshotTTL)
	authUsecase := usecase.NewAuthUsecase(log, cfg.Auth, jwtService, redisClient)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authUsecase, customValidator)
	bookingHandler := handler.NewBookingHandler(allocationUsecase, cancellationUsecase, archivalUsecase, customValidator)
	feedHandler := handler.NewFeedHandler(feedUsecase, cfg.Feed, log)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(authHandler, bookingHandler, feedHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Background archival sweep
	sweep := service.NewSweepService(archivalUsecase, cfg.Sweep.Interval, log)

	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:    serverAddr,
		Handler: httpRouter,
	}, sweep
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	app.Sweep.Start()

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop background jobs and close connections
	app.Sweep.Stop()
	app.Close()

	logrus.Info("Server shutdown complete")
}

// Close closes all connections (database, redis, etc.)
func (app *App) Close() {
	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
