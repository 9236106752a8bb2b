package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/api/handlers"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/middleware"
	"github.com/angelonej/daily-planner-agent-sub000/internal/api/routes"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/alerts"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/calendar"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/todos"
	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/triggers"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/cache"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/persistence/postgres/connection"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/persistence/postgres/migrations"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/scheduler"
	"github.com/angelonej/daily-planner-agent-sub000/internal/infrastructure/sources"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/config"
	"github.com/angelonej/daily-planner-agent-sub000/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.NewLoggerWithLevel(cfg.Logging.Level)
	defer log.Sync()

	isDevelopment := cfg.Server.Mode != "production"
	log.Info("Configuration loaded successfully", zap.String("mode", cfg.Server.Mode))

	loc, err := time.LoadLocation(cfg.Triggers.Timezone)
	if err != nil {
		log.Warn("Unknown trigger timezone, using local time", zap.String("timezone", cfg.Triggers.Timezone), zap.Error(err))
		loc = time.Local
	}

	// Connect to database
	var db *connection.Database
	if cfg.Database.Enabled {
		db, err = connection.NewDatabase(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := migrations.AutoMigrate(db, log.Logger); err != nil {
			log.Fatal("Failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Warn("Database disabled, calendar and tasks are unavailable")
	}

	// Initialize Redis
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cache.NewConfigFromEnv(cfg), log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// Data sources
	httpClient := sources.NewHTTPClient(cfg.Sources.HTTPTimeout)
	mail := sources.NewMail(cfg.Sources.IMAPAccounts, cfg.Sources.HTTPTimeout, log)
	usage := sources.NewUsage()
	traffic := sources.NewTraffic(cfg.Sources.MapsURL, cfg.Sources.MapsAPIKey, httpClient)

	briefingSources := briefing.Sources{
		Mail:     mail,
		Weather:  sources.NewWeather(cfg.Sources.WeatherURL, cfg.Sources.WeatherLat, cfg.Sources.WeatherLng, httpClient),
		News:     sources.NewNews(cfg.Sources.NewsURL, httpClient, log),
		Usage:    usage,
		Packages: sources.NewPackages(mail),
	}
	var calendarSource *calendar.Source
	if db != nil {
		calendarSource = calendar.NewSource(calendar.NewRepository(db.DB), loc)
		briefingSources.Calendar = calendarSource
		briefingSources.Tasks = todos.NewSource(todos.NewTodoRepository(db))
	}

	aggregator := briefing.NewAggregator(briefingSources, briefing.AggregatorConfig{
		NewsTopics: cfg.Briefing.NewsTopics,
		TaskLimit:  cfg.Briefing.TaskLimit,
	}, log)

	// Briefing service with the Redis mirror and cross-instance invalidation when available
	var (
		sessionStore briefing.SessionStore
		publisher    briefing.InvalidationPublisher
	)
	if redisClient != nil {
		sessionStore = redisClient
		publisher = redisClient
	}
	briefingService := briefing.NewService(
		aggregator,
		briefing.NewSessionCache(sessionStore, log),
		publisher,
		log,
		briefing.WithTTL(cfg.Briefing.DashboardTTL),
	)

	// Initialize notification system
	notificationSystem := SetupNotificationSystem(db, cfg.Push, httpClient, log, isDevelopment)
	defer notificationSystem.Shutdown()

	// Alert scheduler and daily triggers
	locations := alerts.NewLocationStore()
	jobs := scheduler.Jobs{
		Heartbeat:         notificationSystem.Bus,
		HeartbeatInterval: cfg.Alerts.HeartbeatInterval,
		OnInvalidate:      briefingService.InvalidateLocal,
	}
	if calendarSource != nil {
		jobs.Alerts = alerts.NewScheduler(calendarSource, traffic, locations, notificationSystem.Bus, alerts.Config{
			Interval:    cfg.Alerts.PollInterval(),
			HomeAddress: cfg.Alerts.HomeAddress,
			WorkAddress: cfg.Alerts.WorkAddress,
		}, log)
	}
	if notificationSystem.Consumer != nil {
		jobs.Consumer = notificationSystem.Consumer
	}
	if redisClient != nil {
		jobs.Invalidations = redisClient
	}

	var digest triggers.DigestSender
	if cfg.Digest.SMTPHost != "" {
		digest = sources.NewDigest(cfg.Digest, loc)
	}
	triggerManager := triggers.NewManager(briefingService, digest, notificationSystem.Bus, triggers.Config{
		MorningTime: cfg.Triggers.MorningTime,
		EveningTime: cfg.Triggers.EveningTime,
		Location:    loc,
		OwnerID:     cfg.Briefing.OwnerID,
	}, log)
	jobs.Triggers = triggerManager

	backgroundJobs := scheduler.NewScheduler(jobs, log)

	// Set up Gin
	if isDevelopment {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewTracingMiddleware(log).TraceRequest())
	router.Use(middleware.NewMetricsMiddleware().CollectMetrics())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     append(cfg.CORS.AllowedHeaders, "Content-Type", middleware.RequestIDHeader),
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	validation := middleware.NewValidationMiddleware(log)

	// Health check routes (no /api prefix as these are system endpoints)
	deps := map[string]routes.Pinger{}
	var cacheReporter routes.CacheReporter
	if db != nil {
		deps["database"] = db
	}
	if redisClient != nil {
		deps["redis"] = routes.PingFunc(redisClient.HealthCheck)
		cacheReporter = redisClient
	}
	routes.NewHealthRoutes(deps, cacheReporter).RegisterRoutes(router)

	routes.NewBriefingRoutes(
		handlers.NewBriefingHandler(briefingService, log),
		handlers.NewUsageHandler(usage),
	).RegisterRoutes(router, validation)

	routes.NewAlertRoutes(
		handlers.NewAlertsHandler(notificationSystem.Bus, locations, log),
		handlers.NewNotificationHandler(notificationSystem.Bus, notificationSystem.Registrations, cfg.Push.VAPIDPublicKey, log),
		handlers.NewTriggersHandler(triggerManager, log),
	).RegisterRoutes(router, validation)

	for _, route := range router.Routes() {
		log.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	backgroundJobs.Start(ctx)

	// Start server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info("Shutting down server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := backgroundJobs.Stop(shutdownCtx); err != nil {
		log.Error("Background jobs forced to stop", zap.Error(err))
	}
	stop()

	log.Info("Server exited properly")
}
