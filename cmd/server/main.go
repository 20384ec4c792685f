package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/caseloft/store-service/config"
	"github.com/caseloft/store-service/internal/catalog"
	"github.com/caseloft/store-service/internal/checkout"
	"github.com/caseloft/store-service/internal/database"
	"github.com/caseloft/store-service/internal/discount"
	"github.com/caseloft/store-service/internal/handlers"
	"github.com/caseloft/store-service/internal/middleware"
	"github.com/caseloft/store-service/internal/scheduler"
	"github.com/caseloft/store-service/internal/telemetry"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := initLogger(cfg.Logging)

	logger.Info().Msg("Starting store service")

	ctx := context.Background()
	cleanupTelemetry := telemetry.MustInit(ctx, telemetry.GetConfigFromEnv())
	defer cleanupTelemetry(context.Background())

	// The service stays up without a database: catalog and checkout endpoints
	// answer 503 and sweeps degrade to no-ops, but health and the scheduler
	// management surface keep working.
	var (
		productStore *catalog.Store
		checkoutSvc  *checkout.Service
		recordStore  *scheduler.RecordStore
	)
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		logger.Warn().Msg("DATABASE_URL not set, running without persistence")
	} else {
		if err := database.Connect(
			ctx,
			dbURL,
			cfg.Database.MaxConnections,
			cfg.Database.MinConnections,
			cfg.Database.MaxConnLifetime,
			cfg.Database.MaxConnIdleTime,
		); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer database.Close()
		logger.Info().Msg("Database connected")

		productStore = catalog.NewStore(database.Pool(), *logger)
		checkoutSvc = checkout.NewService(database.Pool(), *logger)
		recordStore = scheduler.NewRecordStore(database.Pool(), *logger)
	}

	reconciler := discount.NewReconciler(
		sourceOrNil(productStore),
		*logger,
		discount.WithWriteConcurrency(cfg.Scheduler.SweepWriteConcurrency),
	)

	registry := scheduler.NewRegistry(*logger)
	defer registry.Shutdown()

	sweepJob := func(ctx context.Context) {
		if _, err := reconciler.Sweep(ctx); err != nil {
			logger.Error().Err(err).Msg("Discount sweep failed")
		}
	}
	registry.RegisterKind("discountSync", sweepJob)
	// Legacy kind name kept so old schedule records keep restoring.
	registry.RegisterKind("productScheduler", sweepJob)

	if recordStore != nil {
		scheduler.RestoreAll(ctx, recordStore, registry, *logger)
	}

	if cfg.Scheduler.RunSweepOnBoot {
		go sweepJob(ctx)
	}

	if cfg.Logging.Level == "info" || cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	setupMiddleware(router, logger)

	productHandler := handlers.NewProductHandler(productStore, *logger)
	orderHandler := handlers.NewOrderHandler(checkoutSvc, *logger)
	scheduleHandler := handlers.NewScheduleHandler(registry, recordsOrNil(recordStore), *logger)

	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware())
	{
		api.GET("/products", productHandler.List)
		api.GET("/products/:productId", productHandler.Get)
		api.POST("/orders", orderHandler.Create)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.AdminAuthMiddleware(cfg.Auth.AdminAPIKey))
	admin.Use(middleware.AdminRateLimitMiddleware(50, 100))
	{
		admin.GET("/health", handlers.HealthCheck)

		admin.POST("/products", productHandler.Create)
		admin.PUT("/products/:productId", productHandler.Update)
		admin.DELETE("/products/:productId", productHandler.Delete)

		admin.GET("/orders", orderHandler.List)
		admin.PATCH("/orders/:orderId/status", orderHandler.UpdateStatus)
		admin.DELETE("/orders/:orderId", orderHandler.Delete)

		schedules := admin.Group("/schedules")
		{
			schedules.GET("/records", scheduleHandler.ListRecords)
			schedules.POST("/records", scheduleHandler.CreateRecord)
			schedules.GET("/records/:recordId", scheduleHandler.GetRecord)
			schedules.PUT("/records/:recordId", scheduleHandler.UpdateRecord)
			schedules.DELETE("/records/:recordId", scheduleHandler.DeleteRecord)

			schedules.POST("", scheduleHandler.RegisterJob)
			schedules.GET("", scheduleHandler.ListJobs)
			schedules.POST("/:jobId/start", scheduleHandler.StartJob)
			schedules.POST("/:jobId/stop", scheduleHandler.StopJob)
			schedules.DELETE("/:jobId", scheduleHandler.CancelJob)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")
	registry.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

// sourceOrNil avoids handing the reconciler a typed-nil interface when the
// store is absent.
func sourceOrNil(store *catalog.Store) discount.ProductSource {
	if store == nil {
		return nil
	}
	return store
}

// recordsOrNil avoids handing the schedule handler a typed-nil interface when
// the record store is absent.
func recordsOrNil(store *scheduler.RecordStore) handlers.ScheduleRecordStore {
	if store == nil {
		return nil
	}
	return store
}

func initLogger(cfg config.LoggingConfig) *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var output io.Writer
	if cfg.Format == "json" {
		output = os.Stdout
	} else {
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: cfg.NoColor}
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Str("service", "store-service").Logger()
	return &logger
}

func setupMiddleware(router *gin.Engine, logger *zerolog.Logger) {
	router.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		end := time.Now()
		latency := end.Sub(start)

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Str("ip", c.ClientIP()).
			Msg("HTTP request")
	})
}
