package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/snapdish/recipegen-be/internal/api/handler"
	"github.com/snapdish/recipegen-be/internal/api/router"
	"github.com/snapdish/recipegen-be/internal/blobstore"
	"github.com/snapdish/recipegen-be/internal/config"
	"github.com/snapdish/recipegen-be/internal/events"
	"github.com/snapdish/recipegen-be/internal/generation"
	"github.com/snapdish/recipegen-be/shared/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("RECIPEGEN_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/recipegen-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting recipegen service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	store, err := initStore(cfg, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize job store: %w", err)
	}
	defer store.Close()

	appLogger.Info("Job store initialized",
		slog.String("backend", cfg.Store.Backend),
	)

	eventsPub, err := initEvents(&cfg.Events, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event publisher: %w", err)
	}
	defer eventsPub.Close()

	generator := generation.NewClient(
		cfg.Generator.EndpointURL,
		cfg.Generator.Timeout,
		appLogger.Logger,
	)

	orchestrator := generation.NewOrchestrator(generation.Options{
		Store:     store,
		Generator: generator,
		Events:    eventsPub,
		Logger:    appLogger.Logger,
		Config: generation.Config{
			StaleAfter:    cfg.Orchestrator.StaleAfter,
			CompletedCap:  cfg.Orchestrator.CompletedCap,
			MigrationKeep: cfg.Orchestrator.MigrationKeep,
			BlobSizeCap:   cfg.Orchestrator.BlobSizeCap,
			RecipeCount:   cfg.Generator.RecipeCount,
			Pacing: generation.PacingDelays{
				Thinking:     cfg.Orchestrator.Pacing.Thinking,
				Searching:    cfg.Orchestrator.Pacing.Searching,
				SourcesFound: cfg.Orchestrator.Pacing.SourcesFound,
				Calculating:  cfg.Orchestrator.Pacing.Calculating,
			},
		},
	})

	// Startup sequence: migrate, load, reap stale jobs, resume survivors.
	restoreCtx, restoreCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = orchestrator.Restore(restoreCtx)
	restoreCancel()
	if err != nil {
		return fmt.Errorf("failed to restore jobs: %w", err)
	}

	r := initRouter(cfg.App.Environment, appLogger.Logger, orchestrator)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("Recipegen service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Cancel in-flight pipeline runs; they stay persisted as active and are
	// resumed or reaped on the next startup.
	if err := orchestrator.Shutdown(ctx); err != nil {
		appLogger.Error("Orchestrator forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// initStore initializes the configured blob store backend
func initStore(cfg *config.Config, logger *slog.Logger) (blobstore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.Store.Backend {
	case config.StoreBackendSQLite:
		return blobstore.OpenSQLite(cfg.Store.SQLite.Path, cfg.Store.Key)

	case config.StoreBackendPostgres:
		pg := cfg.Store.Postgres
		return blobstore.OpenPostgres(&blobstore.PostgresConfig{
			Host:            pg.Host,
			Port:            pg.Port,
			User:            pg.User,
			Password:        pg.Password,
			Database:        pg.Database,
			SSLMode:         pg.SSLMode,
			MaxOpenConns:    pg.MaxOpenConns,
			MaxIdleConns:    pg.MaxIdleConns,
			ConnMaxLifetime: pg.ConnMaxLifetime,
			ConnMaxIdleTime: pg.ConnMaxIdleTime,
		}, cfg.Store.Key, logger)

	case config.StoreBackendRedis:
		return blobstore.OpenRedis(ctx, &blobstore.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		}, cfg.Store.Key)

	case config.StoreBackendS3:
		return blobstore.OpenS3(ctx, &blobstore.S3Config{
			Endpoint:  cfg.Store.S3.Endpoint,
			AccessKey: cfg.Store.S3.AccessKey,
			SecretKey: cfg.Store.S3.SecretKey,
			Bucket:    cfg.Store.S3.Bucket,
			UseSSL:    cfg.Store.S3.UseSSL,
		}, cfg.Store.Key)

	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Store.Backend)
	}
}

// initEvents initializes the event publisher, or a no-op when disabled
func initEvents(cfg *config.EventsConfig, logger *slog.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.Nop{}, nil
	}

	return events.NewAMQPPublisher(&events.AMQPConfig{
		Host:          cfg.Host,
		Port:          cfg.Port,
		User:          cfg.User,
		Password:      cfg.Password,
		VHost:         cfg.VHost,
		Exchange:      cfg.Exchange,
		RetryAttempts: cfg.Connection.RetryAttempts,
		RetryInterval: cfg.Connection.RetryInterval,
		Heartbeat:     cfg.Connection.Heartbeat,
	}, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, orchestrator *generation.Orchestrator) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger: logger,
		Jobs:   orchestrator,
	})
}
