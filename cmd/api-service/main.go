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

	"github.com/cuongbtq/company-ingest/internal/api/handler"
	"github.com/cuongbtq/company-ingest/internal/api/router"
	"github.com/cuongbtq/company-ingest/internal/api/storage"
	"github.com/cuongbtq/company-ingest/internal/config"
	"github.com/cuongbtq/company-ingest/internal/metrics"
	"github.com/cuongbtq/company-ingest/internal/queue"
	"github.com/cuongbtq/company-ingest/internal/transport"
	"github.com/cuongbtq/company-ingest/shared/logger"
	"github.com/cuongbtq/company-ingest/shared/postgresql"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging, cfg.App.Name)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("broker", cfg.Broker.Driver),
	)

	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	broker, closeBroker, err := transport.New(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}

	publisher, err := queue.NewPublisher(broker, queue.Config{
		PrimaryURL:   cfg.FirecrawlQueueURL,
		SecondaryURL: cfg.CustomCrawlerQueueURL,
	}, appLogger.Component("queue_publisher").Logger, queue.WithMetrics(appMetrics))
	if err != nil {
		closeBroker()
		return fmt.Errorf("failed to initialize queue publisher: %w", err)
	}

	deps := &handler.Dependencies{
		Logger:         appLogger.Logger,
		Publisher:      publisher,
		PublishTimeout: cfg.Server.PublishTimeout,
	}

	var dbClient *postgresql.Client
	if cfg.Database.Enabled {
		dbClient, err = initPostgreSQL(&cfg.Database, appLogger.Logger)
		if err != nil {
			closeBroker()
			return fmt.Errorf("failed to initialize database: %w", err)
		}

		if err := dbClient.Migrate(ctx, storage.Schema); err != nil {
			dbClient.Close()
			closeBroker()
			return err
		}

		deps.Store = storage.NewStorage(dbClient)
		appLogger.Info("Job ledger enabled")
	} else {
		appLogger.Warn("Job ledger disabled, job status endpoints will return 503")
	}

	var healthCheck func(context.Context) error
	if dbClient != nil {
		healthCheck = dbClient.HealthCheck
	}

	r := initRouter(cfg, deps, router.Options{
		ServiceName:    cfg.App.Name,
		Metrics:        appMetrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		HealthCheck:    healthCheck,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if err := closeBroker(); err != nil {
			appLogger.Error("Failed to close broker", slog.Any("error", err))
		}
	}
	defer cleanup()

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-errChan:
		appLogger.Error("Server failed to start", slog.Any("error", err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig, service string) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
		Service:      service,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, deps *handler.Dependencies, opts router.Options) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps, opts)
}
