// Command queue-check verifies that the Firecrawl and custom crawler queues
// are reachable with the configured broker and credentials.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/company-ingest/internal/config"
	"github.com/cuongbtq/company-ingest/internal/transport"
	"github.com/cuongbtq/company-ingest/shared/logger"
	"github.com/cuongbtq/company-ingest/shared/sqs"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	timeout := flag.Duration("timeout", 15*time.Second, "Overall timeout for the checks")
	listQueues := flag.Bool("list", false, "List all queues visible to the credentials (SQS only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateQueues(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger := logger.NewDefault()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	broker, closeBroker, err := transport.New(ctx, cfg, appLogger.Logger)
	if err != nil {
		return err
	}
	defer closeBroker()

	if err := checkQueues(ctx, broker, cfg, appLogger.Logger); err != nil {
		return err
	}

	if *listQueues {
		client, ok := broker.(*sqs.Client)
		if !ok {
			return fmt.Errorf("queue listing is only supported for the %s driver", config.DriverSQS)
		}
		urls, err := client.ListQueues(ctx)
		if err != nil {
			return err
		}
		for _, url := range urls {
			appLogger.Info("Queue", slog.String("queue_url", url))
		}
	}

	return nil
}

// checkQueues checks both destinations and reports every failure, not just the first
func checkQueues(ctx context.Context, broker transport.Broker, cfg *config.Config, logger *slog.Logger) error {
	targets := []struct {
		name string
		url  string
	}{
		{name: "primary", url: cfg.FirecrawlQueueURL},
		{name: "secondary", url: cfg.CustomCrawlerQueueURL},
	}

	failed := 0
	for _, target := range targets {
		attrs, err := broker.CheckQueue(ctx, target.url)
		if err != nil {
			failed++
			logger.Error("Queue check failed",
				slog.String("queue", target.name),
				slog.String("queue_url", target.url),
				slog.String("error", err.Error()),
			)
			continue
		}

		logger.Info("Queue reachable",
			slog.String("queue", target.name),
			slog.String("queue_url", target.url),
			slog.Int("attributes", len(attrs)),
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d queue checks failed", failed, len(targets))
	}
	return nil
}
