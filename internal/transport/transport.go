package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/company-ingest/internal/config"
	"github.com/cuongbtq/company-ingest/internal/queue"
	"github.com/cuongbtq/company-ingest/shared/rabbitmq"
	"github.com/cuongbtq/company-ingest/shared/sqs"
)

// Broker is a queue transport that can also verify a destination exists
type Broker interface {
	queue.Broker
	CheckQueue(ctx context.Context, destination string) (map[string]string, error)
}

// New builds the broker selected by cfg.Broker.Driver. The returned close
// function releases its connections and is never nil.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Broker, func() error, error) {
	switch cfg.Broker.Driver {
	case config.DriverSQS, "":
		client, err := sqs.NewClient(ctx, &sqs.Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.AccessSecretKey,
			Endpoint:        cfg.AWS.Endpoint,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize SQS: %w", err)
		}
		return client, func() error { return nil }, nil

	case config.DriverRabbitMQ:
		client, err := rabbitmq.NewClient(&rabbitmq.Config{
			Host:          cfg.RabbitMQ.Host,
			Port:          cfg.RabbitMQ.Port,
			User:          cfg.RabbitMQ.User,
			Password:      cfg.RabbitMQ.Password,
			VHost:         cfg.RabbitMQ.VHost,
			RetryAttempts: cfg.RabbitMQ.RetryAttempts,
			RetryInterval: cfg.RabbitMQ.RetryInterval,
			Heartbeat:     cfg.RabbitMQ.Heartbeat,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		return client, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported broker driver: %q", cfg.Broker.Driver)
	}
}
