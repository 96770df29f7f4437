package transport

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cuongbtq/company-ingest/internal/config"
	"github.com/cuongbtq/company-ingest/shared/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_SQS(t *testing.T) {
	cfg := &config.Config{
		Broker: config.BrokerConfig{Driver: config.DriverSQS},
		AWS: config.AWSConfig{
			Region:          "us-east-1",
			AccessKeyID:     "AKIAEXAMPLE",
			AccessSecretKey: "secret",
			Endpoint:        "http://localhost:4566",
		},
	}

	broker, closeFn, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.IsType(t, &sqs.Client{}, broker)
	assert.NoError(t, closeFn())
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *config.Config
		errString string
	}{
		{
			name:      "unsupported driver",
			cfg:       &config.Config{Broker: config.BrokerConfig{Driver: "kafka"}},
			errString: "unsupported broker driver",
		},
		{
			name:      "sqs without region",
			cfg:       &config.Config{Broker: config.BrokerConfig{Driver: config.DriverSQS}},
			errString: "failed to initialize SQS",
		},
		{
			name: "rabbitmq unreachable",
			cfg: &config.Config{
				Broker:   config.BrokerConfig{Driver: config.DriverRabbitMQ},
				RabbitMQ: config.RabbitMQConfig{Host: "127.0.0.1", Port: 1, RetryAttempts: 1},
			},
			errString: "failed to initialize RabbitMQ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broker, closeFn, err := New(context.Background(), tt.cfg, discardLogger())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Nil(t, broker)
			assert.Nil(t, closeFn)
		})
	}
}
