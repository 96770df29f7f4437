package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Broker drivers
const (
	DriverSQS      = "sqs"
	DriverRabbitMQ = "rabbitmq"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Broker   BrokerConfig   `yaml:"broker"`
	AWS      AWSConfig      `yaml:"aws"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`

	// FirecrawlQueueURL is the primary destination
	FirecrawlQueueURL string `yaml:"firecrawl_queue_url"`
	// CustomCrawlerQueueURL is the secondary (fallback) destination
	CustomCrawlerQueueURL string `yaml:"custom_crawler_queue_url"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the job ledger
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// BrokerConfig selects the queue transport
type BrokerConfig struct {
	Driver string `yaml:"driver"`
}

// AWSConfig holds SQS region and credentials
type AWSConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	AccessSecretKey string `yaml:"access_secret_key"`
	Endpoint        string `yaml:"endpoint"`
}

// RabbitMQConfig holds RabbitMQ connection settings
type RabbitMQConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	VHost         string        `yaml:"vhost"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file, then applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv(os.Getenv)
	config.applyDefaults()

	return &config, nil
}

// applyEnv lets credentials come from the environment (or a .env file)
// instead of the config file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("AWS_REGION"); v != "" {
		c.AWS.Region = v
	}
	if v := getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.AWS.AccessKeyID = v
	}
	if v := getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.AWS.AccessSecretKey = v
	}
	if v := getenv("FIRECRAWL_QUEUE_URL"); v != "" {
		c.FirecrawlQueueURL = v
	}
	if v := getenv("CUSTOM_CRAWLER_QUEUE_URL"); v != "" {
		c.CustomCrawlerQueueURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Broker.Driver == "" {
		c.Broker.Driver = DriverSQS
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.PublishTimeout <= 0 {
		c.Server.PublishTimeout = 10 * time.Second
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
}

// ValidateQueues checks the broker and destination settings shared by every command
func (c *Config) ValidateQueues() error {
	if c.FirecrawlQueueURL == "" {
		return fmt.Errorf("firecrawl_queue_url is required")
	}

	if c.CustomCrawlerQueueURL == "" {
		return fmt.Errorf("custom_crawler_queue_url is required")
	}

	switch c.Broker.Driver {
	case DriverSQS:
		if c.AWS.Region == "" {
			return fmt.Errorf("aws region is required")
		}
		if c.AWS.AccessKeyID != "" && c.AWS.AccessSecretKey == "" {
			return fmt.Errorf("aws access_secret_key is required when access_key_id is set")
		}
	case DriverRabbitMQ:
		if c.RabbitMQ.Host == "" {
			return fmt.Errorf("rabbitmq host is required")
		}
		if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
			return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
		}
	default:
		return fmt.Errorf("unsupported broker driver: %q", c.Broker.Driver)
	}

	return nil
}

// ValidateAPIConfig checks everything the API service needs
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.ValidateQueues(); err != nil {
		return err
	}

	if !c.Database.Enabled {
		return nil
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}
