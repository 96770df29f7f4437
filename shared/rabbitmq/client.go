package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host          string
	Port          int
	User          string
	Password      string
	VHost         string
	RetryAttempts int
	RetryInterval time.Duration
	Heartbeat     time.Duration
}

// ErrUnroutable means the broker returned a mandatory message because no
// queue matched the routing key, i.e. the destination queue does not exist.
var ErrUnroutable = errors.New("message returned by broker: no queue bound for routing key")

// Confirmation is a pending publisher confirm
type Confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// Channel is the confirm-mode channel the client publishes on. Publish must
// set the mandatory flag so unroutable messages come back on Returns.
type Channel interface {
	Publish(ctx context.Context, queueName string, msg amqp.Publishing) (Confirmation, error)
	Returns() <-chan amqp.Return
	Close() error
}

// QueueInspector is a short-lived channel used for passive declares
type QueueInspector interface {
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Close() error
}

// Client publishes messages straight to named queues through the default
// exchange. The channel runs in confirm mode so Send only succeeds once the
// broker has taken responsibility for the message.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     Channel
	openChannel func() (QueueInspector, error)
	logger      *slog.Logger

	// guards channel; confirm-mode publishing is not safe for concurrent use
	mu          sync.Mutex
	isConnected bool
}

// amqpChannel adapts *amqp.Channel to Channel
type amqpChannel struct {
	ch      *amqp.Channel
	returns <-chan amqp.Return
}

func newAMQPChannel(ch *amqp.Channel) *amqpChannel {
	// buffered: the connection reader blocks on a full returns channel
	return &amqpChannel{
		ch:      ch,
		returns: ch.NotifyReturn(make(chan amqp.Return, 16)),
	}
}

func (a *amqpChannel) Publish(ctx context.Context, queueName string, msg amqp.Publishing) (Confirmation, error) {
	confirm, err := a.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"",        // default exchange
		queueName, // routing key
		true,      // mandatory
		false,     // immediate
		msg,
	)
	if err != nil {
		return nil, err
	}
	return confirm, nil
}

func (a *amqpChannel) Returns() <-chan amqp.Return {
	return a.returns
}

func (a *amqpChannel) Close() error {
	return a.ch.Close()
}

// NewClient creates a new RabbitMQ client
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		c.conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := c.conn.Channel()
	if err != nil {
		c.conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		c.conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	c.channel = newAMQPChannel(ch)
	c.openChannel = func() (QueueInspector, error) {
		inspector, err := c.conn.Channel()
		if err != nil {
			return nil, err
		}
		return inspector, nil
	}
	c.isConnected = true

	c.logger.Info("RabbitMQ client initialized",
		slog.String("host", c.config.Host),
		slog.String("vhost", c.config.VHost),
	)

	return nil
}

// NewWithChannel wraps an already configured channel. openChannel supplies
// channels for CheckQueue.
func NewWithChannel(channel Channel, openChannel func() (QueueInspector, error), logger *slog.Logger) *Client {
	return &Client{
		config:      &Config{},
		channel:     channel,
		openChannel: openChannel,
		logger:      logger,
		isConnected: true,
	}
}

// Send publishes body to the named queue and waits for the broker confirm.
// The returned id is the message id stamped on the publishing. A message the
// broker could not route to any queue fails with ErrUnroutable.
func (c *Client) Send(ctx context.Context, queueName, body string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected {
		return "", fmt.Errorf("not connected to RabbitMQ")
	}

	// returns left over from a publish whose confirm wait was cancelled
	c.drainReturns("")

	messageID := uuid.NewString()

	confirm, err := c.channel.Publish(ctx, queueName, amqp.Publishing{
		ContentType:  "application/json",
		Body:         []byte(body),
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to wait for publisher confirm: %w", err)
	}
	if !acked {
		return "", errors.New("message was nacked by broker")
	}

	// the broker sends basic.return before the ack, so a return for this
	// message is already buffered when the confirm resolves
	if ret, ok := c.drainReturns(messageID); ok {
		return "", fmt.Errorf("%w %q: %d %s", ErrUnroutable, queueName, ret.ReplyCode, ret.ReplyText)
	}

	c.logger.Debug("Message published to RabbitMQ",
		slog.String("queue", queueName),
		slog.String("message_id", messageID),
		slog.Int("body_size", len(body)),
	)

	return messageID, nil
}

// drainReturns empties the buffered returns and reports the one matching
// messageID, if any.
func (c *Client) drainReturns(messageID string) (amqp.Return, bool) {
	var (
		match amqp.Return
		found bool
	)
	for {
		select {
		case ret, ok := <-c.channel.Returns():
			if !ok {
				return match, found
			}
			if messageID != "" && ret.MessageId == messageID {
				match, found = ret, true
				continue
			}
			c.logger.Warn("Discarding stale returned message",
				slog.String("queue", ret.RoutingKey),
				slog.String("message_id", ret.MessageId),
			)
		default:
			return match, found
		}
	}
}

// CheckQueue passively declares the queue to verify it exists. A throwaway
// channel is used because a failed passive declare closes the channel.
func (c *Client) CheckQueue(_ context.Context, queueName string) (map[string]string, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	ch, err := c.openChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(
		queueName, // name
		false,     // durable
		false,     // auto-delete
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect queue: %w", err)
	}

	return map[string]string{
		"ApproximateNumberOfMessages": fmt.Sprint(q.Messages),
		"Consumers":                   fmt.Sprint(q.Consumers),
	}, nil
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	c.mu.Lock()
	c.isConnected = false
	c.mu.Unlock()

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return c.isConnected && c.channel != nil
	}
	return c.isConnected && !c.conn.IsClosed()
}
