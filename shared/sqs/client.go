package sqs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/aws/smithy-go"
)

// Config holds SQS connection configuration
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the service endpoint (e.g. LocalStack)
	Endpoint string
}

// API is the subset of the SQS client used here
type API interface {
	SendMessage(ctx context.Context, params *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
	GetQueueAttributes(ctx context.Context, params *awssqs.GetQueueAttributesInput, optFns ...func(*awssqs.Options)) (*awssqs.GetQueueAttributesOutput, error)
	ListQueues(ctx context.Context, params *awssqs.ListQueuesInput, optFns ...func(*awssqs.Options)) (*awssqs.ListQueuesOutput, error)
}

// Client represents an SQS client
type Client struct {
	api    API
	logger *slog.Logger
}

// NewClient creates a new SQS client. Static credentials are used when an
// access key id is configured, otherwise the default AWS credential chain applies.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	if config.Region == "" {
		return nil, fmt.Errorf("aws region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := awssqs.NewFromConfig(awsCfg, func(o *awssqs.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
		}
	})

	logger.Info("SQS client initialized",
		slog.String("region", config.Region),
		slog.String("endpoint", config.Endpoint),
		slog.Bool("static_credentials", config.AccessKeyID != ""),
	)

	return NewWithAPI(api, logger), nil
}

// NewWithAPI wraps an existing SQS API implementation
func NewWithAPI(api API, logger *slog.Logger) *Client {
	return &Client{
		api:    api,
		logger: logger,
	}
}

// Send submits body to the queue at queueURL and returns the message id
func (c *Client) Send(ctx context.Context, queueURL, body string) (string, error) {
	out, err := c.api.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		c.logger.Debug("SQS SendMessage failed",
			slog.String("queue_url", queueURL),
			slog.String("error_code", ErrorCode(err)),
		)
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	messageID := aws.ToString(out.MessageId)
	if messageID == "" {
		return "", fmt.Errorf("failed to send message: empty message id in response")
	}

	c.logger.Debug("Message sent to SQS",
		slog.String("queue_url", queueURL),
		slog.String("message_id", messageID),
		slog.Int("body_size", len(body)),
	)

	return messageID, nil
}

// CheckQueue verifies the queue exists and is accessible, returning its attributes
func (c *Client) CheckQueue(ctx context.Context, queueURL string) (map[string]string, error) {
	out, err := c.api.GetQueueAttributes(ctx, &awssqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameAll},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue attributes: %w", err)
	}

	return out.Attributes, nil
}

// ListQueues returns every queue URL visible to the credentials
func (c *Client) ListQueues(ctx context.Context) ([]string, error) {
	var urls []string

	paginator := awssqs.NewListQueuesPaginator(c.api, &awssqs.ListQueuesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list queues: %w", err)
		}
		urls = append(urls, page.QueueUrls...)
	}

	return urls, nil
}

// ErrorCode extracts the AWS API error code from err, or "" if there is none
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
