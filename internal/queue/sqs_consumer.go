package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// maxVisibilityTimeout is the SQS upper bound for a message visibility timeout.
const maxVisibilityTimeout = 12 * time.Hour

// SQSConsumerAPI is the subset of the SQS API used by queue consumers.
type SQSConsumerAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
}

// NewSQSConsumerAPI loads AWS config and returns an SQS client for consumers.
func NewSQSConsumerAPI(ctx context.Context, region string) (*sqs.Client, error) {
	if strings.TrimSpace(region) == "" {
		region = defaultSQSRegion
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sqs.NewFromConfig(cfg), nil
}

// ChangeVisibility hides a received message for delay, after which the broker
// redelivers it with an incremented receive count.
func ChangeVisibility(ctx context.Context, api SQSConsumerAPI, queueURL, receiptHandle string, delay time.Duration) error {
	if strings.TrimSpace(receiptHandle) == "" {
		return fmt.Errorf("missing receipt handle")
	}
	_, err := api.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(queueURL),
		ReceiptHandle:     aws.String(receiptHandle),
		VisibilityTimeout: VisibilitySeconds(delay),
	})
	if err != nil {
		return fmt.Errorf("sqs change visibility: %w", err)
	}
	return nil
}

// VisibilitySeconds converts a delay to whole seconds within the SQS limits.
func VisibilitySeconds(delay time.Duration) int32 {
	if delay <= 0 {
		return 0
	}
	if delay > maxVisibilityTimeout {
		delay = maxVisibilityTimeout
	}
	secs := int32((delay + time.Second - 1) / time.Second)
	return secs
}

// ReceiveCount parses the ApproximateReceiveCount attribute, returning 0 when absent.
func ReceiveCount(attributes map[string]string) int {
	raw := strings.TrimSpace(attributes["ApproximateReceiveCount"])
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
