package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"notes-backend/internal/bootstrap"
	"notes-backend/internal/queue"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/metrics"
	"notes-backend/internal/shared/telemetry"
	"notes-backend/internal/workerproc"
)

func main() {
	cfg := config.Load()

	if cfg.Worker.QueueURL == "" {
		log.Fatal("RA_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := queue.NewSQSConsumerAPI(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("sqs client: %v", err)
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	c := &consumer{
		client:    api,
		queueURL:  cfg.Worker.QueueURL,
		processor: app.Task,
		policy:    app.RetryPolicy,
		softLimit: cfg.Worker.SoftTimeLimit,
	}

	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	// In-flight jobs outlive the signal so records are not left processing.
	jobCtx := context.WithoutCancel(ctx)

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          cfg.Worker.QueueURL,
		"concurrency":        concurrency,
		"visibility_seconds": queue.VisibilitySeconds(cfg.Worker.VisibilityTimeout),
		"soft_limit_seconds": int(cfg.Worker.SoftTimeLimit / time.Second),
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := api.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(cfg.Worker.QueueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   queue.VisibilitySeconds(cfg.Worker.VisibilityTimeout),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncAnalysisJobsReceived()
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				c.handleMessage(jobCtx, m)
			}(msg)
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout_seconds": int(cfg.Worker.ShutdownTimeout / time.Second)})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(cfg.Worker.ShutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", nil)
	}
}

// consumer applies the retry policy to messages received from SQS.
type consumer struct {
	client    queue.SQSConsumerAPI
	queueURL  string
	processor workerproc.Processor
	policy    queue.RetryPolicy
	softLimit time.Duration
}

func (c *consumer) handleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	count := queue.ReceiveCount(msg.Attributes)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, 0, "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		var missing workerproc.ErrMissingAnalysisID
		if errors.As(err, &missing) && missing.RequestID != "" {
			fields["request_id"] = missing.RequestID
		}
		telemetry.Error("worker.analysis.decode_failed", fields)
		if c.deleteMessage(ctx, msg, fields) {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
		return
	}

	fields := baseFields(msg, decoded.AnalysisID, decoded.RequestID)
	telemetry.Info("worker.analysis.received", fields)

	err = workerproc.HandleMessage(workerproc.WithParsedMessage(ctx, decoded), c.processor, body, c.softLimit)
	if err != nil {
		fields["error"] = err.Error()
	}

	d := workerproc.Decide(err, count, c.policy)
	switch {
	case d.Action == workerproc.ActionRetry:
		fields["delay_seconds"] = queue.VisibilitySeconds(d.Delay)
		telemetry.Warn("worker.analysis.retry_scheduled", fields)
		metrics.IncAnalysisJobsFailed()
		if err := queue.ChangeVisibility(ctx, c.client, c.queueURL, aws.ToString(msg.ReceiptHandle), d.Delay); err != nil {
			fields["error"] = err.Error()
			telemetry.Error("worker.analysis.visibility_failed", fields)
			return
		}
		metrics.IncAnalysisJobsRetried()
	case d.Reason == workerproc.ReasonRetriesExhausted:
		telemetry.Error("worker.analysis.retries_exhausted", fields)
		metrics.IncAnalysisJobsFailed()
		c.deleteMessage(ctx, msg, fields)
	case d.Reason == workerproc.ReasonUnrecoverable:
		telemetry.Error("worker.analysis.failed", fields)
		if c.deleteMessage(ctx, msg, fields) {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
	default:
		if c.deleteMessage(ctx, msg, fields) {
			telemetry.Info("worker.analysis.completed", fields)
			metrics.IncAnalysisJobsCompleted()
		}
	}
}

func (c *consumer) deleteMessage(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.analysis.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.analysis.delete_failed", withError(fields, err.Error()))
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, analysisID int64, requestID string) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  queue.ReceiveCount(msg.Attributes),
	}
	if analysisID > 0 {
		fields["analysis_id"] = analysisID
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = msg
	return out
}
