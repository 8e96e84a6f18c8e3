package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"notes-backend/internal/bootstrap"
	"notes-backend/internal/queue"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/metrics"
	"notes-backend/internal/shared/telemetry"
	"notes-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
	sqsAPI   queue.SQSConsumerAPI
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
	if cfg.Worker.QueueURL != "" {
		api, err := queue.NewSQSConsumerAPI(context.Background(), cfg.AWSRegion)
		if err != nil {
			telemetry.Warn("lambda_worker.visibility_disabled", map[string]any{"error": err})
			return
		}
		sqsAPI = api
	}
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		telemetry.Error("lambda_worker.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		if handleRecord(ctx, record) {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// handleRecord processes one record and reports whether it should be redelivered.
func handleRecord(ctx context.Context, record events.SQSMessage) bool {
	metrics.IncAnalysisJobsReceived()
	count, _ := strconv.Atoi(record.Attributes["ApproximateReceiveCount"])
	fields := map[string]any{"sqs_message_id": record.MessageId, "receive_count": count}

	err := workerproc.HandleMessage(ctx, app.Task, record.Body, app.Config.Worker.SoftTimeLimit)
	if err != nil {
		fields["error"] = err.Error()
	}

	d := workerproc.Decide(err, count, app.RetryPolicy)
	switch {
	case d.Action == workerproc.ActionRetry:
		telemetry.Warn("worker.analysis.retry_scheduled", fields)
		metrics.IncAnalysisJobsFailed()
		if sqsAPI != nil {
			if err := queue.ChangeVisibility(ctx, sqsAPI, app.Config.Worker.QueueURL, record.ReceiptHandle, d.Delay); err != nil {
				telemetry.Error("worker.analysis.visibility_failed", map[string]any{"sqs_message_id": record.MessageId, "error": err})
			}
		}
		metrics.IncAnalysisJobsRetried()
		return true
	case d.Reason == workerproc.ReasonRetriesExhausted:
		telemetry.Error("worker.analysis.retries_exhausted", fields)
		metrics.IncAnalysisJobsFailed()
	case d.Reason == workerproc.ReasonUnrecoverable:
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsDeletedUnrecoverable()
	default:
		telemetry.Info("worker.analysis.completed", fields)
		metrics.IncAnalysisJobsCompleted()
	}
	return false
}

func main() {
	defer telemetry.Sync()
	lambda.Start(handler)
}
