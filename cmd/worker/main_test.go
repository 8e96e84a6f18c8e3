package main

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"notes-backend/internal/queue"
	"notes-backend/internal/workerproc"
)

type fakeSQS struct {
	deleted    []string
	visibility []int32
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.visibility = append(f.visibility, params.VisibilityTimeout)
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

type fakeProcessor struct {
	err   error
	calls []int64
}

func (f *fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID int64) error {
	f.calls = append(f.calls, analysisID)
	return f.err
}

func newConsumer(client *fakeSQS, proc workerproc.Processor) *consumer {
	return &consumer{
		client:    client,
		queueURL:  "queue",
		processor: proc,
		policy:    queue.RetryPolicy{BaseDelay: 10 * time.Second, MaxDelay: 10 * time.Minute, MaxAttempts: 4},
		softLimit: time.Second,
	}
}

func sqsMessage(t *testing.T, id int64, receiveCount int) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(queue.NewMessage(id, "req-1", time.Now()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m1"),
		ReceiptHandle: aws.String("r1"),
		Body:          aws.String(string(body)),
		Attributes:    map[string]string{"ApproximateReceiveCount": fmt.Sprint(receiveCount)},
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	newConsumer(client, proc).handleMessage(context.Background(), sqsMessage(t, 7, 1))

	if len(proc.calls) != 1 || proc.calls[0] != 7 {
		t.Fatalf("expected processor call for 7, got %v", proc.calls)
	}
	if len(client.deleted) != 1 || len(client.visibility) != 0 {
		t.Fatalf("expected delete only, got deleted=%v visibility=%v", client.deleted, client.visibility)
	}
}

func TestWorkerSchedulesRetryOnRetryableFailure(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: fmt.Errorf("%w: boom", workerproc.ErrRetryable)}

	newConsumer(client, proc).handleMessage(context.Background(), sqsMessage(t, 8, 2))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
	if len(client.visibility) != 1 || client.visibility[0] != 20 {
		t.Fatalf("expected 20s visibility change, got %v", client.visibility)
	}
}

func TestWorkerDeletesWhenRetriesExhausted(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{err: errors.New("boom")}

	newConsumer(client, proc).handleMessage(context.Background(), sqsMessage(t, 9, 4))

	if len(client.deleted) != 1 || len(client.visibility) != 0 {
		t.Fatalf("expected delete after final attempt, got deleted=%v visibility=%v", client.deleted, client.visibility)
	}
}

func TestWorkerDeletesOnInvalidJSON(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}
	msg := sqstypes.Message{
		MessageId:     aws.String("m3"),
		ReceiptHandle: aws.String("r3"),
		Body:          aws.String("{bad-json"),
	}

	newConsumer(client, proc).handleMessage(context.Background(), msg)

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete, got %d", len(client.deleted))
	}
	if len(proc.calls) != 0 {
		t.Fatalf("expected no processing")
	}
}

func TestWorkerDeletesOnMissingAnalysisID(t *testing.T) {
	client := &fakeSQS{}
	proc := &fakeProcessor{}

	newConsumer(client, proc).handleMessage(context.Background(), sqsMessage(t, 0, 1))

	if len(client.deleted) != 1 || len(proc.calls) != 0 {
		t.Fatalf("expected delete without processing, got deleted=%v calls=%v", client.deleted, proc.calls)
	}
}
