package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"notes-backend/internal/queue"
	"notes-backend/internal/shared/telemetry"
)

var (
	// ErrRetryable marks processing errors that should be redelivered.
	ErrRetryable = errors.New("retryable")
	// ErrSoftTimeLimit is the context cause set when an attempt runs out of time.
	ErrSoftTimeLimit = errors.New("soft time limit exceeded")
	// ErrNoProcessor is returned when no processor is wired.
	ErrNoProcessor = errors.New("analysis service not configured")
)

// Processor runs the analysis task for one record.
type Processor interface {
	ProcessAnalysis(ctx context.Context, analysisID int64) error
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingAnalysisID indicates a message without a usable analysis id.
type ErrMissingAnalysisID struct {
	Meta      MessageMeta
	RequestID string
}

func (e ErrMissingAnalysisID) Error() string { return "missing analysis id" }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	AnalysisID int64
	RequestID  string
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process analysis"
	}
	return "process analysis: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.AnalysisID <= 0 {
		return msg, meta, ErrMissingAnalysisID{Meta: meta, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// IsUnrecoverable reports whether err comes from a payload that can never be processed.
func IsUnrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		missing ErrMissingAnalysisID
	)
	return errors.As(err, &empty) || errors.As(err, &decode) || errors.As(err, &missing)
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// WithSoftTimeLimit bounds one attempt. When the limit passes, the context is
// cancelled with ErrSoftTimeLimit as its cause. A non-positive limit only adds
// cancellation.
func WithSoftTimeLimit(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, limit, ErrSoftTimeLimit)
}

// SoftTimeLimitExceeded reports whether ctx ended because its soft limit passed.
func SoftTimeLimitExceeded(ctx context.Context) bool {
	return ctx != nil && errors.Is(context.Cause(ctx), ErrSoftTimeLimit)
}

// HandleMessage parses, validates, and processes a message payload under the soft time limit.
func HandleMessage(ctx context.Context, processor Processor, body string, softLimit time.Duration) error {
	if processor == nil {
		return ErrNoProcessor
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return err
		}
	}

	if msg.AnalysisID <= 0 {
		return ErrMissingAnalysisID{Meta: ComputeMeta(body), RequestID: msg.RequestID}
	}

	attemptCtx, cancel := WithSoftTimeLimit(telemetry.WithRequestID(ctx, msg.RequestID), softLimit)
	defer cancel()
	if err := processor.ProcessAnalysis(attemptCtx, msg.AnalysisID); err != nil {
		return ErrProcess{AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Err: err}
	}
	return nil
}
