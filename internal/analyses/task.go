package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"notes-backend/internal/llm"
	"notes-backend/internal/shared/metrics"
	"notes-backend/internal/shared/telemetry"
	"notes-backend/internal/workerproc"
)

const (
	defaultPersistTimeout = 10 * time.Second
	maxErrorLen           = 500
)

// Task runs one analysis attempt for a stored record. It is safe for
// concurrent use; all state lives in the record.
type Task struct {
	Repo            Repo
	LLM             llm.Client
	Model           string
	MaxOutputTokens int
	Temperature     *float64
	// PersistTimeout bounds the terminal write, which runs detached from the
	// attempt context.
	PersistTimeout time.Duration
}

// ProcessAnalysis loads the record, calls the model and writes the outcome.
// A nil return means the attempt reached a final state. A returned error wraps
// ErrRetryable and the record has already been marked failed.
func (t *Task) ProcessAnalysis(ctx context.Context, analysisID int64) error {
	if t.Repo == nil {
		return fmt.Errorf("%w: analysis repo not configured", ErrRetryable)
	}

	analysis, err := t.Repo.GetByID(ctx, analysisID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			telemetry.Warn("analysis.not_found", map[string]any{
				"request_id":  telemetry.RequestIDFromContext(ctx),
				"analysis_id": analysisID,
			})
			return nil
		}
		return fmt.Errorf("%w: load analysis %d: %w", ErrRetryable, analysisID, err)
	}

	startedAt := time.Now()
	if err := t.Repo.MarkProcessing(ctx, analysisID); err != nil {
		return t.fail(ctx, analysis, fmt.Errorf("set processing: %w", err), startedAt)
	}
	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusProcessing,
		"status_transition": string(analysis.Status) + "->" + string(StatusProcessing),
	})

	res, err := t.run(ctx, analysis)
	if err != nil {
		return t.fail(ctx, analysis, err, startedAt)
	}

	writeCtx, cancel := t.persistContext(ctx)
	defer cancel()
	if err := t.Repo.SaveResult(writeCtx, analysisID, res); err != nil {
		return t.fail(ctx, analysis, fmt.Errorf("save result: %w", err), startedAt)
	}

	elapsed := time.Since(startedAt)
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDuration(elapsed)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"analysis_id":       analysisID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       elapsed.Milliseconds(),
	})
	return nil
}

func (t *Task) run(ctx context.Context, analysis Analysis) (Result, error) {
	if t.LLM == nil {
		return Result{}, ErrMissingLLM
	}

	resp, err := t.LLM.CreateResponse(ctx, llm.Request{
		Model:           t.Model,
		Input:           llm.RenderPrompt(analysis.RawText),
		MaxOutputTokens: t.MaxOutputTokens,
		Temperature:     t.Temperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("llm call: %w", err)
	}

	text, err := llm.ExtractText(resp)
	if err != nil {
		return Result{}, err
	}
	payload, err := llm.ParseContent(text)
	if err != nil {
		return Result{}, err
	}
	if err := llm.ValidatePayload(payload); err != nil {
		return Result{}, err
	}
	return ResultFromPayload(payload), nil
}

// fail persists the failed state and returns what the queue should see.
func (t *Task) fail(ctx context.Context, analysis Analysis, cause error, startedAt time.Time) error {
	msg, retryable := classifyFailure(ctx, cause)

	writeCtx, cancel := t.persistContext(ctx)
	defer cancel()
	if err := t.Repo.MarkFailed(writeCtx, analysis.ID, msg); err != nil {
		telemetry.Error("analysis.persist_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": analysis.ID,
			"error":       err,
			"cause":       sanitizeError(cause),
		})
	}

	elapsed := time.Since(startedAt)
	metrics.IncAnalysisFailed(retryable)
	metrics.ObserveAnalysisDuration(elapsed)
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        telemetry.RequestIDFromContext(ctx),
		"analysis_id":       analysis.ID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"retryable":         retryable,
		"error":             msg,
		"duration_ms":       elapsed.Milliseconds(),
	})

	if !retryable {
		return nil
	}
	return fmt.Errorf("%w: analysis %d: %w", ErrRetryable, analysis.ID, cause)
}

// persistContext detaches from ctx so that an expired attempt can still record its outcome.
func (t *Task) persistContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := t.PersistTimeout
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return context.WithTimeout(telemetry.DetachedWithRequestID(ctx), timeout)
}

// classifyFailure maps a failed attempt to the persisted message and whether
// the queue should redeliver it. The soft limit is checked first because an
// expired context surfaces as an ordinary client error.
func classifyFailure(ctx context.Context, err error) (string, bool) {
	switch {
	case workerproc.SoftTimeLimitExceeded(ctx), errors.Is(err, workerproc.ErrSoftTimeLimit):
		return MessageSoftTimeLimit, false
	case errors.Is(err, llm.ErrMalformedContent), errors.Is(err, llm.ErrSchemaMismatch):
		return MessageInvalidJSON, false
	default:
		return sanitizeError(err), true
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	if len(msg) > maxErrorLen {
		cut := maxErrorLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut]
	}
	return msg
}
