package analyses

import (
	"errors"

	"notes-backend/internal/workerproc"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrEmptyInput      = errors.New("raw text is required")
	ErrQueueRequired   = errors.New("job queue not configured")
	ErrMissingLLM      = errors.New("llm client not configured")
	ErrMissingStore    = errors.New("object store not configured")
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")

	// ErrRetryable marks task errors that the queue should redeliver.
	ErrRetryable = workerproc.ErrRetryable
)

// Persisted failure messages for terminal outcomes.
const (
	MessageInvalidJSON   = "Invalid JSON returned from AI"
	MessageSoftTimeLimit = "Analysis timed out: the notes may be too long or complex. Try shortening them and resubmitting."
)
