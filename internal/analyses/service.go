package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"notes-backend/internal/extract"
	"notes-backend/internal/queue"
	"notes-backend/internal/shared/storage/object"
	"notes-backend/internal/shared/telemetry"
	"notes-backend/internal/workerproc"
)

const (
	// DefaultMaxUploadBytes caps uploaded note files.
	DefaultMaxUploadBytes int64 = 10 << 20
	uploadNamespace             = "uploads"

	defaultListLimit = 20
	maxListLimit     = 100
)

// Service contains business logic for analyses.
type Service struct {
	Repo  Repo
	Queue queue.Client
	// Processor runs analyses in-process when no Queue is configured.
	Processor      workerproc.Processor
	Store          object.ObjectStore
	SoftTimeLimit  time.Duration
	MaxUploadBytes int64
	Now            func() time.Time
}

// CreateFromText stores a pending analysis for rawText and dispatches it.
func (s *Service) CreateFromText(ctx context.Context, rawText string) (Analysis, error) {
	if strings.TrimSpace(rawText) == "" {
		return Analysis{}, ErrEmptyInput
	}
	return s.create(ctx, Analysis{RawText: rawText})
}

// CreateFromUpload extracts text from an uploaded file, keeps the file in the
// object store and dispatches the analysis.
func (s *Service) CreateFromUpload(ctx context.Context, fileName, mimeType string, r io.Reader) (Analysis, error) {
	if s.Store == nil {
		return Analysis{}, ErrMissingStore
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Analysis{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return Analysis{}, ErrFileTooLarge
	}

	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, fileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedType) {
			return Analysis{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, extract.DetectMimeType(data, mimeType, fileName))
		}
		return Analysis{}, fmt.Errorf("extract %s: %w", fileName, err)
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, ErrEmptyInput
	}

	saved, err := s.Store.Save(ctx, uploadNamespace, fileName, bytes.NewReader(data))
	if err != nil {
		return Analysis{}, fmt.Errorf("store upload: %w", err)
	}

	analysis, err := s.create(ctx, Analysis{RawText: text, FileKey: saved.Key, FileName: fileName})
	if err != nil && analysis.ID == 0 {
		s.removeFile(ctx, saved.Key)
	}
	return analysis, err
}

func (s *Service) create(ctx context.Context, analysis Analysis) (Analysis, error) {
	analysis.Status = StatusPending
	created, err := s.Repo.Create(ctx, analysis)
	if err != nil {
		return Analysis{}, err
	}
	telemetry.Info("analysis.created", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"analysis_id": created.ID,
		"file_key":    created.FileKey,
		"text_len":    len(created.RawText),
	})

	if err := s.Enqueue(ctx, created.ID); err != nil {
		if latest, getErr := s.Repo.GetByID(ctx, created.ID); getErr == nil {
			created = latest
		}
		return created, err
	}
	return created, nil
}

// Get returns an analysis by ID.
func (s *Service) Get(ctx context.Context, id int64) (Analysis, error) {
	if id <= 0 {
		return Analysis{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns analyses ordered newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

// Delete removes an analysis and its uploaded file.
func (s *Service) Delete(ctx context.Context, id int64) error {
	analysis, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if analysis.FileKey != "" {
		s.removeFile(ctx, analysis.FileKey)
	}
	return nil
}

// Retry resets an existing analysis to pending and dispatches it again.
// Completed records are re-run like any other.
func (s *Service) Retry(ctx context.Context, id int64) (Analysis, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return Analysis{}, err
	}
	if err := s.Repo.MarkPending(ctx, id); err != nil {
		return Analysis{}, err
	}
	enqueueErr := s.Enqueue(ctx, id)
	analysis, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	return analysis, enqueueErr
}

// Enqueue dispatches an analysis job. Without a Queue the job runs on a
// background goroutine under the soft time limit.
func (s *Service) Enqueue(ctx context.Context, id int64) error {
	requestID := telemetry.RequestIDFromContext(ctx)
	if s.Queue == nil {
		if s.Processor == nil {
			return ErrQueueRequired
		}
		go s.completeAsync(telemetry.DetachedWithRequestID(ctx), id)
		return nil
	}

	msg := queue.NewMessage(id, requestID, s.now())
	if err := s.Queue.Send(ctx, msg); err != nil {
		telemetry.Error("analysis.enqueue_failed", map[string]any{
			"request_id":  requestID,
			"analysis_id": id,
			"error":       err,
		})
		failErr := fmt.Errorf("enqueue analysis: %w", err)
		if markErr := s.Repo.MarkFailed(telemetry.DetachedWithRequestID(ctx), id, sanitizeError(failErr)); markErr != nil {
			telemetry.Error("analysis.persist_failed", map[string]any{
				"request_id":  requestID,
				"analysis_id": id,
				"error":       markErr,
			})
		}
		return failErr
	}
	telemetry.Info("analysis.enqueued", map[string]any{
		"request_id":  requestID,
		"analysis_id": id,
	})
	return nil
}

func (s *Service) completeAsync(ctx context.Context, id int64) {
	defer func() {
		if r := recover(); r != nil {
			msg := sanitizeError(fmt.Errorf("panic: %v", r))
			telemetry.Error("analysis.panic", map[string]any{
				"request_id":  telemetry.RequestIDFromContext(ctx),
				"analysis_id": id,
				"error":       msg,
			})
			if markErr := s.Repo.MarkFailed(telemetry.DetachedWithRequestID(ctx), id, msg); markErr != nil {
				telemetry.Error("analysis.persist_failed", map[string]any{
					"request_id":  telemetry.RequestIDFromContext(ctx),
					"analysis_id": id,
					"error":       markErr,
				})
			}
		}
	}()

	attemptCtx, cancel := workerproc.WithSoftTimeLimit(ctx, s.SoftTimeLimit)
	defer cancel()
	if err := s.Processor.ProcessAnalysis(attemptCtx, id); err != nil {
		telemetry.Warn("analysis.async_failed", map[string]any{
			"request_id":  telemetry.RequestIDFromContext(ctx),
			"analysis_id": id,
			"error":       err,
		})
	}
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if s.Store == nil || key == "" {
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Warn("analysis.file_delete_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"file_key":   key,
			"error":      err,
		})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
