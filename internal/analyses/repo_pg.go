package analyses

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis and returns it with its assigned ID and timestamps.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	const query = `
INSERT INTO analyses (raw_text, file_key, file_name, status, error)
VALUES ($1, $2, $3, $4, '')
RETURNING id, created_at, updated_at`
	if analysis.Status == "" {
		analysis.Status = StatusPending
	}
	var createdAt, updatedAt sqlTime
	err := r.DB.QueryRowContext(ctx, query,
		analysis.RawText,
		nullString(analysis.FileKey),
		nullString(analysis.FileName),
		string(analysis.Status),
	).Scan(&analysis.ID, &createdAt, &updatedAt)
	if err != nil {
		return Analysis{}, err
	}
	analysis.CreatedAt = createdAt.Time
	analysis.UpdatedAt = updatedAt.Time
	return analysis, nil
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Analysis, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// List returns analyses newest first. A non-positive limit returns every row after offset.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`
	var limitArg sql.NullInt64
	if limit > 0 {
		limitArg = sql.NullInt64{Int64: int64(limit), Valid: true}
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, limitArg, offset)
	if err != nil {
		return nil, err
	}
	return scanAnalyses(rows)
}

// Delete removes an analysis.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// MarkPending resets the record to pending.
func (r *PGRepo) MarkPending(ctx context.Context, id int64) error {
	return r.resetStatus(ctx, id, StatusPending)
}

// MarkProcessing sets processing and clears previous outputs and error.
func (r *PGRepo) MarkProcessing(ctx context.Context, id int64) error {
	return r.resetStatus(ctx, id, StatusProcessing)
}

func (r *PGRepo) resetStatus(ctx context.Context, id int64, status Status) error {
	const query = `
UPDATE analyses
SET status = $2,
    summary = '',
    key_points = NULL,
    missing_info = NULL,
    next_actions = NULL,
    error = '',
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, string(status))
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// SaveResult stores outputs and sets completed.
func (r *PGRepo) SaveResult(ctx context.Context, id int64, res Result) error {
	const query = `
UPDATE analyses
SET status = 'completed',
    summary = $2,
    key_points = $3::jsonb,
    missing_info = $4::jsonb,
    next_actions = $5::jsonb,
    error = '',
    updated_at = now()
WHERE id = $1`
	keyPoints, missingInfo, nextActions, err := encodeResultLists(res)
	if err != nil {
		return err
	}
	out, err := r.DB.ExecContext(ctx, query, id, res.Summary, keyPoints, missingInfo, nextActions)
	if err != nil {
		return err
	}
	return checkAffected(out)
}

// MarkFailed sets failed with the given message and clears outputs.
func (r *PGRepo) MarkFailed(ctx context.Context, id int64, msg string) error {
	const query = `
UPDATE analyses
SET status = 'failed',
    summary = '',
    key_points = NULL,
    missing_info = NULL,
    next_actions = NULL,
    error = $2,
    updated_at = now()
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, id, msg)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

func encodeResultLists(res Result) (keyPoints, missingInfo, nextActions string, err error) {
	if keyPoints, err = encodeList(res.KeyPoints); err != nil {
		return
	}
	if missingInfo, err = encodeList(res.MissingInfo); err != nil {
		return
	}
	nextActions, err = encodeList(res.NextActions)
	return
}
