package analyses

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteRepo implements Repo on a local SQLite database.
type SQLiteRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r *SQLiteRepo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

// Create inserts a new analysis and returns it with its assigned ID.
func (r *SQLiteRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	const query = `
INSERT INTO analyses (raw_text, file_key, file_name, status, error, created_at, updated_at)
VALUES (?, ?, ?, ?, '', ?, ?)`
	if analysis.Status == "" {
		analysis.Status = StatusPending
	}
	now := r.now()
	res, err := r.DB.ExecContext(ctx, query,
		analysis.RawText,
		nullString(analysis.FileKey),
		nullString(analysis.FileName),
		string(analysis.Status),
		now,
		now,
	)
	if err != nil {
		return Analysis{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Analysis{}, err
	}
	analysis.ID = id
	analysis.CreatedAt = now
	analysis.UpdatedAt = now
	return analysis, nil
}

// GetByID returns an analysis by ID.
func (r *SQLiteRepo) GetByID(ctx context.Context, id int64) (Analysis, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses WHERE id = ?`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// List returns analyses newest first. A non-positive limit returns every row after offset.
func (r *SQLiteRepo) List(ctx context.Context, limit, offset int) ([]Analysis, error) {
	query := `SELECT ` + selectColumns + ` FROM analyses ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return scanAnalyses(rows)
}

// Delete removes an analysis.
func (r *SQLiteRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// MarkPending resets the record to pending.
func (r *SQLiteRepo) MarkPending(ctx context.Context, id int64) error {
	return r.resetStatus(ctx, id, StatusPending)
}

// MarkProcessing sets processing and clears previous outputs and error.
func (r *SQLiteRepo) MarkProcessing(ctx context.Context, id int64) error {
	return r.resetStatus(ctx, id, StatusProcessing)
}

func (r *SQLiteRepo) resetStatus(ctx context.Context, id int64, status Status) error {
	const query = `
UPDATE analyses
SET status = ?, summary = '', key_points = NULL, missing_info = NULL, next_actions = NULL, error = '', updated_at = ?
WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, string(status), r.now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}

// SaveResult stores outputs and sets completed.
func (r *SQLiteRepo) SaveResult(ctx context.Context, id int64, res Result) error {
	const query = `
UPDATE analyses
SET status = 'completed', summary = ?, key_points = ?, missing_info = ?, next_actions = ?, error = '', updated_at = ?
WHERE id = ?`
	keyPoints, missingInfo, nextActions, err := encodeResultLists(res)
	if err != nil {
		return err
	}
	out, err := r.DB.ExecContext(ctx, query, res.Summary, keyPoints, missingInfo, nextActions, r.now(), id)
	if err != nil {
		return err
	}
	return checkAffected(out)
}

// MarkFailed sets failed with the given message and clears outputs.
func (r *SQLiteRepo) MarkFailed(ctx context.Context, id int64, msg string) error {
	const query = `
UPDATE analyses
SET status = 'failed', summary = '', key_points = NULL, missing_info = NULL, next_actions = NULL, error = ?, updated_at = ?
WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query, msg, r.now(), id)
	if err != nil {
		return err
	}
	return checkAffected(res)
}
