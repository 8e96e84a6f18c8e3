package analyses

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const selectColumns = `id, raw_text, file_key, file_name, summary, key_points, missing_info, next_actions, status, error, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a           Analysis
		fileKey     sql.NullString
		fileName    sql.NullString
		keyPoints   sql.NullString
		missingInfo sql.NullString
		nextActions sql.NullString
		status      string
		createdAt   sqlTime
		updatedAt   sqlTime
	)
	if err := row.Scan(
		&a.ID,
		&a.RawText,
		&fileKey,
		&fileName,
		&a.Summary,
		&keyPoints,
		&missingInfo,
		&nextActions,
		&status,
		&a.Error,
		&createdAt,
		&updatedAt,
	); err != nil {
		return Analysis{}, err
	}
	parsed, err := ParseStatus(status)
	if err != nil {
		return Analysis{}, err
	}
	a.Status = parsed
	a.FileKey = fileKey.String
	a.FileName = fileName.String
	if a.KeyPoints, err = decodeList(keyPoints); err != nil {
		return Analysis{}, fmt.Errorf("decode key_points: %w", err)
	}
	if a.MissingInfo, err = decodeList(missingInfo); err != nil {
		return Analysis{}, fmt.Errorf("decode missing_info: %w", err)
	}
	if a.NextActions, err = decodeList(nextActions); err != nil {
		return Analysis{}, fmt.Errorf("decode next_actions: %w", err)
	}
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	return a, nil
}

func scanAnalyses(rows *sql.Rows) ([]Analysis, error) {
	defer rows.Close()
	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	payload, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func decodeList(raw sql.NullString) ([]string, error) {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlTime scans timestamps returned either as time.Time or as text.
type sqlTime struct {
	Time time.Time
}

var sqlTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
		return nil
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqlTime) parse(raw string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}
