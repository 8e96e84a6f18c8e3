package analyses

import (
	"fmt"
	"time"

	"notes-backend/internal/llm"
)

// Status is the lifecycle state of an analysis.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// ParseStatus converts a stored status string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown analysis status %q", raw)
	}
}

// Terminal reports whether no further task writes are expected.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Analysis is a note submission and its structured summary.
type Analysis struct {
	ID          int64     `json:"id"`
	RawText     string    `json:"rawText"`
	FileKey     string    `json:"fileKey,omitempty"`
	FileName    string    `json:"fileName,omitempty"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"keyPoints"`
	MissingInfo []string  `json:"missingInfo"`
	NextActions []string  `json:"nextActions"`
	Status      Status    `json:"status"`
	Error       string    `json:"error"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Result holds the output fields written on completion.
type Result struct {
	Summary     string
	KeyPoints   []string
	MissingInfo []string
	NextActions []string
}

// Payload keys returned by the model.
const (
	keySummary     = "summary"
	keyKeyPoints   = "key_points"
	keyMissingInfo = "missing_information"
	keyNextActions = "suggested_next_actions"
)

// ResultFromPayload maps a parsed model payload to a Result, using an empty
// string or empty list for any key the model left out.
func ResultFromPayload(p llm.Payload) Result {
	summary, _ := p[keySummary].(string)
	return Result{
		Summary:     summary,
		KeyPoints:   stringList(p[keyKeyPoints]),
		MissingInfo: stringList(p[keyMissingInfo]),
		NextActions: stringList(p[keyNextActions]),
	}
}

func stringList(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (a *Analysis) applyResult(res Result) {
	a.Summary = res.Summary
	a.KeyPoints = nonNil(res.KeyPoints)
	a.MissingInfo = nonNil(res.MissingInfo)
	a.NextActions = nonNil(res.NextActions)
}

func (a *Analysis) clearOutputs() {
	a.Summary = ""
	a.KeyPoints = nil
	a.MissingInfo = nil
	a.NextActions = nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
