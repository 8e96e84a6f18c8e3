package llm

import (
	"context"
)

// Client abstracts LLM providers for note analysis.
type Client interface {
	CreateResponse(ctx context.Context, req Request) (*Response, error)
}

// Request is a single-turn generation request.
type Request struct {
	Model           string
	Input           string
	MaxOutputTokens int
	Temperature     *float64
}

// Response mirrors the subset of a Responses API result the extractor reads.
// All fields are optional; providers may omit any of them.
type Response struct {
	ID         string       `json:"id,omitempty"`
	Model      string       `json:"model,omitempty"`
	Status     string       `json:"status,omitempty"`
	Output     []OutputItem `json:"output,omitempty"`
	OutputText string       `json:"output_text,omitempty"`
	Usage      *Usage       `json:"usage,omitempty"`
}

// OutputItem is one element of Response.Output.
type OutputItem struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type,omitempty"`
	Role    string         `json:"role,omitempty"`
	Content []ContentEntry `json:"content,omitempty"`
}

// ContentEntry is one content part of an OutputItem. Text is nil when the
// entry carries no text attribute at all.
type ContentEntry struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text,omitempty"`
}

// Usage reports token accounting when the provider returns it.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 {
	return &v
}
