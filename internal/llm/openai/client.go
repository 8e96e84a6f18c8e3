package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"notes-backend/internal/llm"
	"notes-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 300 * time.Second
	maxErrorBody   = 512
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client using the OpenAI Responses API.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. The returned client is safe for
// concurrent use and should be shared.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for OpenAI")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:   opts.APIKey,
		model:    opts.Model,
		endpoint: baseURL + "/responses",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model           string         `json:"model"`
	Input           []inputMessage `json:"input"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Temperature     *float64       `json:"temperature,omitempty"`
}

type responsesEnvelope struct {
	llm.Response
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// CreateResponse sends a single user message and returns the decoded response.
func (c *Client) CreateResponse(ctx context.Context, in llm.Request) (*llm.Response, error) {
	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = c.model
	}
	payload, err := json.Marshal(responsesRequest{
		Model:           model,
		Input:           []inputMessage{{Role: "user", Content: in.Input}},
		MaxOutputTokens: in.MaxOutputTokens,
		Temperature:     in.Temperature,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai response read: %w", err)
	}

	var parsed responsesEnvelope
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("openai http status %d: %s", resp.StatusCode, truncate(body, maxErrorBody))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("openai response parse: %w", decodeErr)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("openai error: %s (%s)", parsed.Error.Message, parsed.Error.Type)
	}

	logUsage(model, &parsed.Response, time.Since(start))
	out := parsed.Response
	return &out, nil
}

func logUsage(model string, resp *llm.Response, elapsed time.Duration) {
	fields := map[string]any{
		"model":       model,
		"response_id": resp.ID,
		"status":      resp.Status,
		"duration_ms": elapsed.Milliseconds(),
	}
	if resp.Usage != nil {
		fields["input_tokens"] = resp.Usage.InputTokens
		fields["output_tokens"] = resp.Usage.OutputTokens
		fields["total_tokens"] = resp.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func truncate(body []byte, limit int) string {
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

var _ llm.Client = (*Client)(nil)
