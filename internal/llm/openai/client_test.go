package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"notes-backend/internal/llm"
)

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Options{Model: "gpt-5-nano"}); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected missing model error")
	}
}

func TestCreateResponseSendsResponsesRequest(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"status": "completed",
			"output": [
				{"type": "reasoning", "summary": []},
				{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "{\"summary\":\"ok\"}"}]}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "test-key", Model: "gpt-5-nano", BaseURL: server.URL + "/v1/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.CreateResponse(context.Background(), llm.Request{
		Input:           "notes",
		MaxOutputTokens: 400,
		Temperature:     llm.Float64(0.2),
	})
	if err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}

	if got["model"] != "gpt-5-nano" {
		t.Fatalf("expected default model, got %v", got["model"])
	}
	if got["max_output_tokens"] != float64(400) {
		t.Fatalf("expected max_output_tokens 400, got %v", got["max_output_tokens"])
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("expected temperature 0.2, got %v", got["temperature"])
	}
	input, ok := got["input"].([]any)
	if !ok || len(input) != 1 {
		t.Fatalf("expected single input message, got %v", got["input"])
	}
	msg := input[0].(map[string]any)
	if msg["role"] != "user" || msg["content"] != "notes" {
		t.Fatalf("unexpected input message %v", msg)
	}

	if len(resp.Output) != 2 {
		t.Fatalf("expected 2 output items, got %d", len(resp.Output))
	}
	text, err := llm.ExtractText(resp)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if text != `{"summary":"ok"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Fatalf("expected usage to be decoded")
	}
}

func TestCreateResponseOmitsUnsetTemperature(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"output":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "k", Model: "gpt-5-nano", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.CreateResponse(context.Background(), llm.Request{Model: "gpt-4o-mini", Input: "x"}); err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}
	if _, ok := got["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted")
	}
	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("expected request model override, got %v", got["model"])
	}
}

func TestCreateResponseHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	_, err := client.CreateResponse(context.Background(), llm.Request{Input: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "openai http status 429: Rate limit reached") {
		t.Fatalf("unexpected error %q", err.Error())
	}
}

func TestCreateResponseNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	_, err := client.CreateResponse(context.Background(), llm.Request{Input: "x"})
	if err == nil || !strings.Contains(err.Error(), "openai http status 502: upstream unavailable") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestCreateResponseTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"output":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(Options{APIKey: "k", Model: "m", BaseURL: server.URL, Timeout: 20 * time.Millisecond})
	_, err := client.CreateResponse(context.Background(), llm.Request{Input: "x"})
	if err == nil || !strings.Contains(err.Error(), "openai request timeout") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}
