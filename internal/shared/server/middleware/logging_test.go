package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"notes-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	restore := telemetry.SetLogger(zap.New(core))
	defer restore()

	var seenRequestID string
	router := gin.New()
	router.Use(RequestID(), Logging())
	router.GET("/api/v1/analyses/:id", func(c *gin.Context) {
		seenRequestID = telemetry.RequestIDFromContext(c.Request.Context())
		c.Set("analysisId", int64(7))
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/7", nil)
	req.Header.Set("X-Request-Id", "req-abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Header().Get("X-Request-Id") != "req-abc" {
		t.Fatalf("expected request id echoed in header")
	}
	if seenRequestID != "req-abc" {
		t.Fatalf("expected request id on request context, got %q", seenRequestID)
	}

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	for _, key := range []string{"request_id", "analysis_id", "duration_ms", "status", "route"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if fields["request_id"] != "req-abc" {
		t.Fatalf("unexpected request_id: %v", fields["request_id"])
	}
	if fields["analysis_id"] != int64(7) {
		t.Fatalf("unexpected analysis_id: %v", fields["analysis_id"])
	}
	if fields["route"] != "/api/v1/analyses/:id" {
		t.Fatalf("unexpected route: %v", fields["route"])
	}
}

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
	if len(resp.Header().Get("X-Request-Id")) != 36 {
		t.Fatalf("expected generated uuid request id, got %q", resp.Header().Get("X-Request-Id"))
	}
}
