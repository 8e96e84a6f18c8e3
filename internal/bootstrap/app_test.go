package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notes-backend/internal/analyses"
	"notes-backend/internal/shared/config"
)

func devConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:                "dev",
		DBDriver:           "postgres",
		ObjectStoreType:    "local",
		LocalStoreDir:      t.TempDir(),
		LLMProvider:        "openai",
		LLMModel:           "gpt-test",
		LLMMaxOutputTokens: 400,
		Worker: config.WorkerConfig{
			SoftTimeLimit:    time.Second,
			RetryBaseDelay:   10 * time.Second,
			RetryMaxDelay:    time.Minute,
			RetryMaxAttempts: 4,
		},
	}
}

func TestBuildDevFallsBackToMemory(t *testing.T) {
	app, err := Build(devConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.DB != nil {
		t.Fatalf("expected no database")
	}
	if _, ok := app.Repo.(*analyses.MemoryRepo); !ok {
		t.Fatalf("expected memory repo, got %T", app.Repo)
	}
	if app.Queue != nil {
		t.Fatalf("expected no queue without RA_SQS_QUEUE_URL")
	}
	if _, ok := app.LLM.(unconfiguredLLM); !ok {
		t.Fatalf("expected unconfigured llm without api key, got %T", app.LLM)
	}
	if app.RetryPolicy.MaxAttempts != 4 {
		t.Fatalf("unexpected retry policy %#v", app.RetryPolicy)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestBuildProductionRequiresDatabase(t *testing.T) {
	cfg := devConfig(t)
	cfg.Env = "production"
	if _, err := Build(cfg); err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected DATABASE_URL error, got %v", err)
	}
}

func TestBuildSQLiteRunsMigrations(t *testing.T) {
	cfg := devConfig(t)
	cfg.DBDriver = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "notes.db")

	app, err := Build(cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.DB.Close()

	if _, ok := app.Repo.(*analyses.SQLiteRepo); !ok {
		t.Fatalf("expected sqlite repo, got %T", app.Repo)
	}
	created, err := app.Repo.Create(context.Background(), analyses.Analysis{RawText: "notes", Status: analyses.StatusPending})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected id assigned")
	}
}

func TestUnconfiguredLLMFailsTaskAsRetryable(t *testing.T) {
	app, err := Build(devConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, err := app.Repo.Create(context.Background(), analyses.Analysis{RawText: "notes", Status: analyses.StatusPending})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := app.Task.ProcessAnalysis(context.Background(), a.ID); err == nil {
		t.Fatalf("expected retryable error")
	}
	got, _ := app.Repo.GetByID(context.Background(), a.ID)
	if got.Status != analyses.StatusFailed || !strings.Contains(got.Error, "llm client not configured") {
		t.Fatalf("unexpected record %#v", got)
	}
}

func TestBuildRejectsUnknownProvider(t *testing.T) {
	cfg := devConfig(t)
	cfg.LLMProvider = "mystery"
	if _, err := Build(cfg); err == nil {
		t.Fatalf("expected provider error")
	}
}
