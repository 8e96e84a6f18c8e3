package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("RA_RETRY_MAX_ATTEMPTS", "")

	cfg := fromViper(newViper())

	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %q", cfg.Env)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.LLMModel != "gpt-5-nano" {
		t.Fatalf("expected default model gpt-5-nano, got %q", cfg.LLMModel)
	}
	if cfg.LLMMaxOutputTokens != 400 {
		t.Fatalf("expected 400 max output tokens, got %d", cfg.LLMMaxOutputTokens)
	}
	if cfg.Worker.RetryMaxAttempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", cfg.Worker.RetryMaxAttempts)
	}
	if cfg.Worker.RetryBaseDelay != 10*time.Second {
		t.Fatalf("expected 10s base delay, got %s", cfg.Worker.RetryBaseDelay)
	}
	if cfg.Worker.SoftTimeLimit >= cfg.OpenAITimeout {
		t.Fatalf("expected soft limit %s below client timeout %s", cfg.Worker.SoftTimeLimit, cfg.OpenAITimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "prod")
	t.Setenv("DB_DRIVER", "SQLite3")
	t.Setenv("OBJECT_STORE", "S3")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("RA_TASK_SOFT_TIME_LIMIT_SECONDS", "90")
	t.Setenv("RA_WORKER_CONCURRENCY", "8")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:9999/v1/")

	cfg := fromViper(newViper())

	if cfg.Env != "production" {
		t.Fatalf("expected production, got %q", cfg.Env)
	}
	if cfg.DBDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.DBDriver)
	}
	if cfg.ObjectStoreType != "s3" {
		t.Fatalf("expected s3 store, got %q", cfg.ObjectStoreType)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.CORSAllowOrigin)
	}
	if cfg.Worker.SoftTimeLimit != 90*time.Second {
		t.Fatalf("expected 90s soft limit, got %s", cfg.Worker.SoftTimeLimit)
	}
	if cfg.Worker.Concurrency != 8 {
		t.Fatalf("expected concurrency 8, got %d", cfg.Worker.Concurrency)
	}
	if cfg.OpenAIBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected trimmed base url, got %q", cfg.OpenAIBaseURL)
	}
}

func TestNonPositiveSecondsFallBack(t *testing.T) {
	t.Setenv("RA_SHUTDOWN_TIMEOUT_SECONDS", "-5")

	cfg := fromViper(newViper())

	if cfg.Worker.ShutdownTimeout != 30*time.Second {
		t.Fatalf("expected default 30s, got %s", cfg.Worker.ShutdownTimeout)
	}
}

func TestLoadEnvFilesDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("NOTES_TEST_A=from-file\nNOTES_TEST_B=\"quoted\"\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("NOTES_TEST_A", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("NOTES_TEST_B") })

	loadEnvFiles(filepath.Join(dir, "missing.env"), path)

	if got := os.Getenv("NOTES_TEST_A"); got != "from-env" {
		t.Fatalf("expected env to win, got %q", got)
	}
	if got := os.Getenv("NOTES_TEST_B"); got != "quoted" {
		t.Fatalf("expected quoted value loaded, got %q", got)
	}
}
