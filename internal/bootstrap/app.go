package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"notes-backend/internal/analyses"
	"notes-backend/internal/llm"
	openai "notes-backend/internal/llm/openai"
	"notes-backend/internal/queue"
	"notes-backend/internal/shared/config"
	"notes-backend/internal/shared/server"
	"notes-backend/internal/shared/storage/db"
	"notes-backend/internal/shared/storage/object"
	localstore "notes-backend/internal/shared/storage/object/local"
	s3store "notes-backend/internal/shared/storage/object/s3"
	"notes-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config      config.Config
	Router      *gin.Engine
	DB          *sql.DB
	Store       object.ObjectStore
	Queue       queue.Client
	LLM         llm.Client
	Repo        analyses.Repo
	Task        *analyses.Task
	Service     *analyses.Service
	Handler     *analyses.Handler
	RetryPolicy queue.RetryPolicy
}

// Build prepares shared dependencies and the HTTP router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	repo := buildRepo(cfg, sqlDB)
	task := &analyses.Task{
		Repo:            repo,
		LLM:             llmClient,
		Model:           cfg.LLMModel,
		MaxOutputTokens: cfg.LLMMaxOutputTokens,
		Temperature:     llm.Float64(cfg.LLMTemperature),
	}
	svc := &analyses.Service{
		Repo:          repo,
		Queue:         queueClient,
		Processor:     task,
		Store:         store,
		SoftTimeLimit: cfg.Worker.SoftTimeLimit,
	}
	handler := analyses.NewHandler(svc)

	app := &App{
		Config:  cfg,
		DB:      sqlDB,
		Store:   store,
		Queue:   queueClient,
		LLM:     llmClient,
		Repo:    repo,
		Task:    task,
		Service: svc,
		Handler: handler,
		RetryPolicy: queue.RetryPolicy{
			BaseDelay:   cfg.Worker.RetryBaseDelay,
			MaxDelay:    cfg.Worker.RetryMaxDelay,
			MaxAttempts: cfg.Worker.RetryMaxAttempts,
		},
	}
	app.Router = server.NewRouter(cfg, handler)

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == db.DriverSQLite {
		return buildSQLite(ctx, cfg)
	}

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	var (
		sqlDB *sql.DB
		err   error
	)
	if db.IsLambdaRuntime() {
		opts := db.OptionsFromEnv(db.DefaultLambdaOptions())
		sqlDB, err = db.GetSingleton(ctx, db.DriverPostgres, cfg.DatabaseURL, opts)
	} else {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		sqlDB, err = db.Connect(ctx, db.DriverPostgres, cfg.DatabaseURL, opts)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repo", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

// buildSQLite opens the local database file and applies migrations, since a
// SQLite deployment has no separate migrate step.
func buildSQLite(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	path := strings.TrimSpace(cfg.SQLitePath)
	if path == "" {
		return nil, errors.New("SQLITE_PATH is required for DB_DRIVER=sqlite")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := db.Connect(ctx, db.DriverSQLite, dsn, db.DefaultSQLiteOptions())
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB, db.DriverSQLite); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

func buildRepo(cfg config.Config, sqlDB *sql.DB) analyses.Repo {
	switch {
	case sqlDB == nil:
		return analyses.NewMemoryRepo()
	case cfg.DBDriver == db.DriverSQLite:
		return &analyses.SQLiteRepo{DB: sqlDB}
	default:
		return &analyses.PGRepo{DB: sqlDB}
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.Worker.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.Worker.QueueURL, cfg.AWSRegion)
}

func buildLLM(cfg config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai", "":
		client, err := openai.NewClient(openai.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.OpenAITimeout,
		})
		if err != nil {
			if isDevLike(cfg.Env) {
				telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"error": err})
				return unconfiguredLLM{reason: err.Error()}, nil
			}
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// unconfiguredLLM lets a dev server start without credentials; every call fails
// and the analysis is marked failed with the reason.
type unconfiguredLLM struct {
	reason string
}

func (u unconfiguredLLM) CreateResponse(ctx context.Context, req llm.Request) (*llm.Response, error) {
	_ = ctx
	_ = req
	return nil, fmt.Errorf("llm client not configured: %s", u.reason)
}
