package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	DatabaseURL string
	DBDriver    string
	SQLitePath  string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	LLMProvider        string
	LLMModel           string
	LLMMaxOutputTokens int
	LLMTemperature     float64
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAITimeout      time.Duration

	Worker WorkerConfig
}

// WorkerConfig holds queue consumer and retry settings.
type WorkerConfig struct {
	QueueURL          string
	VisibilityTimeout time.Duration
	Concurrency       int
	ShutdownTimeout   time.Duration
	SoftTimeLimit     time.Duration
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RetryMaxAttempts  int
}

var defaults = map[string]any{
	"ENV":                               "dev",
	"PORT":                              "8080",
	"CORS_ALLOW_ORIGINS":                "http://localhost:5173",
	"DB_DRIVER":                         "postgres",
	"SQLITE_PATH":                       "./data/notes.db",
	"OBJECT_STORE":                      "local",
	"LOCAL_STORE_DIR":                   "./data",
	"LLM_PROVIDER":                      "openai",
	"LLM_MODEL":                         "gpt-5-nano",
	"LLM_MAX_OUTPUT_TOKENS":             400,
	"LLM_TEMPERATURE":                   0.2,
	"OPENAI_BASE_URL":                   "https://api.openai.com/v1",
	"OPENAI_TIMEOUT_SECONDS":            300,
	"RA_SQS_VISIBILITY_TIMEOUT_SECONDS": 1200,
	"RA_WORKER_CONCURRENCY":             4,
	"RA_SHUTDOWN_TIMEOUT_SECONDS":       30,
	"RA_TASK_SOFT_TIME_LIMIT_SECONDS":   240,
	"RA_RETRY_BASE_SECONDS":             10,
	"RA_RETRY_MAX_SECONDS":              600,
	"RA_RETRY_MAX_ATTEMPTS":             4,
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	return v
}

func fromViper(v *viper.Viper) Config {
	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))
	dbDriver := normalizeDBDriver(v.GetString("DB_DRIVER"))

	if env == "production" && dbURL == "" && dbDriver == "postgres" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            v.GetString("PORT"),
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		Env:             env,

		DatabaseURL: dbURL,
		DBDriver:    dbDriver,
		SQLitePath:  v.GetString("SQLITE_PATH"),

		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),

		LLMProvider:        strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMModel:           strings.TrimSpace(v.GetString("LLM_MODEL")),
		LLMMaxOutputTokens: v.GetInt("LLM_MAX_OUTPUT_TOKENS"),
		LLMTemperature:     v.GetFloat64("LLM_TEMPERATURE"),
		OpenAIAPIKey:       v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:      strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
		OpenAITimeout:      seconds(v, "OPENAI_TIMEOUT_SECONDS"),

		Worker: WorkerConfig{
			QueueURL:          strings.TrimSpace(v.GetString("RA_SQS_QUEUE_URL")),
			VisibilityTimeout: seconds(v, "RA_SQS_VISIBILITY_TIMEOUT_SECONDS"),
			Concurrency:       v.GetInt("RA_WORKER_CONCURRENCY"),
			ShutdownTimeout:   seconds(v, "RA_SHUTDOWN_TIMEOUT_SECONDS"),
			SoftTimeLimit:     seconds(v, "RA_TASK_SOFT_TIME_LIMIT_SECONDS"),
			RetryBaseDelay:    seconds(v, "RA_RETRY_BASE_SECONDS"),
			RetryMaxDelay:     seconds(v, "RA_RETRY_MAX_SECONDS"),
			RetryMaxAttempts:  v.GetInt("RA_RETRY_MAX_ATTEMPTS"),
		},
	}
}

// seconds reads an integer number of seconds; non-positive values fall back to the default.
func seconds(v *viper.Viper, key string) time.Duration {
	n := v.GetInt(key)
	if n <= 0 {
		if def, ok := defaults[key].(int); ok {
			n = def
		}
	}
	return time.Duration(n) * time.Second
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeDBDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return "postgres"
	}
}
