package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port             string
	CORSAllowOrigin  []string
	ObjectStoreType  string
	LocalStoreDir    string
	AWSRegion        string
	S3Bucket         string
	S3Prefix         string
	LLMProvider      string
	LLMModel         string
	GeminiAPIKey     string
	DatabaseURL      string
	Env              string
	DefaultQuery     string
	MaxUploadBytes   int64
	WorkerEmbedded   bool
	WorkerCount      int
	JobTimeout       time.Duration
	JobLease         time.Duration
	PollInterval     time.Duration
	ShutdownTimeout  time.Duration
	SyncUploadEnable bool
}

// ErrMissingAPIKey indicates the analysis provider key is absent at startup.
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is required")

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	return Config{
		Port:             getEnv("PORT", "8080"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:  normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:    getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:        getEnv("AWS_REGION", ""),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Prefix:         getEnv("S3_PREFIX", ""),
		LLMProvider:      getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:         getEnv("LLM_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Env:              normalizeEnv(getEnv("ENV", "dev")),
		DefaultQuery:     getEnv("DEFAULT_QUERY", "Analyze this financial document for investment insights"),
		MaxUploadBytes:   getEnvInt64("MAX_UPLOAD_BYTES", 10<<20),
		WorkerEmbedded:   getEnvBool("WORKER_EMBEDDED", true),
		WorkerCount:      getEnvInt("WORKER_COUNT", 2),
		JobTimeout:       getEnvDuration("JOB_TIMEOUT", 10*time.Minute),
		JobLease:         getEnvDuration("JOB_LEASE", 2*time.Minute),
		PollInterval:     getEnvDuration("WORKER_POLL_INTERVAL", time.Second),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		SyncUploadEnable: getEnvBool("SYNC_UPLOAD_ENABLED", false),
	}
}

// Validate checks settings that must be present before serving traffic.
func (c Config) Validate() error {
	if strings.TrimSpace(c.GeminiAPIKey) == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return val
}

func getEnvBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return val
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
