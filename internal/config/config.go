package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all portal configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// BackendURL is the base URL of the classroom REST backend.
	BackendURL     string
	BackendTimeout time.Duration
	// ImageBaseURL is the public host that image keys are resolved against.
	ImageBaseURL string

	// RedisURL selects the redis session store. Empty means in-memory sessions.
	RedisURL      string
	SessionCookie string
	SessionTTL    time.Duration

	// TokenSecret enables HS256 signature verification of backend tokens.
	// Empty means tokens are decoded without verification.
	TokenSecret string
	DemoToken   string
	DemoEnabled bool

	MaxUploadBytes     int64
	AttemptIdleTimeout time.Duration
	LoginRatePerMinute int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		GinMode:            getEnv("GIN_MODE", "debug"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "pretty"),
		BackendURL:         strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8000"), "/"),
		BackendTimeout:     time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,
		ImageBaseURL:       strings.TrimRight(getEnv("IMAGE_BASE_URL", "http://localhost:9000/question-images"), "/"),
		RedisURL:           getEnv("REDIS_URL", ""),
		SessionCookie:      getEnv("SESSION_COOKIE", "exstem_session"),
		SessionTTL:         time.Duration(getEnvInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		TokenSecret:        getEnv("TOKEN_SECRET", ""),
		DemoToken:          getEnv("DEMO_TOKEN", "demo-token"),
		DemoEnabled:        getEnvBool("DEMO_ENABLED", false),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 5)) * 1024 * 1024,
		AttemptIdleTimeout: time.Duration(getEnvInt("ATTEMPT_IDLE_MINUTES", 90)) * time.Minute,
		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 20),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
