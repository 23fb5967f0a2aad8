package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config holds all configuration values.
type Config struct {
	// Run-tracking server connection
	ServerURL string
	APIKey    string
	Entity    string
	Timeout   time.Duration

	// Logging
	LogFile  string
	LogLevel slog.Level

	// Scheduler job id fallback, for use inside a running job where the
	// submit wrapper exports it into the environment.
	JobID string
}

// Load reads configuration from environment variables.
func Load() Config {
	return Config{
		ServerURL: getEnv("CONDORTRACK_SERVER_URL", "http://localhost:8080"),
		APIKey:    getEnv("CONDORTRACK_API_KEY", ""),
		Entity:    getEnv("CONDORTRACK_ENTITY", ""),
		Timeout:   parseTimeout(getEnv("CONDORTRACK_TIMEOUT", "30s")),

		LogFile:  getEnv("CONDORTRACK_LOG_FILE", "/tmp/condortrack.log"),
		LogLevel: parseLogLevel(getEnv("CONDORTRACK_LOG_LEVEL", "INFO")),

		JobID: getEnv("CONDORTRACK_JOB_ID", ""),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseTimeout(s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
