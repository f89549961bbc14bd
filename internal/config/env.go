package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// RasterConfig bounds page rendering parameters.
type RasterConfig struct {
	MinDPI int
	MaxDPI int
}

// SessionConfig defines session store connectivity and lifetime.
// Sessions expire after TTL of idleness; the sweeper removes an expired
// session's artifacts every SweepInterval.
type SessionConfig struct {
	RedisURL      string
	TTL           time.Duration
	SweepInterval time.Duration
}

// StorageConfig defines the artifact store backend.
// Backend is "local" or "s3". Password, when set, enables at-rest
// encryption of S3 artifacts.
type StorageConfig struct {
	Backend    string
	Bucket     string
	LocalDir   string
	PresignTTL time.Duration
	Password   string
}

// HTTPConfig defines the server listen parameters.
type HTTPConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig
	Axiom   AxiomConfig
	HTTP    HTTPConfig
	Raster  RasterConfig
	Session SessionConfig
	Storage StorageConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/paintscheme.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_paintscheme",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.HTTP = HTTPConfig{
		Port:            getEnv("PORT", "8080"),
		ShutdownTimeout: parseDuration(getEnv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
	}

	cfg.Raster = RasterConfig{
		MinDPI: parseInt(getEnv("RASTER_MIN_DPI", "100"), 100),
		MaxDPI: parseInt(getEnv("RASTER_MAX_DPI", "400"), 400),
	}

	cfg.Session = SessionConfig{
		RedisURL:      getEnv("REDIS_URL", ""),
		TTL:           parseDuration(getEnv("SESSION_TTL", "30m"), 30*time.Minute),
		SweepInterval: parseDuration(getEnv("SESSION_SWEEP_INTERVAL", "1m"), time.Minute),
	}

	cfg.Storage = StorageConfig{
		Backend:    strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
		Bucket:     getEnv("AWS_S3_BUCKET", ""),
		LocalDir:   getEnv("STORAGE_DIR", "output"),
		PresignTTL: parseDuration(getEnv("PRESIGN_TTL", "15m"), 15*time.Minute),
		Password:   getEnv("ARTIFACT_PASSWORD", ""),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
