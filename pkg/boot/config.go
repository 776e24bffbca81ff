package boot

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application settings read from the environment.
type Config struct {
	// SpecPath is the wiring spec file (GOWIRE_SPEC).
	SpecPath string
	// LogLevel is debug, info, warn or error (GOWIRE_LOG_LEVEL).
	LogLevel string
	// LogFormat is text or json (GOWIRE_LOG_FORMAT).
	LogFormat string
	// Metrics enables component timing (GOWIRE_METRICS).
	Metrics bool
	// StatusAddr serves the status plugin when set, e.g. ":8081" (GOWIRE_STATUS_ADDR).
	StatusAddr string
	// Debug attaches the debug plugin (GOWIRE_DEBUG).
	Debug bool
	// EnvPrefix selects the variables exposed to specs (GOWIRE_ENV_PREFIX).
	EnvPrefix string
	// ShutdownTimeout bounds teardown (GOWIRE_SHUTDOWN_TIMEOUT).
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		SpecPath:        "app.yaml",
		LogLevel:        "info",
		LogFormat:       "text",
		EnvPrefix:       "APP_",
		ShutdownTimeout: 10 * time.Second,
	}
}

// LoadConfig reads the given .env files (".env" when none are given) into the
// process environment and builds a Config from it. Missing .env files are not
// an error; malformed values are.
func LoadConfig(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := DefaultConfig()
	cfg.SpecPath = env("GOWIRE_SPEC", cfg.SpecPath)
	cfg.LogLevel = env("GOWIRE_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = env("GOWIRE_LOG_FORMAT", cfg.LogFormat)
	cfg.StatusAddr = env("GOWIRE_STATUS_ADDR", cfg.StatusAddr)
	cfg.EnvPrefix = env("GOWIRE_ENV_PREFIX", cfg.EnvPrefix)

	var err error
	if cfg.Metrics, err = envBool("GOWIRE_METRICS", cfg.Metrics); err != nil {
		return nil, err
	}
	if cfg.Debug, err = envBool("GOWIRE_DEBUG", cfg.Debug); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = envDuration("GOWIRE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return nil, err
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("GOWIRE_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
