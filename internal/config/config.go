package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultMaxUploadBytes is the largest accepted upload (5 MB).
const DefaultMaxUploadBytes = 5 * 1024 * 1024

type Config struct {
	Port string `yaml:"port"`

	// Service auth; empty disables it.
	APIKey string `yaml:"api_key"`

	// Document backend
	BackendURL     string        `yaml:"backend_url"`
	BackendAPIKey  string        `yaml:"backend_api_key"`
	BackendTimeout time.Duration `yaml:"backend_timeout"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count"`
	MaxQueueSize int `yaml:"max_queue_size"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Job state
	JobTTL time.Duration `yaml:"job_ttl"`

	// Client-side caches
	TagsCacheTTL  time.Duration `yaml:"tags_cache_ttl"`
	ToastDuration time.Duration `yaml:"toast_duration"`
}

func defaults() Config {
	return Config{
		Port:           "8090",
		BackendURL:     "http://127.0.0.1:8000",
		BackendTimeout: 30 * time.Second,
		WorkerCount:    2,
		MaxQueueSize:   50,
		MaxUploadBytes: DefaultMaxUploadBytes,
		JobTTL:         1 * time.Hour,
		TagsCacheTTL:   5 * time.Minute,
		ToastDuration:  5 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $TINI_CONFIG when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = os.Getenv("TINI_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("TINI_API_KEY", cfg.APIKey)
	cfg.BackendURL = envOr("BACKEND_URL", cfg.BackendURL)
	cfg.BackendAPIKey = envOr("BACKEND_API_KEY", cfg.BackendAPIKey)
	cfg.BackendTimeout = envDuration("BACKEND_TIMEOUT", cfg.BackendTimeout)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.TagsCacheTTL = envDuration("TAGS_CACHE_TTL", cfg.TagsCacheTTL)
	cfg.ToastDuration = envDuration("TOAST_DURATION", cfg.ToastDuration)

	d := defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = d.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = d.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = d.BackendTimeout
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = d.JobTTL
	}
	if cfg.TagsCacheTTL <= 0 {
		cfg.TagsCacheTTL = d.TagsCacheTTL
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("PORT %q is not a valid port", c.Port)
	}
	if c.BackendURL != "" {
		u, err := url.Parse(c.BackendURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("BACKEND_URL %q is not an absolute URL", c.BackendURL)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
