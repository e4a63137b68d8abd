// Package config handles loading and validating configuration for taskwatch.
// It supports loading from YAML files, environment variables, and hardcoded
// defaults.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for taskwatch.
type Config struct {
	// RedisURL is the Redis connection URL for subscriber state.
	RedisURL string `yaml:"redis_url"`

	// TaskAPI configures the upstream task service client.
	TaskAPI TaskAPIConfig `yaml:"task_api"`

	// Webhook configures delivery and polling behavior.
	Webhook WebhookConfig `yaml:"webhook"`

	// Subscribers lists the subscribers to poll for. Per-subscriber URL,
	// secret and event filter override the global webhook settings.
	Subscribers []SubscriberConfig `yaml:"subscribers"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`
}

// TaskAPIConfig holds the upstream task service connection settings.
type TaskAPIConfig struct {
	// BaseURL is the task API root, e.g. https://api.example.com
	BaseURL string `yaml:"base_url"`

	// Token is the bearer token for the task API.
	Token string `yaml:"token"`
}

// WebhookConfig holds webhook delivery and polling settings.
type WebhookConfig struct {
	// Enabled turns the watcher on.
	Enabled bool `yaml:"enabled"`

	// URL is the default delivery endpoint.
	URL string `yaml:"url"`

	// Secret is the default HMAC signing secret.
	Secret string `yaml:"secret"`

	// Events is an optional event-type allow-list; empty allows all.
	Events []string `yaml:"events"`

	// Intervals are the polling periods per tier.
	Intervals IntervalConfig `yaml:"intervals"`

	// PastWeeks and FutureWeeks are full-week counts for the past/future
	// tiers; the extra-day counts extend beyond those weeks.
	PastWeeks       int `yaml:"past_weeks"`
	PastExtraDays   int `yaml:"past_extra_days"`
	FutureWeeks     int `yaml:"future_weeks"`
	FutureExtraDays int `yaml:"future_extra_days"`

	// FetchBatchSize is how many days are fetched in parallel per batch;
	// FetchBatchDelay is the pause between batches.
	FetchBatchSize  int           `yaml:"fetch_batch_size"`
	FetchBatchDelay time.Duration `yaml:"fetch_batch_delay"`

	// DeliveryTimeout bounds a single webhook POST.
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`

	// OriginTTL is how long self-origin markers live.
	OriginTTL time.Duration `yaml:"origin_ttl"`
}

// IntervalConfig holds the per-tier polling periods.
type IntervalConfig struct {
	Today  time.Duration `yaml:"today"`
	Week   time.Duration `yaml:"week"`
	Past   time.Duration `yaml:"past"`
	Future time.Duration `yaml:"future"`
}

// SubscriberConfig identifies one webhook subscriber.
type SubscriberConfig struct {
	ID     string   `yaml:"id"`
	URL    string   `yaml:"url"`
	Secret string   `yaml:"secret"`
	Events []string `yaml:"events"`
}

// LoggingConfig mirrors the logging section of the config file.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	FilePath   string `yaml:"file_path"`
	JSON       bool   `yaml:"json"`
	Console    bool   `yaml:"console"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Default configuration values.
const (
	DefaultRedisURL        = "redis://localhost:6379"
	DefaultTodayInterval   = 30 * time.Second
	DefaultWeekInterval    = 5 * time.Minute
	DefaultPastInterval    = 15 * time.Minute
	DefaultFutureInterval  = 10 * time.Minute
	DefaultPastWeeks       = 2
	DefaultPastExtraDays   = 3
	DefaultFutureWeeks     = 3
	DefaultFutureExtraDays = 4
	DefaultFetchBatchSize  = 3
	DefaultFetchBatchDelay = 500 * time.Millisecond
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultOriginTTL       = 90 * time.Second
)

var (
	globalConfig *Config
	configOnce   sync.Once
	configErr    error
)

// Get returns the global configuration, loading it if necessary.
// This function is safe for concurrent use.
func Get() (*Config, error) {
	configOnce.Do(func() {
		globalConfig, configErr = Load()
	})
	return globalConfig, configErr
}

// Load reads configuration from files and environment variables.
// Priority (highest to lowest):
// 1. Environment variables
// 2. ~/.config/taskwatch/config.yaml
// 3. ~/.taskwatch.yaml
// 4. Hardcoded defaults
func Load() (*Config, error) {
	cfg := &Config{
		RedisURL: DefaultRedisURL,
		Webhook: WebhookConfig{
			Intervals: IntervalConfig{
				Today:  DefaultTodayInterval,
				Week:   DefaultWeekInterval,
				Past:   DefaultPastInterval,
				Future: DefaultFutureInterval,
			},
			PastWeeks:       DefaultPastWeeks,
			PastExtraDays:   DefaultPastExtraDays,
			FutureWeeks:     DefaultFutureWeeks,
			FutureExtraDays: DefaultFutureExtraDays,
			FetchBatchSize:  DefaultFetchBatchSize,
			FetchBatchDelay: DefaultFetchBatchDelay,
			DeliveryTimeout: DefaultDeliveryTimeout,
			OriginTTL:       DefaultOriginTTL,
		},
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		// Legacy path first, XDG path overrides it.
		legacyPath := filepath.Join(homeDir, ".taskwatch.yaml")
		if data, err := os.ReadFile(legacyPath); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}

		xdgPath := filepath.Join(homeDir, ".config", "taskwatch", "config.yaml")
		if data, err := os.ReadFile(xdgPath); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvOverrides() {
	if val := os.Getenv("TASKWATCH_REDIS_URL"); val != "" {
		c.RedisURL = val
	} else if val := os.Getenv("REDIS_URL"); val != "" {
		c.RedisURL = val
	}

	if val := os.Getenv("TASKWATCH_TASK_API_URL"); val != "" {
		c.TaskAPI.BaseURL = val
	}
	if val := os.Getenv("TASKWATCH_TASK_API_TOKEN"); val != "" {
		c.TaskAPI.Token = val
	}

	if val := os.Getenv("TASKWATCH_WEBHOOK_ENABLED"); val != "" {
		c.Webhook.Enabled = val == "true" || val == "1" || val == "yes"
	}
	if val := os.Getenv("TASKWATCH_WEBHOOK_URL"); val != "" {
		c.Webhook.URL = val
	}
	if val := os.Getenv("TASKWATCH_WEBHOOK_SECRET"); val != "" {
		c.Webhook.Secret = val
	}
}

// Validate checks that the configuration is complete enough to start the
// watcher. Configuration errors are fatal at startup, not at runtime.
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("redis_url is required")
	}

	if !c.Webhook.Enabled {
		return nil
	}

	if c.Webhook.URL == "" && len(c.Subscribers) == 0 {
		return fmt.Errorf("webhook.url is required when webhooks are enabled")
	}
	if c.Webhook.URL != "" {
		if err := validateURL(c.Webhook.URL); err != nil {
			return fmt.Errorf("webhook.url: %w", err)
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required when webhooks are enabled")
		}
	}

	for _, sub := range c.Subscribers {
		if sub.ID == "" {
			return fmt.Errorf("subscriber id is required")
		}
		if sub.URL != "" {
			if err := validateURL(sub.URL); err != nil {
				return fmt.Errorf("subscriber %s url: %w", sub.ID, err)
			}
		}
		if sub.URL == "" && c.Webhook.URL == "" {
			return fmt.Errorf("subscriber %s has no url and no global webhook.url is set", sub.ID)
		}
		if sub.Secret == "" && c.Webhook.Secret == "" {
			return fmt.Errorf("subscriber %s has no secret and no global webhook.secret is set", sub.ID)
		}
	}

	iv := c.Webhook.Intervals
	for name, d := range map[string]time.Duration{
		"today": iv.Today, "week": iv.Week, "past": iv.Past, "future": iv.Future,
	} {
		if d <= 0 {
			return fmt.Errorf("webhook.intervals.%s must be positive", name)
		}
	}

	if c.Webhook.FetchBatchSize < 1 {
		return fmt.Errorf("webhook.fetch_batch_size must be at least 1")
	}
	if c.Webhook.PastWeeks < 0 || c.Webhook.FutureWeeks < 0 ||
		c.Webhook.PastExtraDays < 0 || c.Webhook.FutureExtraDays < 0 {
		return fmt.Errorf("webhook week and extra-day counts must not be negative")
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

// ConfigPaths returns the paths where config files are searched.
func ConfigPaths() []string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(homeDir, ".config", "taskwatch", "config.yaml"),
		filepath.Join(homeDir, ".taskwatch.yaml"),
	}
}

// WriteExample writes an example configuration file to the specified path.
func WriteExample(path string) error {
	example := `# taskwatch configuration file
# Place this file at ~/.config/taskwatch/config.yaml or ~/.taskwatch.yaml

# Redis connection URL (subscriber state and self-origin markers)
redis_url: redis://localhost:6379

# Upstream task service
task_api:
  base_url: https://api.example.com
  token: ""

webhook:
  enabled: false
  url: https://example.com/hooks/tasks
  secret: ""

  # Optional event allow-list; empty allows all event types
  # events: [task.completed, task.scheduled]
  events: []

  # Polling period per tier (Go duration format)
  intervals:
    today: 30s
    week: 5m
    past: 15m
    future: 10m

  # Scope windows: full Monday-Sunday weeks plus extra days beyond them
  past_weeks: 2
  past_extra_days: 3
  future_weeks: 3
  future_extra_days: 4

  # Upstream fetch pacing
  fetch_batch_size: 3
  fetch_batch_delay: 500ms

  delivery_timeout: 10s
  origin_ttl: 90s

# Subscribers to poll for. Omitted fields fall back to the webhook section.
subscribers: []
#  - id: team-a
#    url: https://team-a.example.com/hooks
#    secret: changeme
#    events: [task.completed]

logging:
  level: info
  json: true
  console: true
`
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(example), 0644)
}
