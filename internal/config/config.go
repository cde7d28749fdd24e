package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Insights  InsightsConfig  `yaml:"insights"`
	Overrides OverridesConfig `yaml:"overrides"`
	Assistant AssistantConfig `yaml:"assistant"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// InsightsConfig tunes the insight feed.
type InsightsConfig struct {
	CacheTTL Duration `yaml:"cache_ttl"`
}

// OverridesConfig controls how long read/dismissed marks are kept.
// A zero Retention keeps them forever and disables the prune worker.
type OverridesConfig struct {
	Retention     Duration `yaml:"retention"`
	PruneInterval Duration `yaml:"prune_interval"`
}

// AssistantConfig contains the optional AI digest settings.
type AssistantConfig struct {
	APIKey    string `yaml:"-"` // env-only, never in YAML
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Enabled reports whether the assistant has credentials to run.
func (a AssistantConfig) Enabled() bool {
	return a.APIKey != ""
}

// SnapshotConfig controls periodic database snapshots. A zero Interval
// disables the snapshot worker; `finsight snapshot` still works on demand.
// An empty Bucket keeps snapshots local-only.
type SnapshotConfig struct {
	Dir       string   `yaml:"dir"`
	Interval  Duration `yaml:"interval"`
	Endpoint  string   `yaml:"endpoint"`
	Bucket    string   `yaml:"bucket"`
	Region    string   `yaml:"region"`
	UseSSL    *bool    `yaml:"use_ssl"` // nil means true
	AccessKey string   `yaml:"-"`       // env-only, never in YAML
	SecretKey string   `yaml:"-"`       // env-only, never in YAML
	URLExpiry Duration `yaml:"url_expiry"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("FINSIGHT_CONFIG_PATH", "config/finsight.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadLocal loads configuration for offline CLI commands. It applies the
// same precedence as Load but does not require FINSIGHT_API_KEY.
func LoadLocal() (*Config, error) {
	cfg := newDefaults()

	if err := loadYAMLFile(cfg, getEnv("FINSIGHT_CONFIG_PATH", "config/finsight.yaml")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validateValues(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/finsight.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Insights: InsightsConfig{
			CacheTTL: Duration(30 * time.Second),
		},
		Overrides: OverridesConfig{
			Retention:     Duration(90 * 24 * time.Hour),
			PruneInterval: Duration(24 * time.Hour),
		},
		Assistant: AssistantConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 400,
		},
		Snapshot: SnapshotConfig{
			Dir:       "data/snapshots",
			Region:    "us-east-1",
			URLExpiry: Duration(15 * time.Minute),
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("FINSIGHT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	envDuration("FINSIGHT_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("FINSIGHT_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("FINSIGHT_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Database
	if v := os.Getenv("FINSIGHT_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Auth
	if v := os.Getenv("FINSIGHT_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	// Log
	if v := os.Getenv("FINSIGHT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("FINSIGHT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	// Insights and overrides
	envDuration("FINSIGHT_CACHE_TTL", &cfg.Insights.CacheTTL)
	envDuration("FINSIGHT_OVERRIDE_RETENTION", &cfg.Overrides.Retention)
	envDuration("FINSIGHT_PRUNE_INTERVAL", &cfg.Overrides.PruneInterval)

	// Assistant (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Assistant.APIKey = v
	}
	if v := os.Getenv("FINSIGHT_ASSISTANT_MODEL"); v != "" {
		cfg.Assistant.Model = v
	}
	if v := os.Getenv("FINSIGHT_ASSISTANT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Assistant.MaxTokens = n
		}
	}

	// Snapshots
	if v := os.Getenv("FINSIGHT_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.Dir = v
	}
	envDuration("FINSIGHT_SNAPSHOT_INTERVAL", &cfg.Snapshot.Interval)
	if v := os.Getenv("FINSIGHT_S3_ENDPOINT"); v != "" {
		cfg.Snapshot.Endpoint = v
	}
	if v := os.Getenv("FINSIGHT_S3_BUCKET"); v != "" {
		cfg.Snapshot.Bucket = v
	}
	if v := os.Getenv("FINSIGHT_S3_REGION"); v != "" {
		cfg.Snapshot.Region = v
	}
	if v := os.Getenv("FINSIGHT_S3_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Snapshot.UseSSL = &b
		}
	}
	if v := os.Getenv("FINSIGHT_S3_ACCESS_KEY"); v != "" {
		cfg.Snapshot.AccessKey = v
	}
	if v := os.Getenv("FINSIGHT_S3_SECRET_KEY"); v != "" {
		cfg.Snapshot.SecretKey = v
	}
	envDuration("FINSIGHT_S3_URL_EXPIRY", &cfg.Snapshot.URLExpiry)
}

func envDuration(key string, dst *Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = Duration(d)
		}
	}
}

// validate checks value ranges and that required secrets are set.
// In dev mode (FINSIGHT_DEV_MODE=true), the API key check is skipped.
func (c *Config) validate() error {
	if err := c.validateValues(); err != nil {
		return err
	}

	if os.Getenv("FINSIGHT_DEV_MODE") == "true" {
		return nil
	}
	if c.Auth.APIKey == "" {
		return errors.New("FINSIGHT_API_KEY is required")
	}
	return nil
}

func (c *Config) validateValues() error {
	if c.Insights.CacheTTL <= 0 {
		return errors.New("insights.cache_ttl must be positive")
	}
	if c.Overrides.Retention < 0 {
		return errors.New("overrides.retention must not be negative")
	}
	if c.Overrides.Retention > 0 && c.Overrides.PruneInterval <= 0 {
		return errors.New("overrides.prune_interval must be positive when retention is set")
	}
	if c.Snapshot.Interval < 0 {
		return errors.New("snapshot.interval must not be negative")
	}
	if c.Snapshot.Dir == "" {
		return errors.New("snapshot.dir is required")
	}
	if c.Snapshot.Bucket != "" {
		if c.Snapshot.Endpoint == "" {
			return errors.New("snapshot.endpoint is required when snapshot.bucket is set")
		}
		if c.Snapshot.URLExpiry <= 0 {
			return errors.New("snapshot.url_expiry must be positive when snapshot.bucket is set")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
