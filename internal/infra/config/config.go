package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "configs/config.yaml"
	dotenvPath        = ".env"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Predictor PredictorConfig `yaml:"predictor"`
	Session   SessionConfig   `yaml:"session"`
	History   HistoryConfig   `yaml:"history"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address      string          `yaml:"address"`
	ReadTimeout  time.Duration   `yaml:"readTimeout"`
	WriteTimeout time.Duration   `yaml:"writeTimeout"`
	CORSOrigins  []string        `yaml:"corsOrigins"`
	RateLimit    RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// PredictorConfig points at the remote model and sets the texts shown for failures.
type PredictorConfig struct {
	BaseURL  string         `yaml:"baseUrl"`
	Timeout  time.Duration  `yaml:"timeout"`
	Messages MessagesConfig `yaml:"messages"`
}

// MessagesConfig holds the user-facing error texts.
type MessagesConfig struct {
	Validation string `yaml:"validation"`
	API        string `yaml:"api"`
	Network    string `yaml:"network"`
}

// SessionConfig controls form session storage.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	StaleAfter time.Duration `yaml:"staleAfter"`
	Valkey     ValkeyConfig  `yaml:"valkey"`
}

// ValkeyConfig contains connection information for shared session storage.
type ValkeyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// HistoryConfig controls the prediction log.
type HistoryConfig struct {
	DefaultLimit   int            `yaml:"defaultLimit"`
	MemoryCapacity int            `yaml:"memoryCapacity"`
	Postgres       PostgresConfig `yaml:"postgres"`
	Archive        ArchiveConfig  `yaml:"archive"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// ArchiveConfig points at an S3-compatible bucket receiving prediction records.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	QueueSize int    `yaml:"queueSize"`
}

// Load reads configuration from a YAML file and environment variables.
// A local .env file, when present, seeds variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
	}

	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_CORS_ORIGINS"); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("PREDICTOR_BASE_URL"); v != "" {
		cfg.Predictor.BaseURL = v
	}
	if v := os.Getenv("PREDICTOR_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Predictor.Timeout = parsed
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.TTL = parsed
		}
	}
	if v := os.Getenv("SESSION_STALE_AFTER"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.StaleAfter = parsed
		}
	}
	if v := os.Getenv("SESSION_VALKEY_ENABLED"); v != "" {
		cfg.Session.Valkey.Enabled = parseBool(v)
	}
	if v := os.Getenv("SESSION_VALKEY_ADDR"); v != "" {
		cfg.Session.Valkey.Addr = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_DSN"); v != "" {
		cfg.History.Postgres.DSN = v
	}
	if v := os.Getenv("HISTORY_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.History.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("HISTORY_ARCHIVE_ENABLED"); v != "" {
		cfg.History.Archive.Enabled = parseBool(v)
	}
	if v := os.Getenv("HISTORY_ARCHIVE_ENDPOINT"); v != "" {
		cfg.History.Archive.Endpoint = v
	}
	if v := os.Getenv("HISTORY_ARCHIVE_ACCESS_KEY"); v != "" {
		cfg.History.Archive.AccessKey = v
	}
	if v := os.Getenv("HISTORY_ARCHIVE_SECRET_KEY"); v != "" {
		cfg.History.Archive.SecretKey = v
	}
	if v := os.Getenv("HISTORY_ARCHIVE_BUCKET"); v != "" {
		cfg.History.Archive.Bucket = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 20 * time.Second,
			CORSOrigins: []string{
				"https://powerconsumption-pred.netlify.app",
				"https://localhost:3000",
			},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				Burst:             20,
			},
		},
		Predictor: PredictorConfig{
			BaseURL: "https://power-predictor-api-148902248893.us-east1.run.app",
			Timeout: 10 * time.Second,
			Messages: MessagesConfig{
				Validation: "Please enter valid numerical values for all fields.",
				API:        "Failed to get prediction from API.",
				Network:    "Could not connect to the prediction service.",
			},
		},
		Session: SessionConfig{
			TTL:        2 * time.Hour,
			StaleAfter: time.Minute,
			Valkey: ValkeyConfig{
				Prefix: "predictor",
			},
		},
		History: HistoryConfig{
			DefaultLimit:   20,
			MemoryCapacity: 1000,
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
			Archive: ArchiveConfig{
				Region:    "auto",
				Prefix:    "predictions",
				QueueSize: 256,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if strings.TrimSpace(c.Predictor.BaseURL) == "" {
		return errors.New("predictor.baseUrl cannot be empty")
	}
	if u, err := url.Parse(c.Predictor.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("predictor.baseUrl must be an absolute URL")
	}
	if c.Predictor.Timeout <= 0 {
		return errors.New("predictor.timeout must be positive")
	}
	if c.HTTP.WriteTimeout > 0 && c.HTTP.WriteTimeout <= c.Predictor.Timeout {
		return errors.New("http.writeTimeout must exceed predictor.timeout")
	}
	if c.Session.TTL < 0 {
		return errors.New("session.ttl cannot be negative")
	}
	if c.Session.StaleAfter < 0 {
		return errors.New("session.staleAfter cannot be negative")
	}
	if c.Session.StaleAfter > 0 && c.Session.StaleAfter <= c.Predictor.Timeout {
		return errors.New("session.staleAfter must exceed predictor.timeout")
	}
	if c.Session.Valkey.Enabled && strings.TrimSpace(c.Session.Valkey.Addr) == "" {
		return errors.New("session.valkey.addr cannot be empty when valkey is enabled")
	}
	if c.History.DefaultLimit <= 0 {
		return errors.New("history.defaultLimit must be positive")
	}
	if c.History.Archive.Enabled {
		if strings.TrimSpace(c.History.Archive.Endpoint) == "" {
			return errors.New("history.archive.endpoint cannot be empty when archiving is enabled")
		}
		if strings.TrimSpace(c.History.Archive.Bucket) == "" {
			return errors.New("history.archive.bucket cannot be empty when archiving is enabled")
		}
	}
	return nil
}
