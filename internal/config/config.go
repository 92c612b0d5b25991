// Package config loads server settings from an optional YAML file, then
// applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Log         LogConfig         `yaml:"log"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Mode            string        `yaml:"mode"` // gin mode: debug, release, test
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type IdempotencyConfig struct {
	Backend    string        `yaml:"backend"` // memory or redis
	RedisURL   string        `yaml:"redis_url"`
	TTL        time.Duration `yaml:"ttl"`
	PendingTTL time.Duration `yaml:"pending_ttl"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "inventory.db",
		},
		Idempotency: IdempotencyConfig{
			Backend:    "memory",
			TTL:        24 * time.Hour,
			PendingTTL: 5 * time.Minute,
		},
		Kafka: KafkaConfig{Topic: "purchases"},
		Log:   LogConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{
			ServiceName: "go-inventory",
			Insecure:    true,
		},
	}
}

// Load returns defaults overlaid with the file at path (if non-empty) and
// then the environment. The result is validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str(&c.Server.Addr, "INVENTORY_ADDR")
	str(&c.Server.Mode, "INVENTORY_MODE", "GIN_MODE")

	str(&c.Database.Driver, "INVENTORY_DB_DRIVER")
	str(&c.Database.DSN, "INVENTORY_DB_DSN", "DATABASE_URL")
	if url, ok := lookup("DATABASE_URL"); ok && strings.HasPrefix(url, "postgres") {
		if _, set := lookup("INVENTORY_DB_DRIVER"); !set {
			c.Database.Driver = "postgres"
		}
	}

	str(&c.Idempotency.Backend, "INVENTORY_IDEMPOTENCY_BACKEND")
	str(&c.Idempotency.RedisURL, "REDIS_URL")
	if v, ok := lookup("REDIS_URL"); ok && v != "" {
		if _, set := lookup("INVENTORY_IDEMPOTENCY_BACKEND"); !set {
			c.Idempotency.Backend = "redis"
		}
	}
	if err := dur(&c.Idempotency.TTL, "INVENTORY_IDEMPOTENCY_TTL"); err != nil {
		return err
	}

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	str(&c.Kafka.Topic, "KAFKA_TOPIC")

	str(&c.Log.Level, "INVENTORY_LOG_LEVEL")
	str(&c.Log.Format, "INVENTORY_LOG_FORMAT")

	str(&c.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	str(&c.Tracing.ServiceName, "OTEL_SERVICE_NAME")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx":
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported %q", c.Database.Driver))
	}

	switch c.Idempotency.Backend {
	case "memory":
	case "redis":
		if c.Idempotency.RedisURL == "" {
			errs = append(errs, errors.New("idempotency.redis_url: required for redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("idempotency.backend: unsupported %q", c.Idempotency.Backend))
	}
	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("idempotency.ttl: must be positive"))
	}
	if c.Idempotency.PendingTTL <= 0 {
		errs = append(errs, errors.New("idempotency.pending_ttl: must be positive"))
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode: unsupported %q", c.Server.Mode))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout: must be positive"))
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format: unsupported %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
