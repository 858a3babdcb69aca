// Package config loads service settings from defaults, an optional TOML file, a .env file and the
// process environment, in that order of precedence (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Auth     AuthConfig     `toml:"auth"`
	Queue    QueueConfig    `toml:"queue"`
	Logging  LoggingConfig  `toml:"logging"`
}

type ServerConfig struct {
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DatabaseConfig selects the queue store. Driver "memory" keeps everything in process and skips
// postgres entirely.
type DatabaseConfig struct {
	Driver   string `toml:"driver"` // "postgres" or "memory"
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
	SSLMode  string `toml:"sslmode"`
}

// DSN builds a libpq-style connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig enables the cross-instance event relay when Addr is set.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
	Channel  string `toml:"channel"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type AuthConfig struct {
	AccessSecret string `toml:"access_secret"`
	TurnSecret   string `toml:"turn_secret"`
	TurnTokenTTL string `toml:"turn_token_ttl"` // e.g. "10m"
}

// TurnTTL parses TurnTokenTTL, falling back to ten minutes.
func (c AuthConfig) TurnTTL() time.Duration {
	d, err := time.ParseDuration(c.TurnTokenTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

type QueueConfig struct {
	DefaultMaxLength int    `toml:"default_max_length"`
	RejoinCooldown   bool   `toml:"rejoin_cooldown"`
	ResetHour        int    `toml:"reset_hour"` // local hour at which served members may rejoin
	Timezone         string `toml:"timezone"`
}

// Location resolves Timezone, defaulting to the host zone.
func (c QueueConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "console" or "json"
}

// Default returns the settings used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "leap",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Channel: "leap:queue-events",
		},
		Auth: AuthConfig{
			TurnTokenTTL: "10m",
		},
		Queue: QueueConfig{
			DefaultMaxLength: 250,
			RejoinCooldown:   true,
			ResetHour:        2,
			Timezone:         "Local",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration. path may be empty; a missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	// ENV_CHEK marks environments (containers, CI) where variables are injected directly.
	if os.Getenv("ENV_CHEK") == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.AccessSecret == "" {
		return errors.New("JWT_ACCESS_SECRET is required")
	}
	if c.Queue.ResetHour < 0 || c.Queue.ResetHour > 23 {
		return fmt.Errorf("invalid queue reset hour %d", c.Queue.ResetHour)
	}
	if _, err := c.Queue.Location(); err != nil {
		return fmt.Errorf("invalid queue timezone: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Redis.Channel, "REDIS_CHANNEL")

	setString(&cfg.Auth.AccessSecret, "JWT_ACCESS_SECRET")
	setString(&cfg.Auth.TurnSecret, "JWT_TURN_SECRET")
	setString(&cfg.Auth.TurnTokenTTL, "TURN_TOKEN_TTL")

	setString(&cfg.Queue.Timezone, "QUEUE_TIMEZONE")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Logging.Format, "LOG_FORMAT")

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"REDIS_DB", &cfg.Redis.DB},
		{"QUEUE_DEFAULT_MAX_LENGTH", &cfg.Queue.DefaultMaxLength},
		{"QUEUE_RESET_HOUR", &cfg.Queue.ResetHour},
	} {
		if err := setInt(f.dst, f.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("QUEUE_REJOIN_COOLDOWN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("QUEUE_REJOIN_COOLDOWN: %w", err)
		}
		cfg.Queue.RejoinCooldown = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
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
