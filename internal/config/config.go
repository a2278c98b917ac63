// Package config loads the server configuration.
//
// Settings come from a TOML file that is created with defaults on first
// launch, then environment variables override individual keys:
//
//	PORT           port
//	LOG_LEVEL      log_level
//	STORE_BACKEND  storage.backend
//	DB_PATH        storage.db_path
//	REDIS_ADDR     storage.redis_addr
//	JWT_SECRET     auth.jwt_secret
package config

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConfigFileName = "mylist.toml"
	DefaultDBPath         = "data/mylist.db"
	DefaultPort           = 8080

	// MinJWTSecretLength matches what auth.NewTokenService accepts.
	MinJWTSecretLength = 16
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Storage struct {
	Backend       string `toml:"backend"`
	DBPath        string `toml:"db_path"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	KeyPrefix     string `toml:"key_prefix"`
}

type Reminders struct {
	// Timezone is an IANA name ("Europe/Berlin") or "Local". Task dates and
	// times are wall-clock values in this zone.
	Timezone string `toml:"timezone"`
	// Notifications grants the system-notification permission.
	Notifications bool `toml:"notifications"`
	InboxSize     int  `toml:"inbox_size"`
}

// Email enables the email notifier when SMTPHost and From are set.
type Email struct {
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	From     string `toml:"from"`
}

type Auth struct {
	JWTSecret     string `toml:"jwt_secret"`
	TokenTTLHours int    `toml:"token_ttl_hours"`
}

type Config struct {
	Port      int       `toml:"port"`
	LogLevel  string    `toml:"log_level"`
	Storage   Storage   `toml:"storage"`
	Reminders Reminders `toml:"reminders"`
	Email     Email     `toml:"email"`
	Auth      Auth      `toml:"auth"`
}

// LoadOrCreate reads the config at path, writing the defaults there first
// if the file does not exist yet. A freshly written file carries a random
// JWT secret, so tokens survive restarts. An existing file without one gets
// a secret generated and saved back.
func LoadOrCreate(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		cfg.Auth.JWTSecret = rand.Text()
		if err := write(path, cfg); err != nil {
			return cfg, fmt.Errorf("config: writing defaults to %s: %w", path, err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = rand.Text()
		if err := write(path, cfg); err != nil {
			return cfg, fmt.Errorf("config: saving generated auth.jwt_secret to %s: %w", path, err)
		}
	}
	return cfg, nil
}

func write(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o600)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:     DefaultPort,
		LogLevel: "info",
		Storage: Storage{
			Backend:   BackendSQLite,
			DBPath:    DefaultDBPath,
			RedisAddr: "localhost:6379",
			KeyPrefix: "mylist_",
		},
		Reminders: Reminders{
			Timezone:      "Local",
			Notifications: true,
			InboxSize:     50,
		},
		Email: Email{
			SMTPPort: 587,
		},
		Auth: Auth{
			TokenTTLHours: 24 * 30,
		},
	}
}

// ApplyEnv overrides keys from the environment. getenv is os.Getenv outside
// of tests.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("STORE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := getenv("DB_PATH"); v != "" {
		c.Storage.DBPath = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	return nil
}

// Validate checks the values that would otherwise fail later and further
// from their source.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	switch c.Storage.Backend {
	case BackendSQLite:
		if c.Storage.DBPath == "" {
			errs = append(errs, errors.New("storage.db_path is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			errs = append(errs, errors.New("storage.redis_addr is required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters", MinJWTSecretLength))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves Reminders.Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Reminders.Timezone == "" || strings.EqualFold(c.Reminders.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Reminders.Timezone)
	if err != nil {
		return nil, fmt.Errorf("reminders.timezone: %w", err)
	}
	return loc, nil
}

// SlogLevel returns the configured log level, INFO when unset or invalid.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// TokenTTL is Auth.TokenTTLHours as a duration.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}
