package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"docsearch/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	DatabaseURL       string   `toml:"database_url"`
	ListenAddr        string   `toml:"listen_addr"`
	LogLevel          string   `toml:"log_level"`
	ConnectRetries    int      `toml:"connect_retries"`
	ConnectRetryDelay Duration `toml:"connect_retry_delay"`
	CORSAllowedOrigin string   `toml:"cors_allowed_origin"`
}

// Duration decodes Go duration strings ("2s", "500ms") from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

var ErrMissingDatabaseURL = errors.New("database URL is not configured (set DATABASE_URL)")

func Default() Config {
	return Config{
		ListenAddr:        ":8080",
		LogLevel:          "info",
		ConnectRetries:    5,
		ConnectRetryDelay: Duration{2 * time.Second},
		CORSAllowedOrigin: "*",
	}
}

// Load builds the configuration from defaults, an optional TOML file at path,
// a .env file in the working directory, and the process environment, in
// increasing order of precedence.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := env("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := env("PORT"); v != "" {
		c.ListenAddr = ":" + v
	}
	if v := env("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := env("DB_CONNECT_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid DB_CONNECT_RETRIES %q", v)
		}
		c.ConnectRetries = n
	}
	if v := env("DB_CONNECT_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid DB_CONNECT_RETRY_DELAY %q: %w", v, err)
		}
		c.ConnectRetryDelay = Duration{d}
	}
	if v := env("CORS_ALLOWED_ORIGIN"); v != "" {
		c.CORSAllowedOrigin = v
	}
	return nil
}

// Validate reports configuration that cannot start a database connection.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	if c.ConnectRetries < 1 {
		return fmt.Errorf("connect_retries must be at least 1, got %d", c.ConnectRetries)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
