// Package daemon manages the xpd daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Store     StoreConfig     `toml:"store"`
	Platform  PlatformConfig  `toml:"platform"`
	Auth      AuthConfig      `toml:"auth"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// StoreConfig selects where gamification records live.
type StoreConfig struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"` // postgres only
	Dir    string `toml:"dir"` // sqlite only
}

// PlatformConfig points at the learning platform backend.
type PlatformConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// AuthConfig controls bearer token checks. An empty secret decodes tokens
// without verifying them.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// TelemetryConfig controls metrics export.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	homeDir := xpdHome()
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        7420,
			CORSOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Dir:    homeDir,
		},
		Platform: PlatformConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: "10s",
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads .env, reads $XPD_HOME/config.toml over the defaults, and
// applies environment overrides.
func LoadConfig() (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	path := filepath.Join(xpdHome(), "config.toml")

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides config values from XPD_* variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("XPD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("XPD_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("XPD_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("XPD_STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("XPD_STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("XPD_PLATFORM_URL"); v != "" {
		cfg.Platform.BaseURL = v
	}
	if v := os.Getenv("XPD_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	return nil
}

// SaveConfig writes the config to $XPD_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(xpdHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// PlatformTimeout parses Platform.Timeout, defaulting to 10s.
func (c Config) PlatformTimeout() time.Duration {
	return parseDuration(c.Platform.Timeout, 10*time.Second)
}

// Addr is the API listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// setupLogging tees the standard logger to Logging.File when set. The
// returned func closes the file.
func setupLogging(cfg LoggingConfig) (func(), error) {
	if cfg.File == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}

// parseDuration parses s, returning fallback when s is empty or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// xpdHome returns the xpd data directory.
func xpdHome() string {
	if env := os.Getenv("XPD_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".xpd")
}

// Home is exported for use by other packages.
func Home() string {
	return xpdHome()
}
