// Package config provides environment-driven configuration for schemafence.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	Port        string
	ListenHost  string
	CORSOrigins []string

	RedisAddr     string
	RedisPassword Secret
	RedisDB       int

	LogLevel  string
	LogFormat string

	// AuthSecret verifies HS256 principal tokens issued by the
	// authentication layer.
	AuthSecret Secret
	// MFAKey is the hex-encoded AES-256 key protecting stored TOTP seeds.
	MFAKey Secret

	// ArtifactDir is where audit exports and other tenant artifacts land.
	ArtifactDir string

	ProvisionWorkers int
	AuditQueueSize   int

	// MutationLimit / MutationWindow bound tenant-mutating operations per
	// principal via the shared redis counter.
	MutationLimit  int
	MutationWindow time.Duration
}

// fileConfig is the optional YAML overlay read from SCHEMAFENCE_CONFIG.
// Environment variables take precedence over file values.
type fileConfig struct {
	DatabaseURL   string   `yaml:"database_url"`
	Port          string   `yaml:"port"`
	ListenHost    string   `yaml:"listen_host"`
	CORSOrigins   []string `yaml:"cors_origins"`
	RedisAddr     string   `yaml:"redis_addr"`
	RedisPassword string   `yaml:"redis_password"`
	LogLevel      string   `yaml:"log_level"`
	LogFormat     string   `yaml:"log_format"`
}

// Load reads configuration from environment variables (and the optional
// YAML file) with sensible defaults, then validates.
func Load() (*Config, error) {
	fc, err := loadFile(os.Getenv("SCHEMAFENCE_CONFIG"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:   Secret(envOr("DATABASE_URL", fc.DatabaseURL)),
		Port:          envOr("PORT", firstOf(fc.Port, "8080")),
		ListenHost:    envOr("LISTEN_HOST", firstOf(fc.ListenHost, "0.0.0.0")),
		RedisAddr:     envOr("REDIS_ADDR", firstOf(fc.RedisAddr, "localhost:6379")),
		RedisPassword: Secret(envOr("REDIS_PASSWORD", fc.RedisPassword)),
		LogLevel:      envOr("LOG_LEVEL", firstOf(fc.LogLevel, "info")),
		LogFormat:     envOr("LOG_FORMAT", firstOf(fc.LogFormat, "json")),
		AuthSecret:    Secret(envOr("AUTH_SECRET", "")),
		MFAKey:        Secret(envOr("MFA_KEY", "")),
		ArtifactDir:   envOr("ARTIFACT_DIR", "artifacts"),
	}

	if cfg.RedisDB, err = intEnv("REDIS_DB", 0, 0, 15); err != nil {
		return nil, err
	}

	if cfg.ProvisionWorkers, err = intEnv("PROVISION_WORKERS", 2, 1, 8); err != nil {
		return nil, err
	}

	if cfg.AuditQueueSize, err = intEnv("AUDIT_QUEUE_SIZE", 1000, 10, 100_000); err != nil {
		return nil, err
	}

	if cfg.MutationLimit, err = intEnv("MUTATION_RATE_LIMIT", 30, 1, 10_000); err != nil {
		return nil, err
	}

	windowSecs, err := intEnv("MUTATION_RATE_WINDOW_SECONDS", 60, 1, 3600)
	if err != nil {
		return nil, err
	}
	cfg.MutationWindow = time.Duration(windowSecs) * time.Second

	origins := envOr("CORS_ORIGINS", strings.Join(fc.CORSOrigins, ","))
	if origins == "" {
		origins = "http://localhost:3000"
	}
	cfg.CORSOrigins = strings.Split(origins, ",")
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func (c *Config) validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNetwork(); err != nil {
		return err
	}

	if err := c.validateCORS(); err != nil {
		return err
	}

	return c.validateSecrets()
}

func (c *Config) validateDatabase() error {
	if c.DatabaseURL.Value() == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	dbURL, err := url.Parse(c.DatabaseURL.Value())
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}

	if dbURL.Scheme != "postgres" && dbURL.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL scheme must be postgres:// or postgresql://")
	}

	if dbURL.Hostname() == "" {
		return fmt.Errorf("DATABASE_URL must include a host")
	}

	host := dbURL.Hostname()
	if host != "localhost" && host != "127.0.0.1" && host != "::1" {
		if dbURL.Query().Get("sslmode") == "disable" {
			return fmt.Errorf("DATABASE_URL sslmode=disable is not allowed for non-local host %q", host)
		}
	}

	return nil
}

func (c *Config) validateNetwork() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid integer: %w", err)
	}

	if port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if c.ListenHost == "" {
		return fmt.Errorf("LISTEN_HOST must not be empty")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR must not be empty")
	}

	return nil
}

func (c *Config) validateCORS() error {
	for _, origin := range c.CORSOrigins {
		if origin == "*" {
			return fmt.Errorf("CORS_ORIGINS must not contain wildcard '*'")
		}
		if strings.ContainsAny(origin, "*?[]") {
			return fmt.Errorf("CORS_ORIGINS must not contain glob characters (*?[]), got %q", origin)
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("CORS_ORIGINS contains invalid origin %q (must have scheme and host)", origin)
		}
	}

	return nil
}

func (c *Config) validateSecrets() error {
	if len(c.AuthSecret.Value()) < 32 {
		return fmt.Errorf("AUTH_SECRET is required and must be at least 32 bytes")
	}

	if c.MFAKey.Value() == "" {
		return fmt.Errorf("MFA_KEY is required")
	}

	keyBytes, err := hex.DecodeString(c.MFAKey.Value())
	if err != nil {
		return fmt.Errorf("MFA_KEY must be valid hex: %w", err)
	}

	if len(keyBytes) != 32 {
		return fmt.Errorf("MFA_KEY must be 64 hex characters (32 bytes), got %d chars", len(c.MFAKey.Value()))
	}

	return nil
}

func loadFile(path string) (*fileConfig, error) {
	fc := &fileConfig{}
	if path == "" {
		return fc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fc, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}

	return ""
}

func intEnv(key string, def, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, min, max)
	}

	return n, nil
}
