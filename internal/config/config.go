// Package config loads runtime configuration for usersdot.
//
// LAYERS (later wins):
//  1. built-in defaults (Default)
//  2. TOML file (usersdot.toml, or the path given with --config)
//  3. .env file, loaded into the process environment by godotenv
//  4. environment variables (USERSDOT_*, plus PORT and DATABASE_URL)
//  5. command-line flags, applied by cmd/server after Load
//
// godotenv never overrides a variable that is already set, so a real
// environment variable beats the same key in .env.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read when no explicit config path is given and it exists.
const DefaultFile = "usersdot.toml"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds runtime configuration.
type Config struct {
	Port     int    `toml:"port"`
	LogLevel string `toml:"log_level"`

	Database Database `toml:"database"`

	// CORSOrigins lists browser origins allowed to call the API. Empty means
	// the UI is only used same-origin.
	CORSOrigins []string `toml:"cors_origins"`

	// PatchMode is "merge" (absent fields keep their value) or "replace"
	// (absent fields are cleared).
	PatchMode string `toml:"patch_mode"`

	// PasswordAlgorithm is "sha256" or "bcrypt".
	PasswordAlgorithm string `toml:"password_algorithm"`
}

// Database selects and configures the store.
type Database struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
	DSN        string `toml:"dsn"`
	PoolSize   int    `toml:"pool_size"`
}

// Default returns the built-in configuration: SQLite file store, port 8080,
// pool of 10 connections, merge updates, sha256 hashes.
func Default() Config {
	return Config{
		Port:     8080,
		LogLevel: "info",
		Database: Database{
			Driver:     DriverSQLite,
			SQLitePath: "data/usersdot.db",
			PoolSize:   10,
		},
		PatchMode:         "merge",
		PasswordAlgorithm: "sha256",
	}
}

// Load builds a Config from every layer except flags.
//
// path == "" reads DefaultFile if present; an explicit path must exist.
// envFile == "" means ".env"; a missing .env is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// no file, defaults stand
	default:
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := firstEnv("USERSDOT_PORT", "PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", v, err)
		}
		c.Port = port
	}
	if v := firstEnv("USERSDOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := firstEnv("USERSDOT_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := firstEnv("USERSDOT_SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := firstEnv("USERSDOT_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.Database.DSN = v
		// A DSN alone is enough to pick Postgres.
		if os.Getenv("USERSDOT_DB_DRIVER") == "" {
			c.Database.Driver = DriverPostgres
		}
	}
	if v := firstEnv("USERSDOT_DB_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid pool size %q: %w", v, err)
		}
		c.Database.PoolSize = n
	}
	if v := firstEnv("USERSDOT_CORS_ORIGINS"); v != "" {
		c.CORSOrigins = ParseCSV(v)
	}
	if v := firstEnv("USERSDOT_PATCH_MODE"); v != "" {
		c.PatchMode = v
	}
	if v := firstEnv("USERSDOT_PASSWORD_ALGORITHM"); v != "" {
		c.PasswordAlgorithm = v
	}
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("dsn (DATABASE_URL) is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("pool_size must be positive, got %d", c.Database.PoolSize))
	}

	switch strings.ToLower(c.PatchMode) {
	case "", "merge", "replace":
	default:
		errs = append(errs, fmt.Errorf("unknown patch_mode %q", c.PatchMode))
	}
	switch strings.ToLower(c.PasswordAlgorithm) {
	case "", "sha256", "bcrypt":
	default:
		errs = append(errs, fmt.Errorf("unknown password_algorithm %q", c.PasswordAlgorithm))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// ParseCSV splits a comma-separated list and drops empty entries.
func ParseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}
