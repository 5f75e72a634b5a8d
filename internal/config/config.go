// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Database  DatabaseConfig
	Search    SearchConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataPath    string // Base directory for the database and search index
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	File  string // Optional rotating log file; empty logs to stdout only
}

// DatabaseConfig holds catalog store configuration.
type DatabaseConfig struct {
	Driver string // sqlite, badger or memory (default: sqlite)
	Path   string // File (sqlite) or directory (badger); defaults under DataPath
}

// SearchConfig holds full-text search configuration.
type SearchConfig struct {
	Enabled bool   // default: true
	Path    string // Index directory (default: {data}/search)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
}

// RateLimitConfig holds the per-IP limit applied to mutating requests.
type RateLimitConfig struct {
	Enabled           bool // default: true
	RequestsPerMinute int  // default: 120
	Burst             int  // default: 30
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("wardrobe", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "", "Also write logs to this file, rotated")
	dataPath := fs.String("data-path", "", "Base directory for data (default: ~/Wardrobe/data)")

	// Database flags
	dbDriver := fs.String("db-driver", "", "Catalog store: sqlite, badger or memory (default: sqlite)")
	dbPath := fs.String("db-path", "", "Database file or directory")

	// Search flags
	searchEnabled := fs.String("search-enabled", "", "Enable full-text search (default: true)")
	searchPath := fs.String("search-path", "", "Search index directory")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	// Rate limit flags
	rateLimitEnabled := fs.String("rate-limit-enabled", "", "Rate limit mutating requests (default: true)")
	rateLimitRPM := fs.String("rate-limit-rpm", "", "Mutating requests per minute per IP (default: 120)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Rate limit burst size (default: 30)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataPath:    getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			File:  getConfigValue(*logFile, "LOG_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver: strings.ToLower(getConfigValue(*dbDriver, "DB_DRIVER", DriverSQLite)),
			Path:   getConfigValue(*dbPath, "DB_PATH", ""),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
			Path:    getConfigValue(*searchPath, "SEARCH_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getIntConfigValue(*rateLimitRPM, "RATE_LIMIT_RPM", 120),
			Burst:             getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 30),
		},
	}

	// Parse server timeouts.
	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}

	// Expand data, database and search paths.
	if err := cfg.expandPaths(); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverBadger:
		if c.Database.Path == "" {
			return errors.New("database path cannot be empty after expansion")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("invalid database driver: %s (must be sqlite, badger, or memory)", c.Database.Driver)
	}

	if c.Search.Enabled && c.Search.Path == "" {
		return errors.New("search path cannot be empty when search is enabled")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate limit requests per minute and burst must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandPaths resolves the data directory, then defaults the database and
// search locations beneath it.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	if c.App.DataPath, err = expandPath(c.App.DataPath, filepath.Join(homeDir, "Wardrobe", "data")); err != nil {
		return err
	}

	var defaultDB string
	switch c.Database.Driver {
	case DriverSQLite:
		defaultDB = filepath.Join(c.App.DataPath, "wardrobe.db")
	case DriverBadger:
		defaultDB = filepath.Join(c.App.DataPath, "badger")
	}
	if c.Database.Driver != DriverMemory {
		if c.Database.Path, err = expandPath(c.Database.Path, defaultDB); err != nil {
			return err
		}
	}

	if c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(c.App.DataPath, "search")); err != nil {
		return err
	}

	if c.Logger.File != "" {
		if c.Logger.File, err = expandPath(c.Logger.File, ""); err != nil {
			return err
		}
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
