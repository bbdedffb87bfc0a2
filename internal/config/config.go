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

	"github.com/listenupapp/library-server/internal/domain"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Database    DatabaseConfig
	Server      ServerConfig
	Circulation CirculationConfig
	Search      SearchConfig
	RateLimit   RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DatabaseConfig holds SQLite storage configuration.
type DatabaseConfig struct {
	Path string // Database file (default: ~/LibraryServer/library.db)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port               string        // Server port (default: 8080)
	ReadTimeout        time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout       time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout        time.Duration // HTTP idle timeout (default: 60s)
	CORSAllowedOrigins []string      // Empty disables CORS handling
}

// CirculationConfig holds loan and reservation policy.
type CirculationConfig struct {
	LoanPeriodDays int           // Default loan length (default: 14)
	ExtensionDays  int           // Default extension length (default: 7)
	HoldDays       int           // How long a READY reservation is held (default: 3)
	SweepInterval  time.Duration // Expired-reservation sweep period; 0 disables (default: 1h)
}

// SearchConfig holds full-text index configuration.
type SearchConfig struct {
	Enabled bool   // default: true
	Path    string // Index directory (default: next to the database)
}

// RateLimitConfig bounds mutating requests per client.
type RateLimitConfig struct {
	MutationsPerMinute int // 0 disables limiting (default: 120)
	Burst              int // default: 30
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
	fs := flag.NewFlagSet("library-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dbPath := fs.String("db-path", "", "Path to the SQLite database file")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")

	// Circulation flags
	loanPeriod := fs.String("loan-period-days", "", "Default loan period in days (default: 14)")
	extension := fs.String("extension-days", "", "Default loan extension in days (default: 7)")
	holdDays := fs.String("hold-days", "", "Days a ready reservation is held (default: 3)")
	sweepInterval := fs.String("sweep-interval", "", "Expired reservation sweep interval, 0 disables (default: 1h)")

	// Search flags
	searchEnabled := fs.String("search-enabled", "", "Enable the full-text index (default: true)")
	searchPath := fs.String("search-path", "", "Directory for the full-text index")

	// Rate limit flags
	mutationsPerMinute := fs.String("rate-limit", "", "Mutating requests per minute per client, 0 disables (default: 120)")
	burst := fs.String("rate-burst", "", "Rate limit burst (default: 30)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Path: getConfigValue(*dbPath, "DB_PATH", ""),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "")),
		},
		Circulation: CirculationConfig{
			LoanPeriodDays: getIntConfigValue(*loanPeriod, "LOAN_PERIOD_DAYS", domain.DefaultLoanPeriodDays),
			ExtensionDays:  getIntConfigValue(*extension, "EXTENSION_DAYS", domain.DefaultExtensionDays),
			HoldDays:       getIntConfigValue(*holdDays, "RESERVATION_HOLD_DAYS", domain.DefaultHoldDays),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
			Path:    getConfigValue(*searchPath, "SEARCH_PATH", ""),
		},
		RateLimit: RateLimitConfig{
			MutationsPerMinute: getIntConfigValue(*mutationsPerMinute, "RATE_LIMIT_PER_MINUTE", 120),
			Burst:              getIntConfigValue(*burst, "RATE_LIMIT_BURST", 30),
		},
	}

	durations := []struct {
		flag, env, def string
		dst            *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*sweepInterval, "RESERVATION_SWEEP_INTERVAL", "1h", &cfg.Circulation.SweepInterval},
	}
	for _, d := range durations {
		v, err := getDurationConfigValue(d.flag, d.env, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
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

	if c.Database.Path == "" {
		return errors.New("database path cannot be empty after expansion")
	}

	if c.Circulation.LoanPeriodDays < 1 || c.Circulation.LoanPeriodDays > 365 {
		return fmt.Errorf("loan period must be between 1 and 365 days, got %d", c.Circulation.LoanPeriodDays)
	}
	if c.Circulation.ExtensionDays < 1 || c.Circulation.ExtensionDays > 90 {
		return fmt.Errorf("extension must be between 1 and 90 days, got %d", c.Circulation.ExtensionDays)
	}
	if c.Circulation.HoldDays < 1 {
		return fmt.Errorf("reservation hold must be at least 1 day, got %d", c.Circulation.HoldDays)
	}
	if c.Circulation.SweepInterval < 0 {
		return errors.New("sweep interval cannot be negative")
	}

	if c.RateLimit.MutationsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate limit values cannot be negative")
	}
	if c.RateLimit.MutationsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return errors.New("rate limit burst must be positive when limiting is enabled")
	}

	if c.Search.Enabled && c.Search.Path == "" {
		return errors.New("search path cannot be empty when search is enabled")
	}

	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// expandPaths resolves the database and index locations. The index defaults
// to a directory next to the database file.
func (c *Config) expandPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	c.Database.Path, err = expandPath(c.Database.Path, filepath.Join(homeDir, "LibraryServer", "library.db"))
	if err != nil {
		return fmt.Errorf("invalid database path: %w", err)
	}

	c.Search.Path, err = expandPath(c.Search.Path, filepath.Join(filepath.Dir(c.Database.Path), "search"))
	if err != nil {
		return fmt.Errorf("invalid search path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
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
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), s, err)
	}
	return d, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars already set take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
