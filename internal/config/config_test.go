package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/library-server/internal/domain"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Database: DatabaseConfig{Path: "/data/library.db"},
		Circulation: CirculationConfig{
			LoanPeriodDays: 14,
			ExtensionDays:  7,
			HoldDays:       3,
			SweepInterval:  time.Hour,
		},
		Search:    SearchConfig{Enabled: true, Path: "/data/search"},
		RateLimit: RateLimitConfig{MutationsPerMinute: 120, Burst: 30},
	}
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env     string
		wantErr bool
	}{
		{"development", false},
		{"staging", false},
		{"production", false},
		{"", true},
		{"test", true},
		{"PRODUCTION", true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"DEBUG", false},
		{"trace", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_Circulation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero loan period", func(c *Config) { c.Circulation.LoanPeriodDays = 0 }, "loan period"},
		{"loan period too long", func(c *Config) { c.Circulation.LoanPeriodDays = 366 }, "loan period"},
		{"zero extension", func(c *Config) { c.Circulation.ExtensionDays = 0 }, "extension"},
		{"extension too long", func(c *Config) { c.Circulation.ExtensionDays = 91 }, "extension"},
		{"zero hold", func(c *Config) { c.Circulation.HoldDays = 0 }, "reservation hold"},
		{"negative sweep", func(c *Config) { c.Circulation.SweepInterval = -time.Second }, "sweep interval"},
		{"negative rate", func(c *Config) { c.RateLimit.MutationsPerMinute = -1 }, "rate limit"},
		{"no burst", func(c *Config) { c.RateLimit.Burst = 0 }, "burst"},
		{"no search path", func(c *Config) { c.Search.Path = "" }, "search path"},
		{"no database path", func(c *Config) { c.Database.Path = "" }, "database path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_DisabledFeaturesSkipChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Search = SearchConfig{Enabled: false}
	cfg.RateLimit = RateLimitConfig{}
	cfg.Circulation.SweepInterval = 0

	assert.NoError(t, cfg.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load([]string{
		"-env-file", filepath.Join(tmpDir, "missing.env"),
		"-db-path", filepath.Join(tmpDir, "library.db"),
	})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Empty(t, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, domain.DefaultLoanPeriodDays, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, domain.DefaultExtensionDays, cfg.Circulation.ExtensionDays)
	assert.Equal(t, domain.DefaultHoldDays, cfg.Circulation.HoldDays)
	assert.Equal(t, time.Hour, cfg.Circulation.SweepInterval)
	assert.True(t, cfg.Search.Enabled)
	assert.Equal(t, filepath.Join(tmpDir, "search"), cfg.Search.Path)
	assert.Equal(t, 120, cfg.RateLimit.MutationsPerMinute)
	assert.Equal(t, 30, cfg.RateLimit.Burst)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("LOAN_PERIOD_DAYS", "21")
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	cfg, err := Load([]string{
		"-env-file", filepath.Join(tmpDir, "missing.env"),
		"-db-path", filepath.Join(tmpDir, "library.db"),
		"-port", "7000",
		"-sweep-interval", "15m",
	})
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, 21, cfg.Circulation.LoanPeriodDays)
	assert.Equal(t, 15*time.Minute, cfg.Circulation.SweepInterval)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load([]string{
		"-env-file", filepath.Join(tmpDir, "missing.env"),
		"-db-path", filepath.Join(tmpDir, "library.db"),
		"-read-timeout", "soon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_read_timeout")
}

func TestLoad_ValidationFailure(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load([]string{
		"-env-file", filepath.Join(tmpDir, "missing.env"),
		"-db-path", filepath.Join(tmpDir, "library.db"),
		"-extension-days", "120",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestExpandPath(t *testing.T) {
	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty uses default", "", "/default/path"},
		{"tilde", "~/my-data", filepath.Join(homeDir, "my-data")},
		{"absolute", "/absolute/path/to/data", "/absolute/path/to/data"},
		{"cleaned", "/a/b/../c", "/a/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandPath(tt.in, "/default/path")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	got, err := expandPath("relative/path", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
	assert.Contains(t, got, "relative/path")
}

func TestGetConfigValue_Precedence(t *testing.T) {
	result := getConfigValue("flag-value", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	t.Setenv("TEST_ENV_KEY", "env-value")
	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("yes", "X", false))
	assert.True(t, getBoolConfigValue("1", "X", false))
	assert.False(t, getBoolConfigValue("off", "X", true))
	assert.True(t, getBoolConfigValue("", "NONEXISTENT_KEY", true))
}

func TestGetIntConfigValue(t *testing.T) {
	assert.Equal(t, 42, getIntConfigValue("42", "X", 1))
	assert.Equal(t, 1, getIntConfigValue("many", "X", 1))
	assert.Equal(t, 5, getIntConfigValue("", "NONEXISTENT_KEY", 5))
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
LIB_TEST_ENV=staging
LIB_TEST_LEVEL=debug
# Comment line
LIB_TEST_QUOTED="some value"
LIB_TEST_SINGLE='another value'
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	for _, k := range []string{"LIB_TEST_ENV", "LIB_TEST_LEVEL", "LIB_TEST_QUOTED", "LIB_TEST_SINGLE"} {
		t.Setenv(k, "")
	}

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "staging", os.Getenv("LIB_TEST_ENV"))
	assert.Equal(t, "debug", os.Getenv("LIB_TEST_LEVEL"))
	assert.Equal(t, "some value", os.Getenv("LIB_TEST_QUOTED"))
	assert.Equal(t, "another value", os.Getenv("LIB_TEST_SINGLE"))
}

func TestLoadEnvFile_ExistingEnvWins(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LIB_TEST_KEEP=file\n"), 0o644))

	t.Setenv("LIB_TEST_KEEP", "process")
	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "process", os.Getenv("LIB_TEST_KEEP"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o644))

	err := loadEnvFile(envFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}
