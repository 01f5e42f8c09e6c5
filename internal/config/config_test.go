package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing date", func(c *Config) { c.Session.Date = "" }},
		{"malformed date", func(c *Config) { c.Session.Date = "21-08-2026" }},
		{"malformed open", func(c *Config) { c.Session.Open = "9am" }},
		{"unknown timezone", func(c *Config) { c.Session.Timezone = "Mars/Olympus" }},
		{"negative portfolio", func(c *Config) { c.Session.PortfolioValue = -1 }},
		{"unknown provider", func(c *Config) { c.Data.Provider = "csv" }},
		{"missing base url", func(c *Config) { c.Data.BaseURL = "" }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "dynamo" }},
		{"sqlite without path", func(c *Config) { c.Store.SQLite.Path = "" }},
		{"no strategies", func(c *Config) { c.Strategies = nil }},
		{"unnamed strategy", func(c *Config) { c.Strategies[0].Name = "" }},
		{"bad log level", func(c *Config) { c.System.LogLevel = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSessionWindow(t *testing.T) {
	cfg := DefaultConfig()
	start, end, err := cfg.SessionWindow()
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 21, 9, 30, 0, 0, loc), start)
	assert.Equal(t, time.Date(2026, 8, 21, 16, 0, 0, 0, loc), end)
}

func TestSessionWindowDefaultsAndOrdering(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Open = ""
	cfg.Session.Close = ""
	cfg.Session.Timezone = ""

	start, end, err := cfg.SessionWindow()
	require.NoError(t, err)
	assert.Equal(t, "09:30", start.Format("15:04"))
	assert.Equal(t, "16:00", end.Format("15:04"))

	cfg.Session.Open = "16:00"
	cfg.Session.Close = "09:30"
	_, _, err = cfg.SessionWindow()
	assert.Error(t, err)
}

func TestLoadConfigExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_BT_API_KEY", "secret-key-123")

	content := `
session:
  date: "2026-08-21"
data:
  provider: rest
  base_url: "https://api.polygon.io"
  api_key: "${TEST_BT_API_KEY}"
store:
  backend: memory
strategies:
  - name: ma_cross
system:
  log_level: INFO
  env: BACKTEST
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key-123", cfg.Data.APIKey)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.APIKey = "super-secret-api-key"
	cfg.Store.Postgres.Password = "hunter2"

	rendered := cfg.String()
	assert.NotContains(t, rendered, "super-secret-api-key")
	assert.NotContains(t, rendered, "hunter2")
}
