// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	Session    SessionConfig    `yaml:"session"`
	Data       DataConfig       `yaml:"data"`
	Store      StoreConfig      `yaml:"store"`
	Scanners   []ScannerConfig  `yaml:"scanners"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	System     SystemConfig     `yaml:"system"`
}

// SessionConfig describes the simulated trading day
type SessionConfig struct {
	Date           string   `yaml:"date"`     // trading day, e.g. 2026-08-21
	Open           string   `yaml:"open"`     // session open, e.g. 09:30
	Close          string   `yaml:"close"`    // session close, e.g. 16:00
	Timezone       string   `yaml:"timezone"` // IANA zone of open/close
	LookbackDays   int      `yaml:"lookback_days"`
	PortfolioValue float64  `yaml:"portfolio_value"`
	Symbols        []string `yaml:"symbols"` // explicit symbols, seeded before the first tick
}

// DataConfig contains bar provider settings
type DataConfig struct {
	Provider       string `yaml:"provider"` // rest
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	RateLimitRPS   int    `yaml:"rate_limit_rps"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// StoreConfig selects and configures the trade store backend
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // sqlite, postgres or memory
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains the SQLite backend settings
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig contains the Postgres backend settings
type PostgresConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	SSLMode    string `yaml:"ssl_mode"`
	ConnString string `yaml:"conn_string"`
}

// ScannerConfig names a scanner and its parameters
type ScannerConfig struct {
	Name   string                 `yaml:"name"`
	Params map[string]interface{} `yaml:"params"`
}

// StrategyConfig names a strategy and its parameters
type StrategyConfig struct {
	Name   string                 `yaml:"name"`
	Params map[string]interface{} `yaml:"params"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
	Env      string `yaml:"env"` // recorded on each algo run, e.g. BACKTEST
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateSessionConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateDataConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateStoreConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateStrategies(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return nil
}

func (c *Config) validateSessionConfig() error {
	if c.Session.Date == "" {
		return ValidationError{
			Field:   "session.date",
			Message: "trading day is required",
		}
	}
	if _, err := time.Parse("2006-01-02", c.Session.Date); err != nil {
		return ValidationError{
			Field:   "session.date",
			Value:   c.Session.Date,
			Message: "must be formatted YYYY-MM-DD",
		}
	}
	for field, value := range map[string]string{
		"session.open":  c.Session.Open,
		"session.close": c.Session.Close,
	} {
		if value == "" {
			continue // defaults apply
		}
		if _, err := time.Parse("15:04", value); err != nil {
			return ValidationError{
				Field:   field,
				Value:   value,
				Message: "must be formatted HH:MM",
			}
		}
	}
	if c.Session.Timezone != "" {
		if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
			return ValidationError{
				Field:   "session.timezone",
				Value:   c.Session.Timezone,
				Message: "unknown IANA timezone",
			}
		}
	}
	if c.Session.PortfolioValue < 0 {
		return ValidationError{
			Field:   "session.portfolio_value",
			Value:   c.Session.PortfolioValue,
			Message: "must not be negative",
		}
	}
	return nil
}

func (c *Config) validateDataConfig() error {
	validProviders := []string{"rest"}
	if !contains(validProviders, c.Data.Provider) {
		return ValidationError{
			Field:   "data.provider",
			Value:   c.Data.Provider,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validProviders, ", ")),
		}
	}
	if c.Data.BaseURL == "" {
		return ValidationError{
			Field:   "data.base_url",
			Message: "base URL is required",
		}
	}
	return nil
}

func (c *Config) validateStoreConfig() error {
	validBackends := []string{"sqlite", "postgres", "memory"}
	if !contains(validBackends, c.Store.Backend) {
		return ValidationError{
			Field:   "store.backend",
			Value:   c.Store.Backend,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validBackends, ", ")),
		}
	}
	if c.Store.Backend == "sqlite" && c.Store.SQLite.Path == "" {
		return ValidationError{
			Field:   "store.sqlite.path",
			Message: "database path is required for the sqlite backend",
		}
	}
	if c.Store.Backend == "postgres" &&
		c.Store.Postgres.ConnString == "" && c.Store.Postgres.Database == "" {
		return ValidationError{
			Field:   "store.postgres",
			Message: "either conn_string or database is required for the postgres backend",
		}
	}
	return nil
}

func (c *Config) validateStrategies() error {
	if len(c.Strategies) == 0 {
		return ValidationError{
			Field:   "strategies",
			Message: "at least one strategy must be configured",
		}
	}
	for i, s := range c.Strategies {
		if s.Name == "" {
			return ValidationError{
				Field:   fmt.Sprintf("strategies[%d].name", i),
				Message: "strategy name is required",
			}
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{
			Field:   "system.log_level",
			Value:   c.System.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

// SessionWindow resolves the configured trading day to concrete open and
// close instants in the session timezone.
func (c *Config) SessionWindow() (time.Time, time.Time, error) {
	tz := c.Session.Timezone
	if tz == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to load timezone: %w", err)
	}

	open := c.Session.Open
	if open == "" {
		open = "09:30"
	}
	clos := c.Session.Close
	if clos == "" {
		clos = "16:00"
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", c.Session.Date+" "+open, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse session open: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02 15:04", c.Session.Date+" "+clos, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to parse session close: %w", err)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, ValidationError{
			Field:   "session.close",
			Value:   clos,
			Message: "session close must be after open",
		}
	}
	return start, end, nil
}

// String returns a string representation of the configuration (with sensitive data masked)
func (c *Config) String() string {
	configCopy := *c
	configCopy.Data.APIKey = maskString(configCopy.Data.APIKey)
	configCopy.Store.Postgres.Password = maskString(configCopy.Store.Postgres.Password)

	data, _ := yaml.Marshal(configCopy)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Date:           "2026-08-21",
			Open:           "09:30",
			Close:          "16:00",
			Timezone:       "America/New_York",
			LookbackDays:   7,
			PortfolioValue: 100000,
			Symbols:        []string{"AAPL", "MSFT"},
		},
		Data: DataConfig{
			Provider:       "rest",
			BaseURL:        "https://api.polygon.io",
			APIKey:         "test_api_key",
			RateLimitRPS:   5,
			TimeoutSeconds: 30,
		},
		Store: StoreConfig{
			Backend: "sqlite",
			SQLite:  SQLiteConfig{Path: "backtester.db"},
		},
		Scanners: []ScannerConfig{
			{Name: "watchlist", Params: map[string]interface{}{
				"symbols": []interface{}{"AAPL", "MSFT"},
			}},
		},
		Strategies: []StrategyConfig{
			{Name: "ma_cross", Params: map[string]interface{}{
				"fast": 9, "slow": 21, "qty": 100,
			}},
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: false,
		},
		System: SystemConfig{
			LogLevel: "INFO",
			Env:      "BACKTEST",
		},
	}
}
