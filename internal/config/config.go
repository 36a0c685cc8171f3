package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anmolpansara/ChatWithDB/internal/database"
)

// Config represents the application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	UI       UIConfig       `mapstructure:"ui"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DatabaseConfig holds the single PostgreSQL credential set.
type DatabaseConfig struct {
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	Name             string        `mapstructure:"name"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	SSLMode          string        `mapstructure:"sslmode"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// LLMConfig configures the OpenAI-compatible completion endpoint.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PolicyConfig controls what generated SQL may do.
type PolicyConfig struct {
	AllowMutations bool `mapstructure:"allow_mutations"`
	RowLimit       int  `mapstructure:"row_limit"`
}

// UIConfig holds presentation preferences.
type UIConfig struct {
	PreviewRows int `mapstructure:"preview_rows"`
}

// LogConfig controls the log file. The terminal belongs to the UI, so logs
// never go to stdout.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
	File  string `mapstructure:"file"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// FieldError reports an invalid or missing configuration key. It names the
// key and never the value.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Key, e.Reason)
}

// Validate fails on the first missing or out-of-range key.
func (c *Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"database.host", c.Database.Host},
		{"database.name", c.Database.Name},
		{"database.user", c.Database.User},
		{"llm.base_url", c.LLM.BaseURL},
		{"llm.api_key", c.LLM.APIKey},
		{"llm.model", c.LLM.Model},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &FieldError{Key: r.key, Reason: "is required"}
		}
	}

	switch {
	case c.Database.Port < 1 || c.Database.Port > 65535:
		return &FieldError{Key: "database.port", Reason: "must be between 1 and 65535"}
	case c.Database.ConnectTimeout <= 0:
		return &FieldError{Key: "database.connect_timeout", Reason: "must be positive"}
	case c.Database.StatementTimeout <= 0:
		return &FieldError{Key: "database.statement_timeout", Reason: "must be positive"}
	case c.LLM.Timeout <= 0:
		return &FieldError{Key: "llm.timeout", Reason: "must be positive"}
	case c.LLM.MaxTokens < 1:
		return &FieldError{Key: "llm.max_tokens", Reason: "must be at least 1"}
	case c.LLM.Temperature < 0 || c.LLM.Temperature > 2:
		return &FieldError{Key: "llm.temperature", Reason: "must be between 0 and 2"}
	case c.Policy.RowLimit < 1:
		return &FieldError{Key: "policy.row_limit", Reason: "must be at least 1"}
	case c.UI.PreviewRows < 1:
		return &FieldError{Key: "ui.preview_rows", Reason: "must be at least 1"}
	}

	if _, err := c.LogLevel(); err != nil {
		return &FieldError{Key: "log.level", Reason: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ConnectionConfig returns the database connection parameters.
func (c *Config) ConnectionConfig() database.ConnectionConfig {
	return database.ConnectionConfig{
		Host:           c.Database.Host,
		Port:           c.Database.Port,
		Database:       c.Database.Name,
		User:           c.Database.User,
		Password:       c.Database.Password,
		SSLMode:        c.Database.SSLMode,
		ConnectTimeout: c.Database.ConnectTimeout,
	}
}

// LogLevel parses Log.Level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(strings.TrimSpace(c.Log.Level)))
	return level, err
}

// Secrets returns configured values that must never be shown to the user.
func (c *Config) Secrets() []string {
	var out []string
	for _, s := range []string{c.Database.Password, c.LLM.APIKey} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
