// Package config holds the explicit configuration object for the DATA
// assistant. It is constructed once at process start and injected into
// each component constructor; nothing in the core reads settings from
// globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"dataassist/internal/derr"
)

// Config holds all DATA configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM backends
	LLM LLMConfig `yaml:"llm"`

	// Privacy filtering
	Privacy PrivacyConfig `yaml:"privacy"`

	// Conversation history inclusion
	History HistoryConfig `yaml:"history"`

	// Attachment downloading and image shrinking
	Attachments AttachmentConfig `yaml:"attachments"`

	// Email/calendar analyzers
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Task repositories
	Smartsheet SmartsheetConfig `yaml:"smartsheet"`

	// Mail repository
	Gmail GmailConfig `yaml:"gmail"`

	// HTTP surface
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig configures one LLM backend.
type BackendConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// LLMConfig configures the two-backend split: Primary is tool-capable and
// vision-capable; Secondary is the fast text-only conversational lane.
type LLMConfig struct {
	Primary   BackendConfig `yaml:"primary"`
	Secondary BackendConfig `yaml:"secondary"`
}

// PrivacyConfig configures the email privacy filter.
type PrivacyConfig struct {
	BlocklistPath   string   `yaml:"blocklist_path"`
	SensitiveLabels []string `yaml:"sensitive_labels"`
}

// HistoryConfig controls how much conversation history reaches the model.
type HistoryConfig struct {
	// ActionTurns is the history depth for action intents. Kept small so
	// stale tool calls in history do not re-trigger mutations.
	ActionTurns int `yaml:"action_turns"`
	// RecentTurns is the verbatim window for all other intents; older
	// turns are collapsed into a summary.
	RecentTurns int `yaml:"recent_turns"`
}

// AttachmentConfig configures attachment fetching.
type AttachmentConfig struct {
	DownloadTimeout string `yaml:"download_timeout"`
	MaxImageBytes   int    `yaml:"max_image_bytes"`
}

// AnalyzerConfig configures the pattern analyzers.
type AnalyzerConfig struct {
	UserAddress     string `yaml:"user_address"`
	MinDomainCount  int    `yaml:"min_domain_count"`
	SuggestionTTL   string `yaml:"suggestion_ttl"`
	AttentionTTL    string `yaml:"attention_ttl"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	FallbackDir  string `yaml:"fallback_dir"`
}

// SmartsheetConfig configures the Smartsheet task repository client.
type SmartsheetConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	SheetID string `yaml:"sheet_id"`
	Timeout string `yaml:"timeout"`
}

// GmailConfig configures the Gmail mail repository adapter.
type GmailConfig struct {
	CredentialsPath string `yaml:"credentials_path"`
	TokenPath       string `yaml:"token_path"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	DebugMode  bool   `yaml:"debug_mode"`
	Level      string `yaml:"level"`
	JSONFormat bool   `yaml:"json_format"`
	Dir        string `yaml:"dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "DATA",
		Version: "1.0.0",

		LLM: LLMConfig{
			Primary: BackendConfig{
				Provider: "anthropic",
				Model:    "claude-sonnet-4-20250514",
				BaseURL:  "https://api.anthropic.com/v1",
				Timeout:  "120s",
			},
			Secondary: BackendConfig{
				Provider: "gemini",
				Model:    "gemini-2.0-flash",
				BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
				Timeout:  "30s",
			},
		},

		Privacy: PrivacyConfig{
			BlocklistPath:   ".data/blocklist.txt",
			SensitiveLabels: []string{"SENSITIVE", "CONFIDENTIAL", "Private/Sensitive"},
		},

		History: HistoryConfig{
			ActionTurns: 2,
			RecentTurns: 6,
		},

		Attachments: AttachmentConfig{
			DownloadTimeout: "20s",
			MaxImageBytes:   4 * 1024 * 1024,
		},

		Analyzer: AnalyzerConfig{
			MinDomainCount: 2,
			SuggestionTTL:  "168h", // one week
			AttentionTTL:   "72h",
		},

		Store: StoreConfig{
			DatabasePath: ".data/dataassist.db",
			FallbackDir:  ".data/fallback",
		},

		Smartsheet: SmartsheetConfig{
			BaseURL: "https://api.smartsheet.com/2.0",
			Timeout: "30s",
		},

		Gmail: GmailConfig{
			CredentialsPath: ".data/gmail_credentials.json",
			TokenPath:       ".data/gmail_token.json",
		},

		Server: ServerConfig{
			Addr: "127.0.0.1:8087",
		},

		Logging: LoggingConfig{
			Level: "info",
			Dir:   ".data",
		},
	}
}

// Load loads configuration from a YAML file, applying defaults for
// anything unset and environment overrides last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Primary.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.Secondary.APIKey = key
	}
	if key := os.Getenv("SMARTSHEET_API_KEY"); key != "" {
		c.Smartsheet.APIKey = key
	}
	if tok := os.Getenv("DATA_AUTH_TOKEN"); tok != "" {
		c.Server.AuthToken = tok
	}
	if path := os.Getenv("DATA_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// Validate checks that the configuration is usable. Missing credentials
// surface as ConfigurationError: fatal, never retried.
func (c *Config) Validate() error {
	if c.LLM.Primary.APIKey == "" {
		return derr.NewConfigurationError("llm.primary.api_key", "set ANTHROPIC_API_KEY")
	}
	if c.LLM.Secondary.APIKey == "" {
		return derr.NewConfigurationError("llm.secondary.api_key", "set GEMINI_API_KEY")
	}
	if c.History.ActionTurns <= 0 || c.History.RecentTurns <= 0 {
		return derr.NewConfigurationError("history", "turn windows must be positive")
	}
	return nil
}

// parseDuration is the shared lenient duration reader.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// PrimaryTimeout returns the primary backend call timeout.
func (c *Config) PrimaryTimeout() time.Duration {
	return parseDuration(c.LLM.Primary.Timeout, 120*time.Second)
}

// SecondaryTimeout returns the secondary backend call timeout.
func (c *Config) SecondaryTimeout() time.Duration {
	return parseDuration(c.LLM.Secondary.Timeout, 30*time.Second)
}

// DownloadTimeout returns the attachment download timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return parseDuration(c.Attachments.DownloadTimeout, 20*time.Second)
}

// SuggestionTTL returns the rule suggestion time-to-live.
func (c *Config) SuggestionTTL() time.Duration {
	return parseDuration(c.Analyzer.SuggestionTTL, 7*24*time.Hour)
}

// AttentionTTL returns the attention item time-to-live.
func (c *Config) AttentionTTL() time.Duration {
	return parseDuration(c.Analyzer.AttentionTTL, 72*time.Hour)
}

// SmartsheetTimeout returns the task repository HTTP timeout.
func (c *Config) SmartsheetTimeout() time.Duration {
	return parseDuration(c.Smartsheet.Timeout, 30*time.Second)
}
