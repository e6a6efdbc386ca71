// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided
// via CLI flags or environment variables.
type Config struct {
	// Behavior
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	UseBrowser  bool   `json:"use_browser,omitempty"`  // Use headless browser for SPA sites
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	MaxPages    int    `json:"max_pages,omitempty"`    // Crawl budget per business site

	// Voice provisioning
	VoiceBaseURL string `json:"voice_base_url,omitempty"`
	VoiceAPIKey  string `json:"voice_api_key,omitempty"`

	// Telephony
	TelephonyBaseURL    string `json:"telephony_base_url,omitempty"`
	TelephonyAccountSID string `json:"telephony_account_sid,omitempty"`
	TelephonyAuthToken  string `json:"telephony_auth_token,omitempty"`

	// Business directory
	DirectoryBaseURL string `json:"directory_base_url,omitempty"`
	DirectoryAPIKey  string `json:"directory_api_key,omitempty"`
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv fills a config from environment variables. Used by the server,
// where JSON config files are not the primary source.
func FromEnv() Config {
	maxPages := 0
	fmt.Sscanf(os.Getenv("CRAWL_MAX_PAGES"), "%d", &maxPages) //nolint:errcheck

	return Config{
		APIKey:              os.Getenv("GEMINI_API_KEY"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MaxPages:            maxPages,
		VoiceBaseURL:        os.Getenv("VOICE_BASE_URL"),
		VoiceAPIKey:         os.Getenv("VOICE_API_KEY"),
		TelephonyBaseURL:    os.Getenv("TELEPHONY_BASE_URL"),
		TelephonyAccountSID: os.Getenv("TELEPHONY_ACCOUNT_SID"),
		TelephonyAuthToken:  os.Getenv("TELEPHONY_AUTH_TOKEN"),
		DirectoryBaseURL:    os.Getenv("DIRECTORY_BASE_URL"),
		DirectoryAPIKey:     os.Getenv("DIRECTORY_API_KEY"),
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.MaxPages < 0 {
		return fmt.Errorf("config error: 'max_pages' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}
	if result.VoiceBaseURL == "" {
		result.VoiceBaseURL = defaults.VoiceBaseURL
	}
	if result.VoiceAPIKey == "" {
		result.VoiceAPIKey = defaults.VoiceAPIKey
	}
	if result.TelephonyBaseURL == "" {
		result.TelephonyBaseURL = defaults.TelephonyBaseURL
	}
	if result.TelephonyAccountSID == "" {
		result.TelephonyAccountSID = defaults.TelephonyAccountSID
	}
	if result.TelephonyAuthToken == "" {
		result.TelephonyAuthToken = defaults.TelephonyAuthToken
	}
	if result.DirectoryBaseURL == "" {
		result.DirectoryBaseURL = defaults.DirectoryBaseURL
	}
	if result.DirectoryAPIKey == "" {
		result.DirectoryAPIKey = defaults.DirectoryAPIKey
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
