// Package config loads planforge configuration from .planforge/config.json
// with environment variables as the fallback source for API keys.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"planforge/internal/provider"
)

const (
	configDir  = ".planforge"
	configFile = "config.json"
)

// Config holds all planforge configuration from .planforge/config.json.
//
// Supported models by provider:
//   - anthropic: claude-sonnet-4-20250514 (default), claude-3-5-sonnet-20241022
//   - openai:    gpt-4o-mini (default), gpt-4o
//   - gemini:    gemini-2.0-flash (default), gemini-2.5-pro
type Config struct {
	// Provider pins the generation provider (anthropic, openai, gemini).
	// Empty means the first provider with a usable key wins.
	Provider string `json:"provider,omitempty"`

	// API keys per provider. The matching environment variable
	// (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY) fills any key left
	// empty here.
	AnthropicAPIKey string `json:"anthropic_api_key,omitempty"`
	OpenAIAPIKey    string `json:"openai_api_key,omitempty"`
	GeminiAPIKey    string `json:"gemini_api_key,omitempty"`

	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`

	// DatabasePath overrides where generated projects are stored.
	// Default: .planforge/projects.db
	DatabasePath string `json:"database_path,omitempty"`

	// Verbose enables debug logging without the --verbose flag.
	Verbose bool `json:"verbose,omitempty"`
}

// envKeys maps provider names to their key environment variables, in fallback
// order.
var envKeys = []struct {
	Provider string
	EnvVar   string
}{
	{"anthropic", "ANTHROPIC_API_KEY"},
	{"openai", "OPENAI_API_KEY"},
	{"gemini", "GEMINI_API_KEY"},
}

// Path returns the config file location under root (usually the working
// directory).
func Path(root string) string {
	return filepath.Join(root, configDir, configFile)
}

// Load reads the config file under root and merges environment keys into any
// provider left without one. A missing file is not an error; the result then
// carries environment keys only.
func Load(root string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(Path(root))
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", Path(root), err)
		}
	case os.IsNotExist(err):
		// fine, environment only
	default:
		return nil, fmt.Errorf("read %s: %w", Path(root), err)
	}

	cfg.mergeEnv()
	return cfg, nil
}

func (c *Config) mergeEnv() {
	for _, e := range envKeys {
		key := os.Getenv(e.EnvVar)
		if key == "" {
			continue
		}
		switch e.Provider {
		case "anthropic":
			if c.AnthropicAPIKey == "" {
				c.AnthropicAPIKey = key
			}
		case "openai":
			if c.OpenAIAPIKey == "" {
				c.OpenAIAPIKey = key
			}
		case "gemini":
			if c.GeminiAPIKey == "" {
				c.GeminiAPIKey = key
			}
		}
	}
}

// Save writes the config file under root, creating .planforge if needed.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, configDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Credentials returns per-provider credentials for every provider that has a
// key. The shared Model override applies to all of them.
func (c *Config) Credentials() map[string]provider.Credentials {
	out := make(map[string]provider.Credentials)
	if c.AnthropicAPIKey != "" {
		out["anthropic"] = provider.Credentials{APIKey: c.AnthropicAPIKey, Model: c.Model}
	}
	if c.OpenAIAPIKey != "" {
		out["openai"] = provider.Credentials{APIKey: c.OpenAIAPIKey, Model: c.Model}
	}
	if c.GeminiAPIKey != "" {
		out["gemini"] = provider.Credentials{APIKey: c.GeminiAPIKey, Model: c.Model}
	}
	return out
}

// DefaultProvider returns the pinned provider, or the first one with a key.
func (c *Config) DefaultProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	creds := c.Credentials()
	for _, e := range envKeys {
		if _, ok := creds[e.Provider]; ok {
			return e.Provider
		}
	}
	return ""
}

// Database returns the project store path under root.
func (c *Config) Database(root string) string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(root, configDir, "projects.db")
}
