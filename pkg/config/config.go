package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all server-level configuration for the engine.
// Configuration can come from YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Model provider transport
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`

	// Pipeline defaults; the user-editable values live in the local
	// settings file and override these.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// SettingsPath is where user-edited settings are persisted. The file is
	// local state and never committed.
	SettingsPath string `yaml:"settings_path" env:"SETTINGS_PATH" env-default:"settings.local.json"`
}

// OpenRouterConfig holds the OpenAI-compatible transport settings.
type OpenRouterConfig struct {
	BaseURL string `yaml:"base_url" env:"OPENROUTER_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	APIKey  string `yaml:"-" env:"OPENROUTER_API_KEY"` // Secret - not in YAML
}

// AnthropicConfig holds credentials for anthropic-qualified custom endpoints.
type AnthropicConfig struct {
	APIKey string `yaml:"-" env:"ANTHROPIC_API_KEY"` // Secret - not in YAML
}

// PipelineConfig holds the pipeline defaults.
type PipelineConfig struct {
	DefaultPlan       string `yaml:"default_plan" env:"DEFAULT_PLAN" env-default:"free"`
	DefaultMaxRetries int    `yaml:"default_max_retries" env:"DEFAULT_MAX_RETRIES" env-default:"2"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. When no config.yaml exists, environment variables alone are
// used. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	return cfg, nil
}
