package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/pipeline"
)

// Retry bounds for the correction loop.
const (
	MinMaxRetries     = 0
	MaxMaxRetries     = 10
	DefaultMaxRetries = 2
)

// Settings are the user-editable values. They are persisted to a local JSON
// file on every edit and merged over defaults on load, so new fields pick up
// their defaults for existing files.
type Settings struct {
	ActivePlan          models.PlanID `json:"active_plan"`
	CustomAnalysisModel string        `json:"custom_analysis_model,omitempty"`
	CustomSQLModel      string        `json:"custom_sql_model,omitempty"`
	OpenRouterAPIKey    string        `json:"openrouter_api_key,omitempty"`
	AnthropicAPIKey     string        `json:"anthropic_api_key,omitempty"`
	MaxRetries          int           `json:"max_retries"`
}

// clamp forces the settings into their allowed ranges.
func (s *Settings) clamp() {
	if s.MaxRetries < MinMaxRetries {
		s.MaxRetries = MinMaxRetries
	}
	if s.MaxRetries > MaxMaxRetries {
		s.MaxRetries = MaxMaxRetries
	}
	switch s.ActivePlan {
	case models.PlanFree, models.PlanPaid, models.PlanCustom:
	default:
		s.ActivePlan = models.PlanFree
	}
}

// SettingsStore owns the local settings file. It implements the pipeline's
// ConfigProvider: the orchestrator snapshots it at the start of each stage.
type SettingsStore struct {
	mu       sync.RWMutex
	path     string
	current  Settings
	defaults Settings
	baseURL  string

	// env-provided secrets used when the settings file carries no key
	envOpenRouterKey string
	envAnthropicKey  string
}

// NewSettingsStore loads the settings file (if any) merged over the
// server-level defaults.
func NewSettingsStore(cfg *Config) (*SettingsStore, error) {
	defaults := Settings{
		ActivePlan: models.PlanID(cfg.Pipeline.DefaultPlan),
		MaxRetries: cfg.Pipeline.DefaultMaxRetries,
	}
	defaults.clamp()

	s := &SettingsStore{
		path:             cfg.SettingsPath,
		defaults:         defaults,
		baseURL:          cfg.OpenRouter.BaseURL,
		envOpenRouterKey: cfg.OpenRouter.APIKey,
		envAnthropicKey:  cfg.Anthropic.APIKey,
	}

	current := defaults
	data, err := os.ReadFile(cfg.SettingsPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &current); err != nil {
			// A corrupt settings file falls back to defaults rather than
			// blocking startup.
			current = defaults
		}
	case os.IsNotExist(err):
		// First run; nothing persisted yet.
	default:
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	current.clamp()
	s.current = current

	return s, nil
}

// Get returns the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update clamps, persists and applies new settings.
func (s *SettingsStore) Update(settings Settings) error {
	settings.clamp()

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	// 0600: the file may hold API keys.
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	s.mu.Lock()
	s.current = settings
	s.mu.Unlock()
	return nil
}

// Snapshot implements pipeline.ConfigProvider. Keys absent from the settings
// file fall back to the environment-provided secrets.
func (s *SettingsStore) Snapshot() pipeline.ConfigSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	openRouterKey := s.current.OpenRouterAPIKey
	if openRouterKey == "" {
		openRouterKey = s.envOpenRouterKey
	}
	anthropicKey := s.current.AnthropicAPIKey
	if anthropicKey == "" {
		anthropicKey = s.envAnthropicKey
	}

	return pipeline.ConfigSnapshot{
		Plan:                   s.current.ActivePlan,
		CustomAnalysisEndpoint: models.ModelEndpoint(s.current.CustomAnalysisModel),
		CustomSQLEndpoint:      models.ModelEndpoint(s.current.CustomSQLModel),
		Credentials: llm.Credentials{
			OpenRouterBaseURL: s.baseURL,
			OpenRouterAPIKey:  openRouterKey,
			AnthropicAPIKey:   anthropicKey,
		},
		MaxRetries: s.current.MaxRetries,
	}
}

var _ pipeline.ConfigProvider = (*SettingsStore)(nil)
