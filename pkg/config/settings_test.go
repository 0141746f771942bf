package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataclinic-ai/engine/pkg/models"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		OpenRouter:   OpenRouterConfig{BaseURL: "https://openrouter.ai/api/v1"},
		Pipeline:     PipelineConfig{DefaultPlan: "free", DefaultMaxRetries: 2},
		SettingsPath: filepath.Join(t.TempDir(), "settings.local.json"),
	}
}

func TestNewSettingsStore_FirstRunUsesDefaults(t *testing.T) {
	store, err := NewSettingsStore(testConfig(t))
	require.NoError(t, err)

	s := store.Get()
	assert.Equal(t, models.PlanFree, s.ActivePlan)
	assert.Equal(t, 2, s.MaxRetries)
}

func TestNewSettingsStore_CorruptFileFallsBackToDefaults(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.SettingsPath, []byte("{not json"), 0o600))

	store, err := NewSettingsStore(cfg)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, store.Get().ActivePlan)
}

func TestUpdate_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)

	store, err := NewSettingsStore(cfg)
	require.NoError(t, err)

	require.NoError(t, store.Update(Settings{
		ActivePlan:       models.PlanPaid,
		OpenRouterAPIKey: "sk-or-test",
		MaxRetries:       5,
	}))

	reloaded, err := NewSettingsStore(cfg)
	require.NoError(t, err)

	s := reloaded.Get()
	assert.Equal(t, models.PlanPaid, s.ActivePlan)
	assert.Equal(t, "sk-or-test", s.OpenRouterAPIKey)
	assert.Equal(t, 5, s.MaxRetries)
}

func TestUpdate_FilePermissions(t *testing.T) {
	cfg := testConfig(t)

	store, err := NewSettingsStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Update(Settings{ActivePlan: models.PlanFree, MaxRetries: 2}))

	info, err := os.Stat(cfg.SettingsPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestUpdate_ClampsMaxRetries(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-5, 0},
		{0, 0},
		{10, 10},
		{50, 10},
	}

	store, err := NewSettingsStore(testConfig(t))
	require.NoError(t, err)

	for _, tt := range tests {
		require.NoError(t, store.Update(Settings{ActivePlan: models.PlanFree, MaxRetries: tt.in}))
		assert.Equal(t, tt.want, store.Get().MaxRetries)
	}
}

func TestUpdate_UnknownPlanClampsToFree(t *testing.T) {
	store, err := NewSettingsStore(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, store.Update(Settings{ActivePlan: "enterprise", MaxRetries: 2}))
	assert.Equal(t, models.PlanFree, store.Get().ActivePlan)
}

func TestSnapshot_FallsBackToEnvKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenRouter.APIKey = "env-openrouter"
	cfg.Anthropic.APIKey = "env-anthropic"

	store, err := NewSettingsStore(cfg)
	require.NoError(t, err)

	snap := store.Snapshot()
	assert.Equal(t, "env-openrouter", snap.Credentials.OpenRouterAPIKey)
	assert.Equal(t, "env-anthropic", snap.Credentials.AnthropicAPIKey)

	require.NoError(t, store.Update(Settings{
		ActivePlan:       models.PlanFree,
		OpenRouterAPIKey: "file-openrouter",
		MaxRetries:       2,
	}))
	snap = store.Snapshot()
	assert.Equal(t, "file-openrouter", snap.Credentials.OpenRouterAPIKey)
	assert.Equal(t, "env-anthropic", snap.Credentials.AnthropicAPIKey)
}

func TestSnapshot_CarriesCustomEndpoints(t *testing.T) {
	store, err := NewSettingsStore(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, store.Update(Settings{
		ActivePlan:          models.PlanCustom,
		CustomAnalysisModel: "openrouter:mistralai/mistral-large",
		CustomSQLModel:      "anthropic:claude-3-5-sonnet-20241022",
		MaxRetries:          3,
	}))

	snap := store.Snapshot()
	assert.Equal(t, models.PlanCustom, snap.Plan)
	assert.Equal(t, models.ModelEndpoint("openrouter:mistralai/mistral-large"), snap.CustomAnalysisEndpoint)
	assert.Equal(t, models.ModelEndpoint("anthropic:claude-3-5-sonnet-20241022"), snap.CustomSQLEndpoint)
	assert.Equal(t, 3, snap.MaxRetries)
}

func TestSettingsFile_OmitsEmptySecrets(t *testing.T) {
	cfg := testConfig(t)

	store, err := NewSettingsStore(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Update(Settings{ActivePlan: models.PlanFree, MaxRetries: 2}))

	data, err := os.ReadFile(cfg.SettingsPath)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw, "openrouter_api_key")
	assert.NotContains(t, raw, "anthropic_api_key")
}
