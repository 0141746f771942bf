package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/config"
	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
	"github.com/dataclinic-ai/engine/pkg/plans"
)

// connectionTestTimeout bounds the settings probe request.
const connectionTestTimeout = 30 * time.Second

// SettingsHandler exposes the configuration surface: read and edit the
// user settings, and probe the active plan's primary analysis endpoint.
type SettingsHandler struct {
	settings *config.SettingsStore
	router   *plans.Router
	factory  llm.ClientFactory
	logger   *zap.Logger
}

// NewSettingsHandler creates the settings HTTP surface.
func NewSettingsHandler(settings *config.SettingsStore, router *plans.Router, factory llm.ClientFactory, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, router: router, factory: factory, logger: logger}
}

// RegisterRoutes registers the settings routes on the given mux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/settings", h.Get)
	mux.HandleFunc("PUT /api/settings", h.Update)
	mux.HandleFunc("POST /api/settings/test", h.TestConnection)
}

// settingsView is the wire shape for GET: keys are masked, never echoed.
type settingsView struct {
	ActivePlan          models.PlanID `json:"active_plan"`
	CustomAnalysisModel string        `json:"custom_analysis_model,omitempty"`
	CustomSQLModel      string        `json:"custom_sql_model,omitempty"`
	HasOpenRouterKey    bool          `json:"has_openrouter_key"`
	HasAnthropicKey     bool          `json:"has_anthropic_key"`
	MaxRetries          int           `json:"max_retries"`
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.settings.Get()
	creds := h.settings.Snapshot().Credentials
	_ = WriteJSON(w, http.StatusOK, settingsView{
		ActivePlan:          s.ActivePlan,
		CustomAnalysisModel: s.CustomAnalysisModel,
		CustomSQLModel:      s.CustomSQLModel,
		HasOpenRouterKey:    creds.OpenRouterAPIKey != "",
		HasAnthropicKey:     creds.AnthropicAPIKey != "",
		MaxRetries:          s.MaxRetries,
	})
}

// Update handles PUT /api/settings. Empty key fields keep the stored keys so
// the UI never has to round-trip secrets.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_settings", "request body is not valid settings JSON")
		return
	}

	current := h.settings.Get()
	if incoming.OpenRouterAPIKey == "" {
		incoming.OpenRouterAPIKey = current.OpenRouterAPIKey
	}
	if incoming.AnthropicAPIKey == "" {
		incoming.AnthropicAPIKey = current.AnthropicAPIKey
	}

	if err := h.settings.Update(incoming); err != nil {
		h.logger.Error("settings update failed", zap.Error(err))
		_ = ErrorResponse(w, http.StatusInternalServerError, "settings_write_failed", "could not persist settings")
		return
	}

	h.logger.Info("settings updated",
		zap.String("active_plan", string(incoming.ActivePlan)),
		zap.Int("max_retries", incoming.MaxRetries))
	h.Get(w, r)
}

// TestConnection handles POST /api/settings/test: sends a trivial prompt to
// the primary schema-analysis endpoint of the active plan.
func (h *SettingsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	snap := h.settings.Snapshot()
	plan, err := h.router.ActivePlan(snap.Plan, snap.CustomAnalysisEndpoint, snap.CustomSQLEndpoint)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_plan", "the active plan is not configured")
		return
	}
	endpoints, err := h.router.Resolve(models.RoleSchemaAnalysis, plan)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "bad_plan", "the active plan is not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), connectionTestTimeout)
	defer cancel()

	client := h.factory.Create(endpoints[0], snap.Credentials)
	resp, err := client.Complete(ctx, llm.Request{
		Prompt:    "Reply with exactly: OK",
		MaxTokens: 10,
	})
	if err != nil {
		terr := llm.ClassifyError(err, endpoints[0])
		_ = WriteJSON(w, http.StatusOK, map[string]any{
			"success":  false,
			"endpoint": endpoints[0],
			"message":  terr.UserMessage(),
		})
		return
	}

	_ = WriteJSON(w, http.StatusOK, map[string]any{
		"success":  strings.Contains(strings.ToLower(resp.Content), "ok"),
		"endpoint": endpoints[0],
	})
}
