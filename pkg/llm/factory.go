package llm

import (
	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// Credentials carries the per-provider API credentials read from the
// configuration surface at stage start.
type Credentials struct {
	OpenRouterBaseURL string
	OpenRouterAPIKey  string
	AnthropicAPIKey   string
}

// ClientFactory creates a transport client for an endpoint. Use this
// interface for dependency injection and testing.
type ClientFactory interface {
	Create(endpoint models.ModelEndpoint, creds Credentials) ModelClient
}

// Factory maps provider-qualified endpoints to concrete clients.
type Factory struct {
	logger *zap.Logger
}

// NewFactory creates the default provider factory.
func NewFactory(logger *zap.Logger) *Factory {
	return &Factory{logger: logger}
}

// Create implements ClientFactory. Endpoints without a recognized provider
// qualifier are served through OpenRouter.
func (f *Factory) Create(endpoint models.ModelEndpoint, creds Credentials) ModelClient {
	switch endpoint.Provider() {
	case models.ProviderAnthropic:
		return NewAnthropicClient(creds.AnthropicAPIKey, endpoint, f.logger)
	default:
		return NewOpenRouterClient(creds.OpenRouterBaseURL, creds.OpenRouterAPIKey, endpoint, f.logger)
	}
}

var _ ClientFactory = (*Factory)(nil)
