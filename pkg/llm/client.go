// Package llm provides the raw model transport: provider-specific clients
// behind a common interface, response parsing helpers and the transport
// error taxonomy.
package llm

import (
	"context"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// Request is one role-specific model invocation.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Response is a successful completion with usage stats.
type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ModelClient invokes a single remote model endpoint. Implementations return
// *TransportError on failure so callers can classify without knowing the
// provider.
type ModelClient interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Endpoint() models.ModelEndpoint
}
