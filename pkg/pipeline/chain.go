// Package pipeline drives the cleaning pipeline: schema analysis, SQL
// generation, execution against the working store and the bounded
// self-correction loop.
package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dataclinic-ai/engine/pkg/llm"
	"github.com/dataclinic-ai/engine/pkg/models"
)

var (
	// ErrAnalysisExhausted signals that every endpoint in the schema
	// analysis chain failed.
	ErrAnalysisExhausted = errors.New("schema analysis exhausted all endpoints")

	// ErrGenerationExhausted signals that every endpoint in the SQL
	// generation chain failed.
	ErrGenerationExhausted = errors.New("sql generation exhausted all endpoints")
)

// EndpointAttempt carries the last error observed for one endpoint during a
// chain walk.
type EndpointAttempt struct {
	Endpoint models.ModelEndpoint
	Err      error
}

// ExhaustedError reports that a whole fallback chain was walked without a
// usable result, carrying the last error per endpoint attempted.
type ExhaustedError struct {
	Role     models.Role
	Attempts []EndpointAttempt
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	b.WriteString(e.sentinel().Error())
	for _, a := range e.Attempts {
		b.WriteString(fmt.Sprintf("; %s: %v", a.Endpoint, a.Err))
	}
	return b.String()
}

// Unwrap makes errors.Is(err, ErrAnalysisExhausted) and friends work.
func (e *ExhaustedError) Unwrap() error {
	return e.sentinel()
}

func (e *ExhaustedError) sentinel() error {
	if e.Role == models.RoleSchemaAnalysis {
		return ErrAnalysisExhausted
	}
	return ErrGenerationExhausted
}

// UserMessage maps the exhaustion to plain language, surfacing the last
// failure category rather than raw provider text.
func (e *ExhaustedError) UserMessage() string {
	stage := "SQL generation"
	if e.Role == models.RoleSchemaAnalysis {
		stage = "schema analysis"
	}
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("Every configured model failed during %s.", stage)
	}
	last := e.Attempts[len(e.Attempts)-1].Err
	var terr *llm.TransportError
	if errors.As(last, &terr) {
		return fmt.Sprintf("Every configured model failed during %s. Last failure: %s", stage, terr.UserMessage())
	}
	return fmt.Sprintf("Every configured model failed during %s.", stage)
}

// walkChain tries each endpoint strictly in order, one at a time. A
// retryable failure (rate limit, timeout, malformed content) advances to the
// next endpoint; a non-retryable failure (bad credential) aborts the walk
// immediately. Returns nil as soon as one attempt succeeds, the aborting
// error, or an *ExhaustedError once the chain runs out.
func walkChain(role models.Role, endpoints []models.ModelEndpoint, attempt func(ep models.ModelEndpoint) error) error {
	var attempts []EndpointAttempt
	for _, ep := range endpoints {
		err := attempt(ep)
		if err == nil {
			return nil
		}
		if !llm.IsRetryable(err) {
			return err
		}
		attempts = append(attempts, EndpointAttempt{Endpoint: ep, Err: err})
	}
	return &ExhaustedError{Role: role, Attempts: attempts}
}
