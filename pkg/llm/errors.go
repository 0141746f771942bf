package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dataclinic-ai/engine/pkg/models"
)

// TransportKind classifies a model invocation failure.
type TransportKind string

const (
	KindRateLimit TransportKind = "rate_limit"
	KindTimeout   TransportKind = "timeout"
	KindAuth      TransportKind = "auth"
	KindMalformed TransportKind = "malformed"
	KindUnknown   TransportKind = "unknown"
)

// TransportError is a classified model invocation failure. RateLimit,
// Timeout, Malformed and Unknown drive the endpoint fallback chain; Auth
// aborts the chain immediately since a different model cannot fix a bad
// credential.
type TransportError struct {
	Kind       TransportKind
	Message    string
	StatusCode int
	Endpoint   models.ModelEndpoint
	Cause      error
}

func (e *TransportError) Error() string {
	var parts []string
	parts = append(parts, string(e.Kind))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("endpoint=%s", e.Endpoint))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the next endpoint in the chain should be tried.
func (e *TransportError) Retryable() bool {
	return e.Kind != KindAuth
}

// UserMessage maps the failure kind to plain language for display. Raw
// provider error text is never shown to users.
func (e *TransportError) UserMessage() string {
	switch e.Kind {
	case KindRateLimit:
		if e.StatusCode == 402 {
			return "The provider reported a spend limit. Check your account balance."
		}
		return "The model is rate limited right now. Try again in a moment."
	case KindTimeout:
		return "The model took too long to respond."
	case KindAuth:
		return "Authentication failed. Check your API key in the settings."
	case KindMalformed:
		return "The model replied in an unexpected format."
	default:
		return "The model request failed for an unknown reason."
	}
}

// NewTransportError creates a classified transport error.
func NewTransportError(kind TransportKind, message string, endpoint models.ModelEndpoint, cause error) *TransportError {
	return &TransportError{Kind: kind, Message: message, Endpoint: endpoint, Cause: cause}
}

// ClassifyError maps a provider error onto the transport taxonomy. Already
// classified errors pass through unchanged.
func ClassifyError(err error, endpoint models.ModelEndpoint) *TransportError {
	if err == nil {
		return nil
	}

	var terr *TransportError
	if errors.As(err, &terr) {
		return terr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 402, 403, 404, 408, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	classified := func(kind TransportKind, msg string) *TransportError {
		return &TransportError{Kind: kind, Message: msg, StatusCode: statusCode, Endpoint: endpoint, Cause: err}
	}

	// Credential failures abort the whole chain.
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication") {
		return classified(KindAuth, "authentication failed")
	}

	if strings.Contains(errStr, "429") || strings.Contains(errStr, "402") ||
		strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "quota") || strings.Contains(lower, "overloaded") {
		return classified(KindRateLimit, "rate limited")
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded") {
		return classified(KindTimeout, "request timeout")
	}

	if strings.Contains(lower, "unmarshal") || strings.Contains(lower, "unexpected end of json") ||
		strings.Contains(lower, "no choices") || strings.Contains(lower, "empty response") {
		return classified(KindMalformed, "malformed response")
	}

	return classified(KindUnknown, "model request failed")
}

// IsRetryable reports whether an error should advance the fallback chain.
// Unclassified errors are treated as retryable unknowns.
func IsRetryable(err error) bool {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Retryable()
	}
	return true
}
