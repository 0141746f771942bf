package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind TransportKind
	}{
		{"status 401", errors.New("error, status code: 401, message: invalid key"), KindAuth},
		{"status 403", errors.New("error, status code: 403, message: forbidden"), KindAuth},
		{"unauthorized text", errors.New("request failed: Unauthorized"), KindAuth},
		{"status 429", errors.New("error, status code: 429, message: slow down"), KindRateLimit},
		{"status 402", errors.New("error, status code: 402, message: spend limit reached"), KindRateLimit},
		{"rate limit text", errors.New("provider rate limit exceeded"), KindRateLimit},
		{"overloaded", errors.New("the model is overloaded"), KindRateLimit},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"timeout text", errors.New("client timeout waiting for response"), KindTimeout},
		{"unmarshal", errors.New("cannot unmarshal string into Go value"), KindMalformed},
		{"empty choices", errors.New("response contained no choices"), KindMalformed},
		{"unrecognized", errors.New("connection reset by peer"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err, "openrouter:test-model")
			if got.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, got.Kind)
			}
			if got.Endpoint != "openrouter:test-model" {
				t.Errorf("expected endpoint to be recorded, got %q", got.Endpoint)
			}
		})
	}
}

func TestClassifyError_PassesThroughClassified(t *testing.T) {
	orig := NewTransportError(KindMalformed, "bad content", "openrouter:m", nil)
	wrapped := fmt.Errorf("stage failed: %w", orig)

	got := ClassifyError(wrapped, "other:endpoint")
	if got != orig {
		t.Error("expected the already classified error to pass through")
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError(nil, "openrouter:m"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestTransportError_Retryable(t *testing.T) {
	for _, kind := range []TransportKind{KindRateLimit, KindTimeout, KindMalformed, KindUnknown} {
		if !(&TransportError{Kind: kind}).Retryable() {
			t.Errorf("expected %q to be retryable", kind)
		}
	}
	if (&TransportError{Kind: KindAuth}).Retryable() {
		t.Error("expected auth failures to abort the chain")
	}
}

func TestIsRetryable_Unclassified(t *testing.T) {
	if !IsRetryable(errors.New("something else")) {
		t.Error("expected unclassified errors to be retryable")
	}
}

func TestTransportError_UserMessage_SpendLimit(t *testing.T) {
	terr := &TransportError{Kind: KindRateLimit, StatusCode: 402}
	got := terr.UserMessage()
	if got == "" || got == (&TransportError{Kind: KindRateLimit}).UserMessage() {
		t.Errorf("expected a dedicated spend limit message, got %q", got)
	}
}

func TestTransportError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	terr := NewTransportError(KindTimeout, "slow", "openrouter:m", cause)
	if !errors.Is(terr, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}
