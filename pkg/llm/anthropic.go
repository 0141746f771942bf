package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/logging"
	"github.com/dataclinic-ai/engine/pkg/models"
)

// AnthropicClient serves endpoints qualified with the "anthropic" provider,
// supplied through the custom plan.
type AnthropicClient struct {
	client   *anthropic.Client
	endpoint models.ModelEndpoint
	logger   *zap.Logger
}

// NewAnthropicClient creates a client for one Anthropic-served endpoint.
func NewAnthropicClient(apiKey string, endpoint models.ModelEndpoint, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{
		client:   anthropic.NewClient(apiKey),
		endpoint: endpoint,
		logger:   logger.Named("llm"),
	}
}

// Complete implements ModelClient.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	temperature := float32(req.Temperature)

	c.logger.Debug("model request",
		zap.String("endpoint", string(c.endpoint)),
		zap.Int("prompt_len", len(req.Prompt)))

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.endpoint.Model()),
		System:      req.System,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(req.Prompt),
		},
	})
	if err != nil {
		c.logger.Warn("model request failed",
			zap.String("endpoint", string(c.endpoint)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, c.classify(err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return nil, NewTransportError(KindMalformed, "empty response content", c.endpoint, nil)
	}

	c.logger.Info("model request completed",
		zap.String("endpoint", string(c.endpoint)),
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Content:          strings.TrimSpace(text),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
	}, nil
}

// classify maps Anthropic API error types onto the transport taxonomy before
// falling back to the generic string classifier.
func (c *AnthropicClient) classify(err error) *TransportError {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthenticationErr(), apiErr.IsPermissionErr():
			return NewTransportError(KindAuth, "authentication failed", c.endpoint, err)
		case apiErr.IsRateLimitErr(), apiErr.IsOverloadedErr():
			return NewTransportError(KindRateLimit, "rate limited", c.endpoint, err)
		}
	}
	return ClassifyError(err, c.endpoint)
}

// Endpoint implements ModelClient.
func (c *AnthropicClient) Endpoint() models.ModelEndpoint {
	return c.endpoint
}

var _ ModelClient = (*AnthropicClient)(nil)
