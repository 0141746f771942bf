package llm

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dataclinic-ai/engine/pkg/logging"
	"github.com/dataclinic-ai/engine/pkg/models"
)

// OpenRouterClient talks to OpenRouter (or any OpenAI-compatible base URL)
// for a single endpoint.
type OpenRouterClient struct {
	client   *openai.Client
	endpoint models.ModelEndpoint
	logger   *zap.Logger
}

// NewOpenRouterClient creates a client for one OpenRouter-served endpoint.
func NewOpenRouterClient(baseURL, apiKey string, endpoint models.ModelEndpoint, logger *zap.Logger) *OpenRouterClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")

	return &OpenRouterClient{
		client:   openai.NewClientWithConfig(cfg),
		endpoint: endpoint,
		logger:   logger.Named("llm"),
	}
}

// Complete implements ModelClient.
func (c *OpenRouterClient) Complete(ctx context.Context, req Request) (*Response, error) {
	c.logger.Debug("model request",
		zap.String("endpoint", string(c.endpoint)),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Float64("temperature", req.Temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.endpoint.Model(),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		// Provider errors can echo the Authorization header back.
		c.logger.Warn("model request failed",
			zap.String("endpoint", string(c.endpoint)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, ClassifyError(err, c.endpoint)
	}

	if len(resp.Choices) == 0 {
		return nil, NewTransportError(KindMalformed, "no choices in response", c.endpoint, nil)
	}

	c.logger.Info("model request completed",
		zap.String("endpoint", string(c.endpoint)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Endpoint implements ModelClient.
func (c *OpenRouterClient) Endpoint() models.ModelEndpoint {
	return c.endpoint
}

var _ ModelClient = (*OpenRouterClient)(nil)
