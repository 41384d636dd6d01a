// Package openai adapts an OpenAI-compatible chat completion API to the chat
// service's Completer contract.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/proctorly/sessiond/internal/domain"
	"github.com/proctorly/sessiond/internal/domain/tokens"
	"github.com/proctorly/sessiond/internal/metrics"
)

// Completer is a chat completion provider using the OpenAI-compatible API.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// Config holds the completion provider settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Logger      *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completion provider.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Complete runs one chat completion and returns the reply with
// provider-reported usage. If the provider omits usage, both sides are
// estimated from the text so reconciliation always has numbers to settle.
func (c *Completer) Complete(ctx context.Context, turns []domain.Turn) (domain.Reply, error) {
	messages := make([]openai.ChatCompletionMessage, len(turns))
	promptLen := 0
	for i, turn := range turns {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		}
		promptLen += len(turn.Content)
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
	if c.maxTokens > 0 {
		req.MaxTokens = tokens.CapToContext(c.model, promptLen/4, c.maxTokens)
	}

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.ModelRequestDuration.WithLabelValues(c.model, "error").Observe(duration.Seconds())
		return domain.Reply{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.ModelRequestDuration.WithLabelValues(c.model, "error").Observe(duration.Seconds())
		return domain.Reply{}, fmt.Errorf("empty completion response: %w", domain.ErrModelProviderError)
	}

	metrics.ModelRequestDuration.WithLabelValues(c.model, "success").Observe(duration.Seconds())

	text := resp.Choices[0].Message.Content
	inputTokens := resp.Usage.PromptTokens
	outputTokens := resp.Usage.CompletionTokens
	if inputTokens == 0 && outputTokens == 0 {
		inputTokens = tokens.EstimatePrompt(contents(turns))
		outputTokens = tokens.EstimateText(text)
		c.logger.Warn("provider returned no usage, falling back to estimates",
			zap.String("model", c.model),
			zap.Int("input_estimate", inputTokens),
			zap.Int("output_estimate", outputTokens),
		)
	}

	return domain.Reply{
		Text:         text,
		Model:        resp.Model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// Rate limits map to domain.ErrRateLimited, everything else to
// domain.ErrModelProviderError for correct status mapping.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		wrap := wrapForStatus(reqErr.HTTPStatusCode)
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("completion API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		wrap := wrapForStatus(apiErr.HTTPStatusCode)
		return fmt.Errorf("completion API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %w", domain.ErrModelProviderError)
}

func wrapForStatus(status int) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return domain.ErrModelProviderError
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}

func contents(turns []domain.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}
