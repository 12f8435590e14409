package llm

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"tavola/internal/adapters/observability"
	"tavola/internal/domain"
)

const (
	temperature = 0.4
	maxTokens   = 700
	callTimeout = 30 * time.Second
)

// Client sends single-prompt completions to an OpenAI-compatible chat model.
type Client struct {
	model llms.Model
	name  string
}

func New(apiKey, model, baseURL string) (*Client, error) {
	if apiKey == "" {
		return nil, domain.ErrNotConfigured
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return NewWithModel(m, model), nil
}

func NewWithModel(m llms.Model, name string) *Client {
	return &Client{model: m, name: name}
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	start := time.Now()
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt,
		llms.WithTemperature(temperature),
		llms.WithMaxTokens(maxTokens),
	)
	status := 200
	if err != nil {
		status = 0
		if errors.Is(err, context.DeadlineExceeded) {
			status = 504
		}
	}
	observability.ObserveExternal("llm", c.name, status, time.Since(start))
	return out, err
}
