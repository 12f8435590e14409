package llm_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"tavola/internal/adapters/llm"
	"tavola/internal/domain"
)

type fakeModel struct {
	prompt string
	opts   llms.CallOptions
	reply  string
	err    error
}

func (f *fakeModel) GenerateContent(ctx context.Context, msgs []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, o := range options {
		o(&f.opts)
	}
	if len(msgs) > 0 && len(msgs[0].Parts) > 0 {
		if tc, ok := msgs[0].Parts[0].(llms.TextContent); ok {
			f.prompt = tc.Text
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestComplete(t *testing.T) {
	m := &fakeModel{reply: `{"summary":"ok"}`}
	c := llm.NewWithModel(m, "test-model")

	out, err := c.Complete(context.Background(), "recommend something")
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"ok"}`, out)
	assert.Equal(t, "recommend something", m.prompt)
	assert.InDelta(t, 0.4, m.opts.Temperature, 1e-9)
	assert.Equal(t, 700, m.opts.MaxTokens)
}

func TestComplete_Error(t *testing.T) {
	boom := errors.New("429 too many requests")
	c := llm.NewWithModel(&fakeModel{err: boom}, "test-model")
	_, err := c.Complete(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestNew_OpenAICompatibleServer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"Try the flan"},"finish_reason":"stop"}],` +
			`"usage":{"prompt_tokens":5,"completion_tokens":3,"total_tokens":8}}`))
	}))
	defer ts.Close()

	c, err := llm.New("sk-test", "gpt-4o-mini", ts.URL)
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "dessert?")
	require.NoError(t, err)
	assert.Equal(t, "Try the flan", out)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := llm.New("", "gpt-4o-mini", "")
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}
