package provider

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/jarvis/internal/command"
	"github.com/fyrsmithlabs/jarvis/internal/config"
)

const chatCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1715350000,
  "model": "gpt-4o-mini",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	o, err := NewOpenAIProvider(config.ProviderConfig{
		APIKey:    config.Secret("sk-test"),
		BaseURL:   srv.URL + "/v1",
		RateLimit: 100,
	}, nil)
	require.NoError(t, err)
	return o
}

func TestNewOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider(config.ProviderConfig{Model: "gpt-4o"}, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIProvider_Generate(t *testing.T) {
	var body string
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sprintf(chatCompletion, `{"action":"task","data":{"title":"x"}}`))
	})

	text, err := o.Generate(context.Background(), Prompt{Instruction: "SYSTEM-INSTRUCTION", Text: "lembrar de x"})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"task","data":{"title":"x"}}`, text)

	assert.Contains(t, body, `"system"`)
	assert.Contains(t, body, "SYSTEM-INSTRUCTION")
	assert.Contains(t, body, "lembrar de x")
	assert.Contains(t, body, `"response_format":{"type":"json_object"}`)
	assert.Contains(t, body, `"temperature":0`)
}

func TestOpenAIProvider_GenerateImage(t *testing.T) {
	var body string
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sprintf(chatCompletion, `{"action":"transaction"}`))
	})

	img := &command.Image{MIMEType: "image/png", Data: []byte("hello")}
	_, err := o.Generate(context.Background(), Prompt{Instruction: "I", Text: imageTaskText, Image: img})
	require.NoError(t, err)
	assert.Contains(t, body, "image_url")
	assert.Contains(t, body, "data:image/png;base64,aGVsbG8=")
}

func TestOpenAIProvider_EmptyContent(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sprintf(chatCompletion, ""))
	})

	_, err := o.Generate(context.Background(), Prompt{Text: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	o := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`)
	})

	_, err := o.Generate(context.Background(), Prompt{Text: "x"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyResponse)
}
