package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/jarvis/internal/command"
)

// fakeProvider returns canned output and counts calls.
type fakeProvider struct {
	name  string
	text  string
	err   error
	delay time.Duration
	calls int
	last  Prompt
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, p Prompt) (string, error) {
	f.calls++
	f.last = p
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func TestClassifier_PrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: `{"action":"task"}`}
	fallback := &fakeProvider{name: "gemini", text: `{"action":"event"}`}
	c := NewClassifier(ClassifierConfig{Primary: primary, Fallback: fallback}, nil)

	out, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
	require.NoError(t, err)
	assert.Equal(t, `{"action":"task"}`, out.Text)
	assert.Equal(t, "openai", out.Provider)
	assert.Len(t, out.Attempts, 1)
	assert.Equal(t, 0, fallback.calls)
}

func TestClassifier_FallbackOnPrimaryFailure(t *testing.T) {
	tests := []struct {
		name    string
		primary *fakeProvider
	}{
		{"error", &fakeProvider{name: "openai", err: errors.New("401 unauthorized")}},
		{"empty text", &fakeProvider{name: "openai", text: ""}},
		{"timeout", &fakeProvider{name: "openai", text: "late", delay: time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallback := &fakeProvider{name: "gemini", text: `{"action":"event"}`}
			c := NewClassifier(ClassifierConfig{
				Primary:        tt.primary,
				Fallback:       fallback,
				AttemptTimeout: 20 * time.Millisecond,
			}, nil)

			out, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
			require.NoError(t, err)
			assert.Equal(t, `{"action":"event"}`, out.Text)
			assert.Equal(t, "gemini", out.Provider)
			require.Len(t, out.Attempts, 2)
			assert.Error(t, out.Attempts[0].Err)
			assert.Empty(t, out.Attempts[0].Text)
			assert.Equal(t, 1, tt.primary.calls)
			assert.Equal(t, 1, fallback.calls)
		})
	}
}

func TestClassifier_EmptyIsDistinctFromError(t *testing.T) {
	primary := &fakeProvider{name: "openai"}
	fallback := &fakeProvider{name: "gemini", err: errors.New("connection refused")}
	c := NewClassifier(ClassifierConfig{Primary: primary, Fallback: fallback}, nil)

	out, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.ErrorIs(t, out.Attempts[0].Err, ErrEmptyResponse)
	assert.NotErrorIs(t, out.Attempts[1].Err, ErrEmptyResponse)
}

func TestClassifier_BothFail(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("boom")}
	fallback := &fakeProvider{name: "gemini", text: "   ", err: ErrEmptyResponse}
	c := NewClassifier(ClassifierConfig{Primary: primary, Fallback: fallback}, nil)

	_, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Contains(t, err.Error(), "openai: boom")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, fallback.calls)
}

func TestClassifier_NoProvidersConfigured(t *testing.T) {
	var openai *OpenAIProvider
	c := NewClassifier(ClassifierConfig{Primary: openai}, nil)

	out, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
	require.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, out.Attempts)
	assert.Equal(t, map[string]bool{"openai": false, "gemini": false}, c.Providers())
}

func TestClassifier_MissingPrimaryGoesStraightToFallback(t *testing.T) {
	fallback := &fakeProvider{name: "gemini", text: `{"action":"task"}`}
	c := NewClassifier(ClassifierConfig{Fallback: fallback}, nil)

	out, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "x"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Provider)
	assert.Equal(t, map[string]bool{"openai": false, "gemini": true}, c.Providers())
}

func TestClassifier_InvalidImage(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: "{}"}
	c := NewClassifier(ClassifierConfig{Primary: primary}, nil)

	_, err := c.Classify(context.Background(), normalizedRequest(t, command.KindImage, "not base64!"))
	assert.ErrorIs(t, err, command.ErrInvalidImage)
	assert.Equal(t, 0, primary.calls)
}

func TestClassifier_PassesImage(t *testing.T) {
	primary := &fakeProvider{name: "openai", text: "{}"}
	c := NewClassifier(ClassifierConfig{Primary: primary}, nil)

	_, err := c.Classify(context.Background(), normalizedRequest(t, command.KindImage, "data:image/webp;base64,aGVsbG8="))
	require.NoError(t, err)
	require.NotNil(t, primary.last.Image)
	assert.Equal(t, "image/webp", primary.last.Image.MIMEType)
}

func TestClassifier_LogsPrimaryFailureWithoutPayload(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	primary := &fakeProvider{name: "openai", err: errors.New("quota exceeded")}
	fallback := &fakeProvider{name: "gemini", text: "{}"}
	c := NewClassifier(ClassifierConfig{Primary: primary, Fallback: fallback}, zap.New(core))

	_, err := c.Classify(context.Background(), normalizedRequest(t, command.KindText, "meu cartão secreto 1234"))
	require.NoError(t, err)

	entries := logs.FilterMessage("provider attempt failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "openai", entries[0].ContextMap()["provider"])
	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotContains(t, fmt.Sprint(v), "cartão secreto")
		}
	}
}
