package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/fyrsmithlabs/jarvis/internal/config"
)

const (
	defaultGeminiModel = "gemini-1.5-flash"
	defaultTimeout     = 30 * time.Second
)

// GeminiProvider calls Gemini through the genai SDK. Gemini gets instruction
// and user text as a single prompt part; images travel as inline bytes.
type GeminiProvider struct {
	client     *genai.Client
	model      string
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates the fallback provider. It fails with
// ErrNotConfigured when no API key is set. The logger is used as given.
func NewGeminiProvider(cfg config.ProviderConfig, logger *zap.Logger) (*GeminiProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey.Value(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = strings.TrimRight(cfg.BaseURL, "/") + "/"
	}
	// API-key clients resolve no credentials, so the context is unused here.
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:     client,
		model:      model,
		limiter:    newLimiter(cfg.RateLimit),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// Name implements Provider.
func (g *GeminiProvider) Name() string { return "gemini" }

// Generate implements Provider.
func (g *GeminiProvider) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(p.combined())}
	if p.Image != nil {
		parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	genCfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}

	return withRetries(ctx, g.maxRetries, func(ctx context.Context) (string, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
		if err != nil {
			return "", classifyGeminiError(ctx, err)
		}
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		g.logger.Debug("gemini response", zap.String("model", g.model), zap.Int("candidates", len(resp.Candidates)))
		return text, nil
	})
}

// classifyGeminiError marks transport failures, rate limiting and server
// errors as retryable.
func classifyGeminiError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("gemini request: %w", ctx.Err())
	}
	if code, ok := geminiStatus(err); ok {
		wrapped := fmt.Errorf("gemini API error (%d): %w", code, err)
		if code == http.StatusTooManyRequests || code >= 500 {
			return &retryableError{err: wrapped}
		}
		return wrapped
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &retryableError{err: fmt.Errorf("gemini request failed: %w", err)}
	}
	return fmt.Errorf("gemini request: %w", err)
}

func geminiStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}
