package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/jarvis/internal/config"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// Rate limiter defaults: 50 requests per minute.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// OpenAIProvider calls the OpenAI chat completions API in JSON mode.
// The instruction goes in a system message and the payload in a user
// message; images are sent as data URLs.
type OpenAIProvider struct {
	llm        llms.Model
	model      string
	limiter    *rate.Limiter
	maxRetries int
	logger     *zap.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates the primary provider. It fails with
// ErrNotConfigured when no API key is set. The logger is used as given.
func NewOpenAIProvider(cfg config.ProviderConfig, logger *zap.Logger) (*OpenAIProvider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	llm, err := openai.New(
		openai.WithToken(cfg.APIKey.Value()),
		openai.WithModel(model),
		openai.WithBaseURL(baseURL),
		openai.WithResponseFormat(openai.ResponseFormatJSON),
		openai.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &OpenAIProvider{
		llm:        llm,
		model:      model,
		limiter:    newLimiter(cfg.RateLimit),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		perSecond = defaultRateLimit
	}
	return rate.NewLimiter(rate.Limit(perSecond), defaultBurst)
}

// Name implements Provider.
func (o *OpenAIProvider) Name() string { return "openai" }

// Generate implements Provider.
func (o *OpenAIProvider) Generate(ctx context.Context, p Prompt) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	user := []llms.ContentPart{llms.TextContent{Text: p.Text}}
	if p.Image != nil {
		user = append(user, llms.ImageURLContent{URL: p.Image.DataURL()})
	}
	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: p.Instruction}}},
		{Role: llms.ChatMessageTypeHuman, Parts: user},
	}

	return withRetries(ctx, o.maxRetries, func(ctx context.Context) (string, error) {
		resp, err := o.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
		if err != nil {
			return "", classifyOpenAIError(ctx, err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
			return "", ErrEmptyResponse
		}
		o.logger.Debug("openai response",
			zap.String("model", o.model),
			zap.Int("choices", len(resp.Choices)),
		)
		return resp.Choices[0].Content, nil
	})
}

// classifyOpenAIError marks rate limiting and server errors as retryable.
func classifyOpenAIError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("openai request: %w", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(msg, "status code: 5") {
		return &retryableError{err: fmt.Errorf("openai request: %w", err)}
	}
	return fmt.Errorf("openai request: %w", err)
}
