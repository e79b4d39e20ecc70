package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/command"
)

const defaultAttemptTimeout = 8 * time.Second

// Classifier runs the primary and fallback providers in order.
type Classifier struct {
	providers      []Provider
	attemptTimeout time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer
}

// ClassifierConfig configures a Classifier. Nil providers are skipped, so a
// missing primary credential sends every request straight to the fallback.
type ClassifierConfig struct {
	Primary        Provider
	Fallback       Provider
	AttemptTimeout time.Duration
}

// NewClassifier creates a Classifier.
func NewClassifier(cfg ClassifierConfig, logger *zap.Logger) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}

	var providers []Provider
	for _, p := range []Provider{cfg.Primary, cfg.Fallback} {
		if !isNil(p) {
			providers = append(providers, p)
		}
	}

	return &Classifier{
		providers:      providers,
		attemptTimeout: timeout,
		logger:         logger,
		tracer:         otel.Tracer(instrumentationName),
	}
}

// isNil catches typed nil pointers stored in the interface.
func isNil(p Provider) bool {
	if p == nil {
		return true
	}
	switch v := p.(type) {
	case *OpenAIProvider:
		return v == nil
	case *GeminiProvider:
		return v == nil
	}
	return false
}

// Providers reports which providers are configured, by name. The built-in
// providers are always listed, as false when absent.
func (c *Classifier) Providers() map[string]bool {
	out := map[string]bool{"openai": false, "gemini": false}
	for _, p := range c.providers {
		out[p.Name()] = true
	}
	return out
}

// Classify sends the request to each provider in turn until one returns
// text. It fails with ErrProviderUnavailable when all attempts fail.
func (c *Classifier) Classify(ctx context.Context, req command.Request) (RawOutput, error) {
	ctx, span := c.tracer.Start(ctx, "provider.classify")
	defer span.End()
	span.SetAttributes(
		attribute.String("command.kind", string(req.Kind)),
		attribute.Int("provider.count", len(c.providers)),
	)

	prompt, err := BuildPrompt(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return RawOutput{}, err
	}

	out := RawOutput{}
	for _, p := range c.providers {
		attempt := c.attempt(ctx, p, prompt)
		out.Attempts = append(out.Attempts, attempt)
		if attempt.OK() {
			out.Text = attempt.Text
			out.Provider = attempt.Provider
			span.SetAttributes(attribute.String("provider.selected", attempt.Provider))
			return out, nil
		}
		c.logger.Warn("provider attempt failed",
			zap.String("provider", attempt.Provider),
			zap.Duration("duration", attempt.Duration),
			zap.Error(attempt.Err),
		)
	}

	UnavailableTotal.Inc()
	errs := make([]error, 0, len(out.Attempts))
	for _, a := range out.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Provider, a.Err))
	}
	err = ErrProviderUnavailable
	if len(errs) > 0 {
		err = fmt.Errorf("%w: %w", ErrProviderUnavailable, errors.Join(errs...))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "providers exhausted")
	return out, err
}

func (c *Classifier) attempt(ctx context.Context, p Provider, prompt Prompt) Attempt {
	ctx, span := c.tracer.Start(ctx, "provider.generate", trace.WithAttributes(
		attribute.String("provider", p.Name()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	start := time.Now()
	text, err := p.Generate(ctx, prompt)
	a := Attempt{Provider: p.Name(), Text: text, Err: err, Duration: time.Since(start)}
	if err == nil && text == "" {
		a.Err = ErrEmptyResponse
	}
	if a.Err != nil {
		a.Text = ""
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && a.Err != nil {
		a.Err = fmt.Errorf("attempt timed out after %s: %w", c.attemptTimeout, a.Err)
	}

	result := attemptResult(ctx, a)
	AttemptsTotal.WithLabelValues(a.Provider, result).Inc()
	AttemptDuration.WithLabelValues(a.Provider).Observe(a.Duration.Seconds())
	span.SetAttributes(attribute.String("result", result))
	if a.Err != nil {
		span.RecordError(a.Err)
		span.SetStatus(codes.Error, result)
	}
	return a
}

func attemptResult(ctx context.Context, a Attempt) string {
	switch {
	case a.Err == nil:
		return "success"
	case errors.Is(a.Err, ErrEmptyResponse):
		return "empty"
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
