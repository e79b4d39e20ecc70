// Package supabase implements the finance and calendar collaborators on top
// of a Supabase project's PostgREST API.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/jarvis/internal/config"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20
	defaultBurst     = 10
	defaultSchema    = "public"
)

// ErrNotFound is returned when an update or delete matched no row.
var ErrNotFound = errors.New("row not found")

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	restURL   string
	key       config.Secret
	timeout   time.Duration
	transport http.RoundTripper
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// New creates a Client from configuration. The logger is used as given.
func New(cfg config.SupabaseConfig, logger *zap.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("supabase url required")
	}
	if !cfg.ServiceKey.IsSet() {
		return nil, errors.New("supabase service key required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", cfg.URL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		restURL:   strings.TrimRight(cfg.URL, "/") + "/rest/v1",
		key:       cfg.ServiceKey,
		timeout:   timeout,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		limiter:   rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:    logger,
	}, nil
}

// contextTransport binds every request to one call's context. postgrest-go
// builds its requests without one.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

// query runs build against a PostgREST client scoped to ctx and decodes the
// JSON response into out. A client is built per call so the context and
// timeout reach the underlying transport.
func (c *Client) query(ctx context.Context, op, table string, out any, build func(*postgrest.QueryBuilder) *postgrest.FilterBuilder) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	pg := postgrest.NewClient(c.restURL, defaultSchema, nil).
		SetApiKey(c.key.Value()).
		SetAuthToken(c.key.Value())
	if pg.ClientError != nil {
		return fmt.Errorf("supabase client: %w", pg.ClientError)
	}
	pg.Transport.Parent = contextTransport{ctx: ctx, base: c.transport}

	start := time.Now()
	_, err := build(pg.From(table)).ExecuteTo(out)
	c.logger.Debug("supabase request",
		zap.String("op", op),
		zap.String("table", table),
		zap.Duration("duration", time.Since(start)),
		zap.Bool("ok", err == nil),
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("supabase %s: %w", op, ctx.Err())
		}
		return fmt.Errorf("supabase %s: %w", op, err)
	}
	return nil
}
