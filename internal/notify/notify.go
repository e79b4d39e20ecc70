// Package notify publishes command outcomes on NATS so other services (UI
// refresh, analytics) can react to changes made by the assistant.
//
// Events are published to:
//
//	{prefix}.{family_id}.outcome.{action}
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
)

// DefaultPrefix is the subject prefix used when none is configured.
const DefaultPrefix = "jarvis"

// Event describes the outcome of one command.
type Event struct {
	ID         string           `json:"id"`
	RequestID  string           `json:"request_id,omitempty"`
	FamilyID   string           `json:"family_id"`
	Action     string           `json:"action"`
	Provider   string           `json:"provider,omitempty"`
	Confidence float64          `json:"confidence"`
	Outcome    dispatch.Outcome `json:"outcome"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Publisher sends outcome events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NoOp discards events. Used when NATS is not configured.
type NoOp struct{}

// Publish implements Publisher.
func (NoOp) Publish(context.Context, Event) error { return nil }

// NATSPublisher publishes events as JSON on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

var (
	_ Publisher = NoOp{}
	_ Publisher = (*NATSPublisher)(nil)
)

// NewNATSPublisher creates a publisher on an existing connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Connect dials NATS with reconnect settings suited to a long-running daemon.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("jarvisd"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(ev Event) string {
	return fmt.Sprintf("%s.%s.outcome.%s", p.prefix, token(ev.FamilyID), token(ev.Action))
}

// Publish implements Publisher. Missing ID and timestamp are filled in.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}
	if err := p.nc.Publish(p.Subject(ev), data); err != nil {
		return fmt.Errorf("publish outcome event: %w", err)
	}
	return nil
}

// token makes s safe as a single subject token: separators, wildcards and
// whitespace become underscores.
func token(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}
