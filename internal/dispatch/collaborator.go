package dispatch

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fyrsmithlabs/jarvis/internal/intent"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

// TransactionInput is the finance record created for a Transaction intent.
type TransactionInput struct {
	FamilyID      string
	Type          intent.Direction
	Amount        decimal.Decimal
	Description   string
	Category      string
	Date          intent.Date
	PaymentMethod intent.PaymentMethod
}

// EventInput is the calendar record created for an EventCreate intent.
type EventInput struct {
	FamilyID string
	Title    string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// EventPatch holds the fields to change on an existing event. Nil fields
// are left untouched and never sent.
type EventPatch struct {
	Title *string
	Start *time.Time
	End   *time.Time
}

// Fields returns the patch as column values, with only the present keys.
func (p EventPatch) Fields() map[string]any {
	out := make(map[string]any, 3)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Start != nil {
		out["start_time"] = p.Start.Format(time.RFC3339)
	}
	if p.End != nil {
		out["end_time"] = p.End.Format(time.RFC3339)
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Start == nil && p.End == nil
}

// Window bounds an event listing.
type Window struct {
	From time.Time
	To   time.Time
}

// Finance creates financial records.
type Finance interface {
	CreateTransaction(ctx context.Context, in TransactionInput) (string, error)
}

// Calendar manages a family's events.
type Calendar interface {
	CreateEvent(ctx context.Context, in EventInput) (string, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) error
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, familyID string, window Window) ([]resolver.Event, error)
}
