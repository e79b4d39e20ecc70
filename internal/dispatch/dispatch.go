// Package dispatch routes validated intents to the finance and calendar
// collaborators and reports what happened.
//
// Dispatch is one-shot: it never retries and never panics. Every failure,
// including a collaborator error, comes back as an Outcome.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/intent"
	"github.com/fyrsmithlabs/jarvis/internal/logging"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

const instrumentationName = "github.com/fyrsmithlabs/jarvis/internal/dispatch"

// OutcomesTotal counts dispatched intents.
// Labels: action, kind
var OutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "jarvis",
		Subsystem: "dispatch",
		Name:      "outcomes_total",
		Help:      "Total number of dispatched intents by action and outcome kind",
	},
	[]string{"action", "kind"},
)

// Scope carries per-request data needed by collaborators and the resolver.
type Scope struct {
	FamilyID string
	Location *time.Location
}

// Dispatcher routes intents to collaborators. Either collaborator may be
// nil; intents that need it then fail with ErrNotConfigured.
type Dispatcher struct {
	finance  Finance
	calendar Calendar
	logger   *logging.Logger
	tracer   trace.Tracer
}

// New creates a Dispatcher.
func New(finance Finance, calendar Calendar, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		finance:  finance,
		calendar: calendar,
		logger:   logger,
		tracer:   otel.Tracer(instrumentationName),
	}
}

// Dispatch carries out in. events is the caller's snapshot of existing
// events, used to resolve delete and update references.
func (d *Dispatcher) Dispatch(ctx context.Context, in intent.Intent, events []resolver.Event, scope Scope) Outcome {
	ctx, span := d.tracer.Start(ctx, "dispatch.dispatch")
	defer span.End()

	var out Outcome
	action := "none"
	if in != nil {
		action = string(in.Action())
	}

	switch v := in.(type) {
	case intent.Transaction:
		out = d.transaction(ctx, v, scope)
	case intent.EventCreate:
		out = d.createEvent(ctx, v, scope)
	case intent.EventDelete:
		out = d.deleteEvent(ctx, v, events, scope)
	case intent.EventUpdate:
		out = d.updateEvent(ctx, v, events, scope)
	case intent.TaskCreate:
		out = Failure(KindNotImplemented, "Tasks are not supported yet.", ErrNotImplemented)
	default:
		out = Failure(KindNotUnderstood, "Sorry, I could not understand the command.", fmt.Errorf("%w: %T", intent.ErrUnknownAction, in))
	}

	OutcomesTotal.WithLabelValues(action, string(out.Kind)).Inc()
	span.SetAttributes(
		attribute.String("intent.action", action),
		attribute.String("outcome.kind", string(out.Kind)),
		attribute.Bool("outcome.success", out.Success),
	)
	if out.Err != nil && out.Kind != KindNotImplemented {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, string(out.Kind))
	}
	return out
}

func (d *Dispatcher) collaboratorFailure(ctx context.Context, op string, err error) Outcome {
	d.logger.Error(ctx, "collaborator call failed", zap.String("operation", op), zap.Error(err))
	return Failure(KindCollaboratorError, err.Error(), fmt.Errorf("%w: %s: %w", ErrCollaborator, op, err))
}

func notConfigured(what string) Outcome {
	return Failure(KindNotConfigured, fmt.Sprintf("The %s service is not configured.", what), fmt.Errorf("%w: %s", ErrNotConfigured, what))
}

func (d *Dispatcher) transaction(ctx context.Context, tx intent.Transaction, scope Scope) Outcome {
	if d.finance == nil {
		return notConfigured("finance")
	}
	id, err := d.finance.CreateTransaction(ctx, TransactionInput{
		FamilyID:      scope.FamilyID,
		Type:          tx.Direction,
		Amount:        tx.Amount,
		Description:   tx.Description,
		Category:      tx.Category,
		Date:          tx.Date,
		PaymentMethod: tx.PaymentMethod,
	})
	if err != nil {
		return d.collaboratorFailure(ctx, "create_transaction", err)
	}
	return succeeded(id, fmt.Sprintf("%s of %s recorded: %s.", directionLabel(tx.Direction), tx.Amount.StringFixed(2), tx.Description))
}

func directionLabel(dir intent.Direction) string {
	if dir == intent.Income {
		return "Income"
	}
	return "Expense"
}

func (d *Dispatcher) createEvent(ctx context.Context, ev intent.EventCreate, scope Scope) Outcome {
	if d.calendar == nil {
		return notConfigured("calendar")
	}
	id, err := d.calendar.CreateEvent(ctx, EventInput{
		FamilyID: scope.FamilyID,
		Title:    ev.Title,
		Start:    ev.Start,
		End:      ev.End,
		AllDay:   ev.AllDay,
	})
	if err != nil {
		return d.collaboratorFailure(ctx, "create_event", err)
	}
	return succeeded(id, fmt.Sprintf("Event %q scheduled.", ev.Title))
}

func (d *Dispatcher) resolve(ctx context.Context, reference string, hint *intent.Date, events []resolver.Event, scope Scope) (resolver.Event, Outcome, bool) {
	match, ok := resolver.ResolveWithHint(reference, hint, scope.Location, events)
	d.logger.Trace(ctx, "event reference resolved",
		zap.Int("candidates", len(events)),
		zap.Bool("date_hint", hint != nil),
		zap.Bool("matched", ok),
	)
	if !ok {
		return resolver.Event{}, Failure(KindNotFound,
			fmt.Sprintf("I could not find an event matching %q.", reference),
			fmt.Errorf("%w: %q", ErrEntityNotFound, reference)), false
	}
	return match, Outcome{}, true
}

func (d *Dispatcher) deleteEvent(ctx context.Context, del intent.EventDelete, events []resolver.Event, scope Scope) Outcome {
	if d.calendar == nil {
		return notConfigured("calendar")
	}
	match, failed, ok := d.resolve(ctx, del.Reference, del.DateHint, events, scope)
	if !ok {
		return failed
	}
	if err := d.calendar.DeleteEvent(ctx, match.ID); err != nil {
		return d.collaboratorFailure(ctx, "delete_event", err)
	}
	return succeeded(match.ID, fmt.Sprintf("Event %q cancelled.", match.Title))
}

func (d *Dispatcher) updateEvent(ctx context.Context, up intent.EventUpdate, events []resolver.Event, scope Scope) Outcome {
	if d.calendar == nil {
		return notConfigured("calendar")
	}
	match, failed, ok := d.resolve(ctx, up.Reference, up.DateHint, events, scope)
	if !ok {
		return failed
	}

	patch := EventPatch{Title: up.NewTitle, Start: up.NewStart, End: up.NewEnd}
	if patch.IsEmpty() {
		return succeeded(match.ID, fmt.Sprintf("Nothing to change on %q.", match.Title))
	}
	if err := d.calendar.UpdateEvent(ctx, match.ID, patch); err != nil {
		return d.collaboratorFailure(ctx, "update_event", err)
	}
	return succeeded(match.ID, fmt.Sprintf("Event %q updated.", match.Title))
}
