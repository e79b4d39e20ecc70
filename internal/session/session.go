// Package session runs a single natural-language command end to end:
// classify, extract, validate, resolve, dispatch and publish.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/jarvis/internal/command"
	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	"github.com/fyrsmithlabs/jarvis/internal/intent"
	"github.com/fyrsmithlabs/jarvis/internal/logging"
	"github.com/fyrsmithlabs/jarvis/internal/notify"
	"github.com/fyrsmithlabs/jarvis/internal/provider"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

const (
	defaultEventWindow = 30 * 24 * time.Hour
	maxLoggedRawBytes  = 2048
)

// Classifier turns a request into raw model text.
type Classifier interface {
	Classify(ctx context.Context, req command.Request) (provider.RawOutput, error)
}

// Config controls request defaults and decoding.
type Config struct {
	DefaultTimeZone string
	RepairJSON      bool
	// EventWindow bounds the event listing used for resolution, on both
	// sides of the current time.
	EventWindow time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Session wires the pipeline. Calendar is used only to list events when
// the caller supplies none; it may be nil.
type Session struct {
	classifier Classifier
	dispatcher *dispatch.Dispatcher
	calendar   dispatch.Calendar
	publisher  notify.Publisher
	cfg        Config
	logger     *logging.Logger
}

// New creates a Session.
func New(cfg Config, classifier Classifier, dispatcher *dispatch.Dispatcher, calendar dispatch.Calendar, publisher notify.Publisher, logger *logging.Logger) *Session {
	if cfg.DefaultTimeZone == "" {
		cfg.DefaultTimeZone = command.DefaultTimeZone
	}
	if cfg.EventWindow <= 0 {
		cfg.EventWindow = defaultEventWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if publisher == nil {
		publisher = notify.NoOp{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Session{
		classifier: classifier,
		dispatcher: dispatcher,
		calendar:   calendar,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
	}
}

// TimeZone is the zone applied to requests that name none.
func (s *Session) TimeZone() string { return s.cfg.DefaultTimeZone }

// Result is the outcome of Execute. Intent is nil when interpretation failed.
type Result struct {
	Intent   intent.Intent
	Outcome  dispatch.Outcome
	Provider string
}

// interpretation carries the normalized request alongside the intent.
type interpretation struct {
	req      command.Request
	intent   intent.Intent
	provider string
}

// Interpret classifies req and validates the model output without
// dispatching it.
func (s *Session) Interpret(ctx context.Context, req command.Request) (intent.Intent, error) {
	ctx = logging.WithFamilyID(ctx, req.Context.FamilyID)
	in, err := s.interpret(ctx, req)
	if err != nil {
		return nil, err
	}
	return in.intent, nil
}

func (s *Session) interpret(ctx context.Context, req command.Request) (interpretation, error) {
	if err := req.Normalize(s.cfg.DefaultTimeZone, s.cfg.Now()); err != nil {
		return interpretation{}, err
	}
	log := s.logger.With(zap.String("kind", string(req.Kind)))

	raw, err := s.classifier.Classify(ctx, req)
	if err != nil {
		log.Error(ctx, "classification failed", zap.Int("attempts", len(raw.Attempts)), zap.Error(err))
		return interpretation{}, err
	}

	text := intent.Extract(raw.Text)
	log.Debug(ctx, "model output",
		zap.String("provider", raw.Provider),
		logging.Truncated("raw", raw.Text, maxLoggedRawBytes),
	)

	loc := req.Context.Location()
	in, err := intent.Validate(text, intent.Options{
		Location: loc,
		Today:    intent.DateOf(req.Context.CurrentDateTime.In(loc)),
		Repair:   s.cfg.RepairJSON,
		Logger:   log.Underlying().With(logging.ContextFields(ctx)...),
	})
	if err != nil {
		log.Warn(ctx, "model output rejected",
			zap.String("provider", raw.Provider),
			zap.Error(err),
			logging.Truncated("raw", raw.Text, maxLoggedRawBytes),
		)
		return interpretation{}, err
	}

	log.Info(ctx, "command interpreted",
		zap.String("provider", raw.Provider),
		zap.String("action", string(in.Action())),
		zap.Float64("confidence", intent.Confidence(in)),
	)
	return interpretation{req: req, intent: in, provider: raw.Provider}, nil
}

// Execute interprets req and dispatches the intent. events is the caller's
// snapshot of existing events; when empty and the intent references an
// event, the calendar is queried. Execute never panics: every failure is
// reported in Result.Outcome.
func (s *Session) Execute(ctx context.Context, req command.Request, events []resolver.Event) (res Result) {
	ctx = logging.WithFamilyID(ctx, req.Context.FamilyID)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "command execution panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = Result{Outcome: dispatch.Failure(dispatch.KindInternal, "Something went wrong. Please try again.", fmt.Errorf("panic: %v", r))}
		}
	}()

	in, err := s.interpret(ctx, req)
	if err != nil {
		return Result{Outcome: Describe(err)}
	}

	scope := dispatch.Scope{FamilyID: in.req.Context.FamilyID, Location: in.req.Context.Location()}
	if len(events) == 0 && needsResolution(in.intent) && s.calendar != nil {
		events, err = s.listEvents(ctx, in.req)
		if err != nil {
			outcome := dispatch.Failure(dispatch.KindCollaboratorError, err.Error(),
				fmt.Errorf("%w: list events: %w", dispatch.ErrCollaborator, err))
			s.publish(ctx, in, outcome)
			return Result{Intent: in.intent, Outcome: outcome, Provider: in.provider}
		}
	}

	outcome := s.dispatcher.Dispatch(ctx, in.intent, events, scope)
	if outcome.Err != nil {
		s.logger.Info(ctx, "command not applied",
			zap.String("action", string(in.intent.Action())),
			zap.String("kind", string(outcome.Kind)),
			zap.Error(outcome.Err),
		)
	}

	s.publish(ctx, in, outcome)
	return Result{Intent: in.intent, Outcome: outcome, Provider: in.provider}
}

func needsResolution(in intent.Intent) bool {
	switch in.(type) {
	case intent.EventDelete, intent.EventUpdate:
		return true
	}
	return false
}

func (s *Session) listEvents(ctx context.Context, req command.Request) ([]resolver.Event, error) {
	now := req.Context.CurrentDateTime
	events, err := s.calendar.ListEvents(ctx, req.Context.FamilyID, dispatch.Window{
		From: now.Add(-s.cfg.EventWindow),
		To:   now.Add(s.cfg.EventWindow),
	})
	if err != nil {
		s.logger.Error(ctx, "listing events failed", zap.Error(err))
		return nil, err
	}
	return events, nil
}

// publish sends the outcome event. Failures are logged and never affect
// the result.
func (s *Session) publish(ctx context.Context, in interpretation, outcome dispatch.Outcome) {
	err := s.publisher.Publish(ctx, notify.Event{
		RequestID:  logging.RequestIDFromContext(ctx),
		FamilyID:   in.req.Context.FamilyID,
		Action:     string(in.intent.Action()),
		Provider:   in.provider,
		Confidence: intent.Confidence(in.intent),
		Outcome:    outcome,
	})
	if err != nil {
		s.logger.Warn(ctx, "publishing outcome failed", zap.Error(err))
	}
}

// Describe converts a pipeline error into a user-facing outcome. Raw model
// output never reaches the message.
func Describe(err error) dispatch.Outcome {
	switch {
	case err == nil:
		return dispatch.Outcome{Success: true, Kind: dispatch.KindSuccess}
	case errors.Is(err, command.ErrEmptyPayload),
		errors.Is(err, command.ErrInvalidKind),
		errors.Is(err, command.ErrInvalidTimeZone),
		errors.Is(err, command.ErrInvalidImage):
		return dispatch.Failure(dispatch.KindInvalidRequest, err.Error(), err)
	case errors.Is(err, provider.ErrProviderUnavailable):
		return dispatch.Failure(dispatch.KindProviderUnavailable, "The assistant is unavailable right now. Please try again later.", err)
	case errors.Is(err, intent.ErrUnknownAction):
		return dispatch.Failure(dispatch.KindNotUnderstood, "Sorry, I could not understand the command.", err)
	case errors.Is(err, intent.ErrMalformedIntent):
		return dispatch.Failure(dispatch.KindParseError, "Failed to process the assistant's response. Please try again.", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dispatch.Failure(dispatch.KindInternal, "The request was cancelled.", err)
	default:
		return dispatch.Failure(dispatch.KindInternal, "Something went wrong. Please try again.", err)
	}
}
