// Package intent defines the closed set of actions a natural-language
// command can resolve to, and the lenient decoder that projects model
// output onto them.
//
// An Intent is one of Transaction, EventCreate, TaskCreate, EventDelete or
// EventUpdate. The set is closed: the interface carries an unexported
// method, so type switches over the five variants are exhaustive.
package intent

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrMalformedIntent is returned when model output is not valid JSON or
	// a required field cannot be coerced.
	ErrMalformedIntent = errors.New("malformed intent")

	// ErrUnknownAction is returned when the action discriminator is missing
	// or not one of the recognized actions.
	ErrUnknownAction = errors.New("unknown action")
)

// Action is the wire discriminator of an intent.
type Action string

const (
	ActionTransaction Action = "transaction"
	ActionEvent       Action = "event"
	ActionTask        Action = "task"
	ActionDeleteEvent Action = "delete_event"
	ActionUpdateEvent Action = "update_event"
)

// Actions lists every recognized action in a stable order.
var Actions = []Action{ActionTransaction, ActionEvent, ActionTask, ActionDeleteEvent, ActionUpdateEvent}

// Valid reports whether a is a recognized action.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Intent is the normalized result of classifying a command.
type Intent interface {
	Action() Action
	confidence() float64
}

// Confidence returns the advisory confidence score of i, in [0,1].
func Confidence(i Intent) float64 {
	if i == nil {
		return 0
	}
	return i.confidence()
}

// Direction is the money flow of a transaction.
type Direction string

const (
	Income  Direction = "income"
	Expense Direction = "expense"
)

// PaymentMethod is the model's guess of how a transaction was paid.
type PaymentMethod string

const (
	CreditCard PaymentMethod = "credit_card"
	Cash       PaymentMethod = "cash"
	Pix        PaymentMethod = "pix"
)

// Transaction records income or an expense. Amount is always positive.
type Transaction struct {
	Confidence    float64
	Direction     Direction
	Amount        decimal.Decimal
	Description   string
	Category      string
	Date          Date
	PaymentMethod PaymentMethod
}

// EventCreate schedules a calendar event. Start and End are zero when the
// model omitted them.
type EventCreate struct {
	Confidence float64
	Title      string
	Start      time.Time
	End        time.Time
	AllDay     bool
}

// TaskCreate adds a to-do item.
type TaskCreate struct {
	Confidence float64
	Title      string
	DueDate    *time.Time
}

// EventDelete removes the event whose title matches Reference.
type EventDelete struct {
	Confidence float64
	Reference  string
	DateHint   *Date
}

// EventUpdate patches the event whose title matches Reference. Nil fields
// are left untouched.
type EventUpdate struct {
	Confidence float64
	Reference  string
	NewTitle   *string
	NewStart   *time.Time
	NewEnd     *time.Time
	DateHint   *Date
}

func (Transaction) Action() Action { return ActionTransaction }
func (EventCreate) Action() Action { return ActionEvent }
func (TaskCreate) Action() Action  { return ActionTask }
func (EventDelete) Action() Action { return ActionDeleteEvent }
func (EventUpdate) Action() Action { return ActionUpdateEvent }

func (t Transaction) confidence() float64 { return t.Confidence }
func (e EventCreate) confidence() float64 { return e.Confidence }
func (t TaskCreate) confidence() float64  { return t.Confidence }
func (e EventDelete) confidence() float64 { return e.Confidence }
func (e EventUpdate) confidence() float64 { return e.Confidence }

var (
	_ Intent = Transaction{}
	_ Intent = EventCreate{}
	_ Intent = TaskCreate{}
	_ Intent = EventDelete{}
	_ Intent = EventUpdate{}
)
