// Package memory provides in-process finance and calendar collaborators.
// jarvisd uses them when no Supabase endpoint is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

// ErrNotFound is returned when an event id does not exist.
var ErrNotFound = errors.New("not found")

// Transaction is a stored finance record.
type Transaction struct {
	ID string
	dispatch.TransactionInput
	CreatedAt time.Time
}

// Event is a stored calendar event.
type Event struct {
	ID string
	dispatch.EventInput
}

// Store is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	transactions []Transaction
	events       map[string]Event
	now          func() time.Time
}

var (
	_ dispatch.Finance  = (*Store)(nil)
	_ dispatch.Calendar = (*Store)(nil)
)

// New creates an empty store.
func New() *Store {
	return &Store{events: make(map[string]Event), now: time.Now}
}

// CreateTransaction implements dispatch.Finance.
func (s *Store) CreateTransaction(ctx context.Context, in dispatch.TransactionInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !in.Amount.IsPositive() {
		return "", fmt.Errorf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.transactions = append(s.transactions, Transaction{ID: id, TransactionInput: in, CreatedAt: s.now()})
	return id, nil
}

// Transactions returns a copy of the stored transactions in insertion order.
func (s *Store) Transactions() []Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transaction(nil), s.transactions...)
}

// CreateEvent implements dispatch.Calendar.
func (s *Store) CreateEvent(ctx context.Context, in dispatch.EventInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.events[id] = Event{ID: id, EventInput: in}
	return id, nil
}

// UpdateEvent implements dispatch.Calendar.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch dispatch.EventPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[id]
	if !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Start != nil {
		ev.Start = *patch.Start
	}
	if patch.End != nil {
		ev.End = *patch.End
	}
	s.events[id] = ev
	return nil
}

// DeleteEvent implements dispatch.Calendar.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	delete(s.events, id)
	return nil
}

// Event returns a stored event by id.
func (s *Store) Event(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	return ev, ok
}

// ListEvents implements dispatch.Calendar. Events are ordered by start time.
// A zero window bound is open.
func (s *Store) ListEvents(ctx context.Context, familyID string, window dispatch.Window) ([]resolver.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]resolver.Event, 0, len(s.events))
	for _, ev := range s.events {
		if familyID != "" && ev.FamilyID != familyID {
			continue
		}
		if !window.From.IsZero() && ev.Start.Before(window.From) {
			continue
		}
		if !window.To.IsZero() && ev.Start.After(window.To) {
			continue
		}
		out = append(out, resolver.Event{ID: ev.ID, Title: ev.Title, StartTime: ev.Start})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}
