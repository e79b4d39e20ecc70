package supabase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"

	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

const eventsTable = "events"

// Calendar stores events in the events table.
type Calendar struct {
	client *Client
}

var _ dispatch.Calendar = (*Calendar)(nil)

// NewCalendar creates the calendar collaborator.
func NewCalendar(c *Client) *Calendar {
	return &Calendar{client: c}
}

type eventRow struct {
	FamilyID  string `json:"family_id"`
	Title     string `json:"title"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// CreateEvent implements dispatch.Calendar.
func (c *Calendar) CreateEvent(ctx context.Context, in dispatch.EventInput) (string, error) {
	row := eventRow{
		FamilyID:  in.FamilyID,
		Title:     in.Title,
		StartTime: formatTime(in.Start),
		EndTime:   formatTime(in.End),
		AllDay:    in.AllDay,
	}
	var created []idRow
	err := c.client.query(ctx, "insert", eventsTable, &created, func(q *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return q.Insert(row, false, "", "representation", "")
	})
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}
	if len(created) == 0 {
		return "", fmt.Errorf("create event: no row returned")
	}
	return created[0].ID, nil
}

// UpdateEvent implements dispatch.Calendar. Only the fields present in
// patch are sent.
func (c *Calendar) UpdateEvent(ctx context.Context, id string, patch dispatch.EventPatch) error {
	var updated []idRow
	err := c.client.query(ctx, "update", eventsTable, &updated, func(q *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return q.Update(patch.Fields(), "representation", "").Eq("id", id)
	})
	if err != nil {
		return fmt.Errorf("update event %s: %w", id, err)
	}
	if len(updated) == 0 {
		return fmt.Errorf("update event %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteEvent implements dispatch.Calendar.
func (c *Calendar) DeleteEvent(ctx context.Context, id string) error {
	var deleted []idRow
	err := c.client.query(ctx, "delete", eventsTable, &deleted, func(q *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		return q.Delete("representation", "").Eq("id", id)
	})
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if len(deleted) == 0 {
		return fmt.Errorf("delete event %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListEvents implements dispatch.Calendar, ordered by start time.
func (c *Calendar) ListEvents(ctx context.Context, familyID string, window dispatch.Window) ([]resolver.Event, error) {
	// Filters are keyed by column, so both bounds on start_time go
	// through a single and=(...) group.
	var bounds []string
	if !window.From.IsZero() {
		bounds = append(bounds, "start_time.gte."+window.From.UTC().Format(time.RFC3339))
	}
	if !window.To.IsZero() {
		bounds = append(bounds, "start_time.lte."+window.To.UTC().Format(time.RFC3339))
	}

	var rows []resolver.Event
	err := c.client.query(ctx, "select", eventsTable, &rows, func(q *postgrest.QueryBuilder) *postgrest.FilterBuilder {
		f := q.Select("id,title,start_time", "", false).
			Order("start_time", &postgrest.OrderOpts{Ascending: true})
		if familyID != "" {
			f = f.Eq("family_id", familyID)
		}
		if len(bounds) > 0 {
			f = f.And(strings.Join(bounds, ","), "")
		}
		return f
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return rows, nil
}
