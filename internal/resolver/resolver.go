// Package resolver maps a free-text reference such as "dentist" onto one of
// the caller's existing calendar events.
package resolver

import (
	"strings"
	"time"

	"github.com/fyrsmithlabs/jarvis/internal/intent"
)

// Event is a read-only snapshot of an existing calendar event.
type Event struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve returns the first candidate, in caller order, whose title contains
// reference case-insensitively. An empty reference never matches.
func Resolve(reference string, candidates []Event) (Event, bool) {
	ref := normalize(reference)
	if ref == "" {
		return Event{}, false
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Title), ref) {
			return c, true
		}
	}
	return Event{}, false
}

// ResolveWithHint narrows all substring matches. An exact title match wins
// over partial matches. Remaining ties go to the event starting on the day
// closest to dateHint, measured in loc, and then to caller order.
func ResolveWithHint(reference string, dateHint *intent.Date, loc *time.Location, candidates []Event) (Event, bool) {
	ref := normalize(reference)
	if ref == "" {
		return Event{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	var matches, exact []Event
	for _, c := range candidates {
		title := normalize(c.Title)
		if !strings.Contains(title, ref) {
			continue
		}
		matches = append(matches, c)
		if title == ref {
			exact = append(exact, c)
		}
	}
	if len(exact) > 0 {
		matches = exact
	}
	if len(matches) == 0 {
		return Event{}, false
	}
	if dateHint == nil || len(matches) == 1 {
		return matches[0], true
	}

	target := dateHint.In(loc)
	best := matches[0]
	bestDist := dayDistance(best.StartTime, target, loc)
	for _, c := range matches[1:] {
		if d := dayDistance(c.StartTime, target, loc); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, true
}

// dayDistance is the absolute number of calendar days between the local day
// of t and target.
func dayDistance(t, target time.Time, loc *time.Location) int {
	day := intent.DateOf(t.In(loc)).In(loc)
	// Round absorbs the 23h/25h days around DST transitions.
	d := int(day.Sub(target).Round(24*time.Hour) / (24 * time.Hour))
	if d < 0 {
		return -d
	}
	return d
}
