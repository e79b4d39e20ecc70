package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/jarvis/internal/command"
	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	"github.com/fyrsmithlabs/jarvis/internal/intent"
	"github.com/fyrsmithlabs/jarvis/internal/resolver"
)

// JarvisRequest is the request body for POST /api/jarvis and
// POST /api/jarvis/execute. Events is only read by the latter.
type JarvisRequest struct {
	Type    string           `json:"type"`
	Content string           `json:"content"`
	Context *RequestContext  `json:"context,omitempty"`
	Events  []resolver.Event `json:"events,omitempty"`
}

// RequestContext carries the caller's clock, zone and family.
type RequestContext struct {
	CurrentDate string `json:"currentDate,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	FamilyID    string `json:"familyId,omitempty"`
}

// command converts the body into a command request. currentDate accepts
// RFC 3339 or a local timestamp read in the request zone.
func (r JarvisRequest) command(defaultZone string) (command.Request, error) {
	req := command.Request{
		Kind:    command.Kind(strings.ToLower(strings.TrimSpace(r.Type))),
		Payload: r.Content,
	}
	if r.Context == nil {
		return req, nil
	}
	req.Context.TimeZone = r.Context.Timezone
	req.Context.FamilyID = r.Context.FamilyID

	if s := strings.TrimSpace(r.Context.CurrentDate); s != "" {
		zone := r.Context.Timezone
		if zone == "" {
			zone = defaultZone
		}
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return command.Request{}, fmt.Errorf("%w: %q", command.ErrInvalidTimeZone, zone)
		}
		t, err := intent.ParseTimestamp(s, loc)
		if err != nil {
			return command.Request{}, fmt.Errorf("invalid currentDate %q", s)
		}
		req.Context.CurrentDateTime = t
	}
	return req, nil
}

// ExecuteResponse is the response body for POST /api/jarvis/execute.
type ExecuteResponse struct {
	Intent   intent.Intent    `json:"intent,omitempty"`
	Provider string           `json:"provider,omitempty"`
	Outcome  dispatch.Outcome `json:"outcome"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Providers map[string]bool `json:"providers"`
}
