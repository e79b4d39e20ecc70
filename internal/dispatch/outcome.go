package dispatch

import "errors"

var (
	// ErrEntityNotFound is returned when no event matches the reference.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrCollaborator wraps failures reported by a finance or calendar backend.
	ErrCollaborator = errors.New("collaborator error")

	// ErrNotConfigured is returned when the needed collaborator is missing.
	ErrNotConfigured = errors.New("collaborator not configured")

	// ErrNotImplemented is returned for actions with no collaborator yet.
	ErrNotImplemented = errors.New("action not implemented")
)

// Kind classifies an outcome so callers can render it.
type Kind string

const (
	KindSuccess             Kind = "success"
	KindNotFound            Kind = "not_found"
	KindNotImplemented      Kind = "not_implemented"
	KindCollaboratorError   Kind = "collaborator_error"
	KindNotConfigured       Kind = "not_configured"
	KindNotUnderstood       Kind = "not_understood"
	KindParseError          Kind = "parse_error"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindInvalidRequest      Kind = "invalid_request"
	KindInternal            Kind = "internal_error"
)

// Outcome is the result of handling one command.
type Outcome struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	AffectedEntityID string `json:"affected_entity_id,omitempty"`
	Kind             Kind   `json:"kind"`

	// Err is the underlying cause for failed outcomes. It is never rendered.
	Err error `json:"-"`
}

func succeeded(id, msg string) Outcome {
	return Outcome{Success: true, Message: msg, AffectedEntityID: id, Kind: KindSuccess}
}

// Failure builds a failed outcome.
func Failure(kind Kind, msg string, err error) Outcome {
	return Outcome{Success: false, Message: msg, Kind: kind, Err: err}
}
