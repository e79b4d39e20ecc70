package logging

import (
	"context"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 5)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if familyID := FamilyIDFromContext(ctx); familyID != "" {
		fields = append(fields, zap.String("family.id", familyID))
	}

	return fields
}

type requestCtxKey struct{}
type familyCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

func validID(id string) bool {
	return id != "" &&
		utf8.ValidString(id) &&
		len(id) <= maxIDLen &&
		idPattern.MatchString(id)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Request IDs arrive from
// client headers, so invalid values are dropped instead of stored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !validID(requestID) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// FamilyIDFromContext extracts the family identifier from context.
func FamilyIDFromContext(ctx context.Context) string {
	if f, ok := ctx.Value(familyCtxKey{}).(string); ok {
		return f
	}
	return ""
}

// WithFamilyID adds the family identifier to context. Invalid values are dropped.
func WithFamilyID(ctx context.Context, familyID string) context.Context {
	if !validID(familyID) {
		return ctx
	}
	return context.WithValue(ctx, familyCtxKey{}, familyID)
}
