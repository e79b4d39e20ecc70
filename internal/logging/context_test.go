package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestContextFields_Empty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))
}

func TestContextFields_OTELTracing(t *testing.T) {
	provider := trace.NewTracerProvider(
		trace.WithSampler(trace.AlwaysSample()),
		trace.WithSyncer(tracetest.NewInMemoryExporter()),
	)
	ctx, span := provider.Tracer("test").Start(context.Background(), "classify")
	defer span.End()

	keys := map[string]bool{}
	for _, f := range ContextFields(ctx) {
		keys[f.Key] = true
	}
	assert.True(t, keys["trace_id"])
	assert.True(t, keys["span_id"])
	assert.True(t, keys["trace_sampled"])
}

func TestWithRequestID_DropsInvalid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"valid", "abc-123_X", "abc-123_X"},
		{"empty", "", ""},
		{"spaces", "abc 123", ""},
		{"injection", "abc\n{\"level\":\"error\"}", ""},
		{"too long", strings.Repeat("a", maxIDLen+1), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(context.Background(), tt.id)
			assert.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestWithFamilyID(t *testing.T) {
	ctx := WithFamilyID(context.Background(), "fam_1")
	assert.Equal(t, "fam_1", FamilyIDFromContext(ctx))

	ctx = WithFamilyID(context.Background(), "fam/../1")
	assert.Empty(t, FamilyIDFromContext(ctx))
}
