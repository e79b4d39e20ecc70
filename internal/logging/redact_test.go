package logging

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/jarvis/internal/config"
)

func TestSecretField(t *testing.T) {
	l := NewTestLogger()
	l.Info(context.Background(), "provider configured", Secret("api_key", config.Secret("sk-abcdefghijklmnopqrstuvwxyz")))

	entries := l.FilterMessage("provider configured").All()
	require.Len(t, entries, 1)
	l.AssertNoSecrets(t)
}

func TestRedactedString(t *testing.T) {
	f := RedactedString("service_key", "abcdef")
	assert.Equal(t, "[REDACTED:6]", f.String)
}

func TestTruncated(t *testing.T) {
	assert.Equal(t, "short", Truncated("raw", "short", 10).String)

	long := strings.Repeat("é", 20) // 40 bytes
	f := Truncated("raw", long, 5)
	assert.True(t, strings.HasPrefix(f.String, "éé"))
	assert.Contains(t, f.String, "truncated 40 bytes")
}

func TestRedactingEncoder_JSON(t *testing.T) {
	base := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	enc, err := NewRedactingEncoder(base, NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "call"}, []zapcore.Field{
		zap.String("api_key", "plain-key"),
		zap.String("header", "Bearer abc.def.ghi"),
		zap.String("note", "sk-abcdefghijklmnopqrstuvwxyz0123"),
		zap.String("action", "transaction"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.NotContains(t, out, "plain-key")
	assert.NotContains(t, out, "abc.def.ghi")
	assert.NotContains(t, out, "sk-abcdefghijklmnopqrstuvwxyz0123")
	assert.Contains(t, out, "transaction")
}
