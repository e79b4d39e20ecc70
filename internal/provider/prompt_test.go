package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/jarvis/internal/command"
)

func normalizedRequest(t *testing.T, kind command.Kind, payload string) command.Request {
	t.Helper()
	req := command.Request{
		Kind:    kind,
		Payload: payload,
		Context: command.Context{FamilyID: "fam_1"},
	}
	require.NoError(t, req.Normalize("America/Sao_Paulo", time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)))
	return req
}

func TestSystemInstruction(t *testing.T) {
	got := SystemInstruction(normalizedRequest(t, command.KindText, "oi"))

	for _, action := range []string{`"transaction"`, `"event"`, `"task"`, `"delete_event"`, `"update_event"`} {
		assert.Contains(t, got, action)
	}
	assert.Contains(t, got, "2024-05-10T12:00:00-03:00")
	assert.Contains(t, got, "Friday")
	assert.Contains(t, got, "America/Sao_Paulo (UTC offset -03:00)")
	assert.Contains(t, got, "fam_1")
	assert.Contains(t, got, "2024-05-10T14:00:00-03:00")
	assert.Contains(t, got, `"Z" suffix unless the user explicitly asks for UTC`)
}

func TestBuildPrompt(t *testing.T) {
	p, err := BuildPrompt(normalizedRequest(t, command.KindText, "  Gastei 50 reais no Uber "))
	require.NoError(t, err)
	assert.Equal(t, "Gastei 50 reais no Uber", p.Text)
	assert.Nil(t, p.Image)
	assert.NotEmpty(t, p.Instruction)

	p, err = BuildPrompt(normalizedRequest(t, command.KindImage, "data:image/png;base64,aGVsbG8="))
	require.NoError(t, err)
	require.NotNil(t, p.Image)
	assert.Equal(t, "image/png", p.Image.MIMEType)
	assert.Equal(t, imageTaskText, p.Text)

	_, err = BuildPrompt(normalizedRequest(t, command.KindImage, "%%%"))
	assert.ErrorIs(t, err, command.ErrInvalidImage)
}

func TestPrompt_Combined(t *testing.T) {
	p := Prompt{Instruction: "INSTR", Text: "hello"}
	assert.Equal(t, "INSTR\n\nUser input:\nhello", p.combined())
}
