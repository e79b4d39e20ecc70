package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! Here it is: {\"action\":\"task\"} hope it helps", `{"action":"task"}`},
		{"nested objects", "x {\"a\":{\"b\":2}} y", `{"a":{"b":2}}`},
		{"fence in middle", "text ```json {\"a\":1}``` more", `{"a":1}`},
		{"no braces", "```json\nnot json\n```", "not json"},
		{"only closing brace", "} oops {", "} oops {"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.raw))
		})
	}
}

func TestExtract_IdempotentOnCompactJSON(t *testing.T) {
	inputs := []string{
		`{}`,
		`{"a":1}`,
		`{"action":"transaction","confidence":0.9,"data":{"type":"expense","amount":50}}`,
		`{"s":"brace } inside","n":[1,2,{"k":null}]}`,
	}
	for _, j := range inputs {
		assert.Equal(t, j, Extract(j))
		assert.Equal(t, j, Extract(Extract(j)))
	}
}
