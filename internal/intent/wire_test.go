package intent

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_MarshalJSON(t *testing.T) {
	tx := Transaction{
		Confidence:    0.9,
		Direction:     Expense,
		Amount:        decimal.RequireFromString("50.00"),
		Description:   "Uber",
		Category:      "Transporte",
		Date:          Date{2024, time.May, 10},
		PaymentMethod: Pix,
	}

	b, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"transaction","confidence":0.9,"data":{"type":"expense","amount":50,"description":"Uber","category":"Transporte","date":"2024-05-10","payment_method":"pix"}}`, string(b))
}

func TestEventCreate_MarshalJSONKeepsOffset(t *testing.T) {
	loc := saoPaulo(t)
	ev := EventCreate{
		Confidence: 1,
		Title:      "Dentista",
		Start:      time.Date(2024, 5, 11, 14, 0, 0, 0, loc),
		End:        time.Date(2024, 5, 11, 15, 0, 0, 0, loc),
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"event","confidence":1,"data":{"title":"Dentista","start_time":"2024-05-11T14:00:00-03:00","end_time":"2024-05-11T15:00:00-03:00","all_day":false}}`, string(b))
}

func TestEventUpdate_MarshalJSONOmitsAbsentFields(t *testing.T) {
	title := "Novo"
	b, err := json.Marshal(EventUpdate{Reference: "dentista", NewTitle: &title})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"update_event","confidence":0,"data":{"reference":"dentista","new_title":"Novo"}}`, string(b))
}

func TestMarshalJSON_ValidatesBack(t *testing.T) {
	loc := saoPaulo(t)
	hint := Date{2024, time.May, 11}
	intents := []Intent{
		TaskCreate{Confidence: 0.5, Title: "Ligar pro banco"},
		EventDelete{Confidence: 0.6, Reference: "reunião", DateHint: &hint},
	}
	for _, in := range intents {
		b, err := json.Marshal(in)
		require.NoError(t, err)

		out, err := Validate(string(b), Options{Location: loc})
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}
