package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/jarvis/internal/config"
	"github.com/fyrsmithlabs/jarvis/internal/dispatch"
	"github.com/fyrsmithlabs/jarvis/internal/intent"
)

type capturedRequest struct {
	method string
	path   string
	query  map[string][]string
	header http.Header
	body   map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.method = r.Method
		captured.path = r.URL.Path
		captured.query = r.URL.Query()
		captured.header = r.Header.Clone()
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &captured.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.SupabaseConfig{URL: srv.URL, ServiceKey: config.Secret("service-key")}, nil)
	require.NoError(t, err)
	return c, captured
}

func TestNew_Validation(t *testing.T) {
	_, err := New(config.SupabaseConfig{}, nil)
	assert.Error(t, err)

	_, err = New(config.SupabaseConfig{URL: "https://x.supabase.co"}, nil)
	assert.Error(t, err)

	_, err = New(config.SupabaseConfig{URL: "not a url", ServiceKey: "k"}, nil)
	assert.Error(t, err)
}

func TestFinance_CreateTransaction(t *testing.T) {
	c, req := newTestClient(t, http.StatusCreated, `[{"id":"tx-42"}]`)

	id, err := NewFinance(c).CreateTransaction(context.Background(), dispatch.TransactionInput{
		FamilyID:      "fam_1",
		Type:          intent.Expense,
		Amount:        decimal.RequireFromString("50.90"),
		Description:   "Uber",
		Category:      "Transporte",
		Date:          intent.Date{Year: 2024, Month: time.May, Day: 10},
		PaymentMethod: intent.Pix,
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-42", id)

	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/rest/v1/transactions", req.path)
	assert.Equal(t, "service-key", req.header.Get("apikey"))
	assert.Equal(t, "Bearer service-key", req.header.Get("Authorization"))
	assert.Equal(t, "return=representation", req.header.Get("Prefer"))
	assert.Equal(t, map[string]any{
		"family_id":      "fam_1",
		"type":           "expense",
		"amount":         50.9,
		"description":    "Uber",
		"category":       "Transporte",
		"date":           "2024-05-10",
		"payment_method": "pix",
	}, req.body)
}

func TestFinance_CreateTransactionError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusForbidden, `{"code":"42501","message":"new row violates row-level security policy"}`)

	_, err := NewFinance(c).CreateTransaction(context.Background(), dispatch.TransactionInput{Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "42501")
	assert.Contains(t, err.Error(), "row-level security")
}

func TestCalendar_CreateEvent(t *testing.T) {
	c, req := newTestClient(t, http.StatusCreated, `[{"id":"ev-1","title":"Dentista"}]`)
	loc := time.FixedZone("BRT", -3*3600)
	start := time.Date(2024, 5, 11, 14, 0, 0, 0, loc)

	id, err := NewCalendar(c).CreateEvent(context.Background(), dispatch.EventInput{
		FamilyID: "fam_1", Title: "Dentista", Start: start, End: start.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "ev-1", id)
	assert.Equal(t, "2024-05-11T14:00:00-03:00", req.body["start_time"])
	assert.Equal(t, "2024-05-11T15:00:00-03:00", req.body["end_time"])
	assert.Equal(t, false, req.body["all_day"])
}

func TestCalendar_UpdateEventSendsOnlyPatchFields(t *testing.T) {
	c, req := newTestClient(t, http.StatusOK, `[{"id":"ev-1"}]`)
	title := "Novo título"

	err := NewCalendar(c).UpdateEvent(context.Background(), "ev-1", dispatch.EventPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, req.method)
	assert.Equal(t, []string{"eq.ev-1"}, req.query["id"])
	assert.Equal(t, map[string]any{"title": "Novo título"}, req.body)
}

func TestCalendar_UpdateOrDeleteMissingRow(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `[]`)
	title := "x"

	assert.ErrorIs(t, NewCalendar(c).UpdateEvent(context.Background(), "nope", dispatch.EventPatch{Title: &title}), ErrNotFound)
	assert.ErrorIs(t, NewCalendar(c).DeleteEvent(context.Background(), "nope"), ErrNotFound)
}

func TestCalendar_DeleteEvent(t *testing.T) {
	c, req := newTestClient(t, http.StatusOK, `[{"id":"ev-9"}]`)

	require.NoError(t, NewCalendar(c).DeleteEvent(context.Background(), "ev-9"))
	assert.Equal(t, http.MethodDelete, req.method)
	assert.Equal(t, []string{"eq.ev-9"}, req.query["id"])
	assert.Nil(t, req.body)
}

func TestCalendar_ListEvents(t *testing.T) {
	c, req := newTestClient(t, http.StatusOK, `[
		{"id":"a","title":"Reunião de Projeto","start_time":"2024-05-11T13:00:00+00:00"},
		{"id":"b","title":"Dentista","start_time":"2024-05-12T17:30:00+00:00"}
	]`)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	events, err := NewCalendar(c).ListEvents(context.Background(), "fam_1", dispatch.Window{From: from, To: from.AddDate(0, 1, 0)})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Reunião de Projeto", events[0].Title)
	assert.True(t, events[0].StartTime.Equal(time.Date(2024, 5, 11, 13, 0, 0, 0, time.UTC)))

	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/rest/v1/events", req.path)
	assert.Equal(t, []string{"id,title,start_time"}, req.query["select"])
	assert.Equal(t, []string{"eq.fam_1"}, req.query["family_id"])
	assert.Equal(t, []string{"start_time.asc.nullslast"}, req.query["order"])
	assert.Equal(t, []string{"(start_time.gte.2024-05-01T00:00:00Z,start_time.lte.2024-06-01T00:00:00Z)"}, req.query["and"])
	assert.Empty(t, req.header.Get("Prefer"))
}

func TestClient_HonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c, err := New(config.SupabaseConfig{URL: srv.URL, ServiceKey: config.Secret("service-key")}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = NewCalendar(c).ListEvents(ctx, "fam_1", dispatch.Window{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
