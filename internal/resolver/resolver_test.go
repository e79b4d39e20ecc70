package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/jarvis/internal/intent"
)

func TestResolve(t *testing.T) {
	candidates := []Event{{ID: "1", Title: "Dentist Appointment"}}

	got, ok := Resolve("dentist", candidates)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)

	got, ok = Resolve("DENTIST appointment", candidates)
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)

	_, ok = Resolve("cardiologist", candidates)
	assert.False(t, ok)
}

func TestResolve_FirstMatchInCallerOrder(t *testing.T) {
	candidates := []Event{
		{ID: "a", Title: "Team sync"},
		{ID: "b", Title: "Reunião de Projeto"},
		{ID: "c", Title: "Reunião geral"},
	}
	got, ok := Resolve("reunião", candidates)
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}

func TestResolve_EmptyReference(t *testing.T) {
	_, ok := Resolve("  ", []Event{{ID: "1", Title: "Anything"}})
	assert.False(t, ok)

	_, ok = Resolve("x", nil)
	assert.False(t, ok)
}

func TestResolveWithHint(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)
	at := func(day int) time.Time { return time.Date(2024, 5, day, 10, 0, 0, 0, loc) }

	candidates := []Event{
		{ID: "far", Title: "Reunião de Projeto", StartTime: at(3)},
		{ID: "near", Title: "Reunião de Projeto", StartTime: at(11)},
		{ID: "exact", Title: "reunião", StartTime: at(20)},
		{ID: "other", Title: "Dentista", StartTime: at(11)},
	}

	tests := []struct {
		name string
		ref  string
		hint *intent.Date
		want string
	}{
		{"exact title beats date", "Reunião", &intent.Date{Year: 2024, Month: time.May, Day: 11}, "exact"},
		{"nearest date among partial matches", "projeto", &intent.Date{Year: 2024, Month: time.May, Day: 10}, "near"},
		{"no hint keeps caller order", "projeto", nil, "far"},
		{"equal distance keeps caller order", "projeto", &intent.Date{Year: 2024, Month: time.May, Day: 7}, "far"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveWithHint(tt.ref, tt.hint, loc, candidates)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.ID)
		})
	}

	_, ok := ResolveWithHint("cardiologista", nil, loc, candidates)
	assert.False(t, ok)
}

func TestResolveWithHint_DayMeasuredInZone(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	// 01:00 UTC on the 12th is still the 11th in São Paulo.
	candidates := []Event{
		{ID: "twelfth", Title: "Aula", StartTime: time.Date(2024, 5, 12, 15, 0, 0, 0, time.UTC)},
		{ID: "eleventh", Title: "Aula", StartTime: time.Date(2024, 5, 12, 1, 0, 0, 0, time.UTC)},
	}
	got, ok := ResolveWithHint("aula", &intent.Date{Year: 2024, Month: time.May, Day: 11}, loc, candidates)
	require.True(t, ok)
	assert.Equal(t, "eleventh", got.ID)
}
