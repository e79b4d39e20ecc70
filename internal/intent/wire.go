package intent

import (
	"encoding/json"
	"time"
)

// envelope is the wire shape shared by every intent.
type envelope struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Data       any     `json:"data"`
}

type transactionData struct {
	Type          Direction     `json:"type"`
	Amount        json.Number   `json:"amount"`
	Description   string        `json:"description"`
	Category      string        `json:"category,omitempty"`
	Date          Date          `json:"date"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

type eventData struct {
	Title     string  `json:"title"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	AllDay    bool    `json:"all_day"`
}

type taskData struct {
	Title   string  `json:"title"`
	DueDate *string `json:"due_date,omitempty"`
}

type deleteData struct {
	Reference string `json:"reference"`
	Date      *Date  `json:"date,omitempty"`
}

type updateData struct {
	Reference string  `json:"reference"`
	NewTitle  *string `json:"new_title,omitempty"`
	NewStart  *string `json:"new_start,omitempty"`
	NewEnd    *string `json:"new_end,omitempty"`
	Date      *Date   `json:"date,omitempty"`
}

// formatTime renders t in its own zone so the caller's offset survives.
func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// MarshalJSON renders the wire form {action, confidence, data}.
func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action:     t.Action(),
		Confidence: t.Confidence,
		Data: transactionData{
			Type:          t.Direction,
			Amount:        json.Number(t.Amount.String()),
			Description:   t.Description,
			Category:      t.Category,
			Date:          t.Date,
			PaymentMethod: t.PaymentMethod,
		},
	})
}

// MarshalJSON renders the wire form {action, confidence, data}.
func (e EventCreate) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action:     e.Action(),
		Confidence: e.Confidence,
		Data: eventData{
			Title:     e.Title,
			StartTime: formatTime(e.Start),
			EndTime:   formatTime(e.End),
			AllDay:    e.AllDay,
		},
	})
}

// MarshalJSON renders the wire form {action, confidence, data}.
func (t TaskCreate) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action:     t.Action(),
		Confidence: t.Confidence,
		Data:       taskData{Title: t.Title, DueDate: formatTimePtr(t.DueDate)},
	})
}

// MarshalJSON renders the wire form {action, confidence, data}.
func (e EventDelete) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action:     e.Action(),
		Confidence: e.Confidence,
		Data:       deleteData{Reference: e.Reference, Date: e.DateHint},
	})
}

// MarshalJSON renders the wire form {action, confidence, data}.
func (e EventUpdate) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelope{
		Action:     e.Action(),
		Confidence: e.Confidence,
		Data: updateData{
			Reference: e.Reference,
			NewTitle:  e.NewTitle,
			NewStart:  formatTimePtr(e.NewStart),
			NewEnd:    formatTimePtr(e.NewEnd),
			Date:      e.DateHint,
		},
	})
}
