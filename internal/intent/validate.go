package intent

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Options control how model output is projected onto an intent.
type Options struct {
	// Location interprets timestamps that carry no UTC offset. Defaults to UTC.
	Location *time.Location
	// Today is used when a transaction carries no date.
	Today Date
	// Repair runs a JSON repair pass before rejecting unparseable text.
	Repair bool
	// Logger receives notes about ignored advisory fields. Optional.
	Logger *zap.Logger
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

// Validate parses jsonText and projects it onto the intent variant named by
// its action field. Fields are read from the data object, falling back to
// the top level. Unknown fields are ignored and absent optional fields stay
// unset.
func Validate(jsonText string, opts Options) (Intent, error) {
	obj, err := decodeObject(jsonText)
	if err != nil && opts.Repair {
		if repaired, rerr := jsonrepair.JSONRepair(jsonText); rerr == nil {
			obj, err = decodeObject(repaired)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedIntent, err)
	}

	f := fields{top: obj, loc: opts.location()}
	if data, ok := obj["data"].(map[string]any); ok {
		f.data = data
	}

	actionName, _ := obj["action"].(string)
	action := Action(strings.ToLower(strings.TrimSpace(actionName)))

	switch action {
	case ActionTransaction, ActionEvent, ActionTask, ActionDeleteEvent, ActionUpdateEvent:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, actionName)
	}

	conf, err := f.confidence()
	if err != nil {
		logger := opts.Logger
		if logger == nil {
			logger = zap.NewNop()
		}
		logger.Warn("ignoring unusable confidence", zap.String("action", string(action)), zap.Error(err))
	}

	switch action {
	case ActionTransaction:
		return f.transaction(conf, opts.Today)
	case ActionEvent:
		return f.eventCreate(conf)
	case ActionTask:
		return f.taskCreate(conf)
	case ActionDeleteEvent:
		return f.eventDelete(conf)
	case ActionUpdateEvent:
		return f.eventUpdate(conf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, actionName)
	}
}

func decodeObject(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	if obj == nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	return obj, nil
}

// fields looks up keys in the data object first and then at the top level.
type fields struct {
	data map[string]any
	top  map[string]any
	loc  *time.Location
}

func (f fields) lookup(keys ...string) (any, bool) {
	for _, m := range []map[string]any{f.data, f.top} {
		for _, k := range keys {
			if v, ok := m[k]; ok && v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

func (f fields) str(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func (f fields) optStr(keys ...string) *string {
	if s := f.str(keys...); s != "" {
		return &s
	}
	return nil
}

func (f fields) boolean(keys ...string) bool {
	v, ok := f.lookup(keys...)
	if !ok {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	default:
		return false
	}
}

// confidence is advisory: a value that cannot be coerced reads as 0 and
// the error is only reported.
func (f fields) confidence() (float64, error) {
	v, ok := f.lookup("confidence")
	if !ok {
		return 0, nil
	}
	d, err := toDecimal(v)
	if err != nil {
		return 0, fmt.Errorf("confidence: %w", err)
	}
	c, _ := d.Float64()
	return math.Max(0, math.Min(1, c)), nil
}

func (f fields) timestamp(keys ...string) (*time.Time, error) {
	s := f.str(keys...)
	if s == "" {
		return nil, nil
	}
	t, err := ParseTimestamp(s, f.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIntent, keys[0], err)
	}
	return &t, nil
}

func (f fields) date(keys ...string) (*Date, error) {
	s := f.str(keys...)
	if s == "" {
		return nil, nil
	}
	if d, err := ParseDate(s); err == nil {
		return &d, nil
	}
	t, err := ParseTimestamp(s, f.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedIntent, keys[0], err)
	}
	d := DateOf(t.In(f.loc))
	return &d, nil
}

func (f fields) transaction(conf float64, today Date) (Intent, error) {
	raw, ok := f.lookup("amount", "value")
	if !ok {
		return nil, fmt.Errorf("%w: transaction amount is missing", ErrMalformedIntent)
	}
	amount, err := toDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction amount: %v", ErrMalformedIntent, err)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: transaction amount must be positive, got %s", ErrMalformedIntent, amount)
	}

	var dir Direction
	switch strings.ToLower(f.str("type", "direction")) {
	case "income":
		dir = Income
	case "expense", "":
		dir = Expense
	default:
		return nil, fmt.Errorf("%w: transaction type %q", ErrMalformedIntent, f.str("type", "direction"))
	}

	date := today
	if d, err := f.date("date"); err != nil {
		return nil, err
	} else if d != nil {
		date = *d
	}

	return Transaction{
		Confidence:    conf,
		Direction:     dir,
		Amount:        amount,
		Description:   f.str("description"),
		Category:      f.str("category"),
		Date:          date,
		PaymentMethod: paymentMethod(f.str("payment_method", "paymentMethod")),
	}, nil
}

func paymentMethod(s string) PaymentMethod {
	switch PaymentMethod(strings.ToLower(s)) {
	case CreditCard:
		return CreditCard
	case Cash:
		return Cash
	default:
		return Pix
	}
}

func (f fields) eventCreate(conf float64) (Intent, error) {
	ev := EventCreate{
		Confidence: conf,
		Title:      f.str("title"),
		AllDay:     f.boolean("all_day", "allDay", "is_all_day"),
	}
	start, err := f.timestamp("start_time", "start", "startTime")
	if err != nil {
		return nil, err
	}
	end, err := f.timestamp("end_time", "end", "endTime")
	if err != nil {
		return nil, err
	}
	if start != nil {
		ev.Start = *start
	}
	if end != nil {
		ev.End = *end
	}
	if start != nil && end != nil && !ev.AllDay && ev.End.Before(ev.Start) {
		return nil, fmt.Errorf("%w: event ends before it starts", ErrMalformedIntent)
	}
	return ev, nil
}

func (f fields) taskCreate(conf float64) (Intent, error) {
	due, err := f.timestamp("due_date", "dueDate", "date")
	if err != nil {
		return nil, err
	}
	return TaskCreate{Confidence: conf, Title: f.str("title"), DueDate: due}, nil
}

func (f fields) reference() string {
	return f.str("reference", "search_term", "searchTerm", "title")
}

func (f fields) eventDelete(conf float64) (Intent, error) {
	hint, err := f.date("date", "date_hint", "dateHint")
	if err != nil {
		return nil, err
	}
	return EventDelete{Confidence: conf, Reference: f.reference(), DateHint: hint}, nil
}

func (f fields) eventUpdate(conf float64) (Intent, error) {
	hint, err := f.date("date", "date_hint", "dateHint")
	if err != nil {
		return nil, err
	}
	start, err := f.timestamp("new_start", "newStart", "new_start_time")
	if err != nil {
		return nil, err
	}
	end, err := f.timestamp("new_end", "newEnd", "new_end_time")
	if err != nil {
		return nil, err
	}
	return EventUpdate{
		Confidence: conf,
		Reference:  f.reference(),
		NewTitle:   f.optStr("new_title", "newTitle"),
		NewStart:   start,
		NewEnd:     end,
		DateHint:   hint,
	}, nil
}

// toDecimal coerces a JSON number or numeric string. Strings may group
// thousands with either dots or commas; see normalizeNumber.
func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case json.Number:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		s := normalizeNumber(strings.TrimSpace(n))
		if s == "" {
			return decimal.Zero, fmt.Errorf("empty number")
		}
		return decimal.NewFromString(s)
	default:
		return decimal.Zero, fmt.Errorf("not a number: %T", v)
	}
}

// normalizeNumber rewrites "1.234,56" and "1,234.56" to "1234.56". When
// both separators appear, the last one is the decimal separator. A lone
// separator that repeats groups thousands ("1.234.567"); a single one
// marks decimals ("12,50", "12.50").
func normalizeNumber(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	case lastDot >= 0 && strings.Count(s, ".") > 1:
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// ParseTimestamp accepts RFC 3339 with an explicit offset, or an
// offset-less local form interpreted in loc. A date alone is midnight in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

