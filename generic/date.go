package generic

import (
	"encoding/json"
	"fmt"
	"time"
)

// =============================================================================
// DATE - Calendar day (YYYY-MM-DD), the granularity of every ledger entry
// =============================================================================

const DateLayout = "2006-01-02"

// Date is a calendar day in UTC. The zero Date means "unset"; the heal pass
// replaces unset dates loaded from storage with the current day.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

func Today() Date { return DateOf(time.Now()) }

// ParseDate accepts exactly YYYY-MM-DD and rejects impossible days like 2024-02-31.
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) {
		return Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals; it panics on malformed input.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(fmt.Sprintf("generic: MustParseDate(%q): %v", s, err))
	}
	return d
}

// parseLenient accepts any string that starts with a valid YYYY-MM-DD
// (e.g. a full RFC 3339 timestamp), matching what older records contain.
func parseLenient(s string) Date {
	if len(s) < len(DateLayout) {
		return Date{}
	}
	d, err := ParseDate(s[:len(DateLayout)])
	if err != nil {
		return Date{}
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }
func (d Date) IsZero() bool       { return d.t.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON never fails: anything that is not a recognizable date string
// decodes to the zero Date so a single corrupt record cannot block loading.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{}
		return nil
	}
	*d = parseLenient(s)
	return nil
}

// OrToday returns d, or today when d is unset.
func (d Date) OrToday(today Date) Date {
	if d.IsZero() {
		return today
	}
	return d
}
