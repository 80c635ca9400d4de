package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date accepts either a calendar date ("2099-01-01") or an RFC 3339 timestamp.
type Date struct {
	t        time.Time
	dateOnly bool
}

// NewDate wraps an exact instant.
func NewDate(t time.Time) Date { return Date{t: t} }

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("date must not be null")
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		*d = Date{t: t, dateOnly: true}
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD or RFC3339: %q", s)
	}
	*d = Date{t: t}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.dateOnly {
		return json.Marshal(d.t.Format(dateLayout))
	}
	return json.Marshal(d.t.Format(time.RFC3339))
}

// In resolves the date to an instant. A calendar date becomes midnight in loc.
func (d Date) In(loc *time.Location) time.Time {
	if d.dateOnly {
		y, m, day := d.t.Date()
		return time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	return d.t
}

// EndIn resolves the date to the last second of its day in loc, so a date-only
// due date stays open for the whole day. Timestamps are returned unchanged.
func (d Date) EndIn(loc *time.Location) time.Time {
	if d.dateOnly {
		y, m, day := d.t.Date()
		return time.Date(y, m, day, 23, 59, 59, 0, loc)
	}
	return d.t
}
