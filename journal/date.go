// Package journal defines the object graph the reporting pipeline consumes:
// transactions, postings, the hierarchical account tree, and recurring date
// intervals. The textual journal parser that produces this graph lives
// outside this package; everything here arrives fully resolved.
package journal

import (
	"fmt"
	"time"
)

// Date represents a calendar date in ISO 8601 format (YYYY-MM-DD).
// Postings and transactions are dated at day precision; dates drive interval
// bucketing and budget/forecast materialization.
type Date struct {
	time.Time
}

// NewDate parses an ISO 8601 date string.
func NewDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	return &Date{Time: t}, nil
}

// MustDate parses an ISO 8601 date string and panics on error.
// Use only in tests or when you're certain the date is valid.
func MustDate(s string) *Date {
	d, err := NewDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateOf creates a date from year, month and day.
func DateOf(year int, month time.Month, day int) *Date {
	return &Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsZero returns true if the Date is nil or represents the zero time.
// Nil-safe so optional dates can be checked without guarding.
func (d *Date) IsZero() bool {
	if d == nil {
		return true
	}
	return d.Time.IsZero()
}

// Clone returns an independent copy of the date.
func (d *Date) Clone() *Date {
	if d == nil {
		return nil
	}
	return &Date{Time: d.Time}
}

// Before reports whether d is strictly before other. Nil dates compare as
// unbounded: a nil d is before everything, a nil other is after everything.
func (d *Date) Before(other *Date) bool {
	if d == nil {
		return other != nil
	}
	if other == nil {
		return false
	}
	return d.Time.Before(other.Time)
}

// After reports whether d is strictly after other.
func (d *Date) After(other *Date) bool {
	return other != nil && other.Before(d)
}

// Equal reports whether both dates name the same day.
func (d *Date) Equal(other *Date) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	return d.Time.Equal(other.Time)
}

// String returns the ISO 8601 form.
func (d *Date) String() string {
	if d == nil {
		return ""
	}
	return d.Format("2006-01-02")
}
