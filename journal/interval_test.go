package journal

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		text   string
		months int
		days   int
		years  int
	}{
		{"daily", 0, 1, 0},
		{"weekly", 0, 7, 0},
		{"biweekly", 0, 14, 0},
		{"monthly", 1, 0, 0},
		{"bimonthly", 2, 0, 0},
		{"quarterly", 3, 0, 0},
		{"yearly", 0, 0, 1},
		{"every 3 days", 0, 3, 0},
		{"every 2 weeks", 0, 14, 0},
		{"every 6 months", 6, 0, 0},
	}
	for _, tt := range tests {
		interval, err := ParsePeriod(tt.text)
		assert.NoError(t, err, tt.text)
		assert.Equal(t, tt.months, interval.Months, tt.text)
		assert.Equal(t, tt.days, interval.Days, tt.text)
		assert.Equal(t, tt.years, interval.Years, tt.text)
	}
}

func TestParsePeriodRange(t *testing.T) {
	interval, err := ParsePeriod("monthly from 2024-01-01 to 2024-06-01")
	assert.NoError(t, err)
	assert.NotZero(t, interval.Range)
	assert.Equal(t, "2024-01-01", interval.Range.Begin.String())
	assert.Equal(t, "2024-06-01", interval.Range.End.String())

	until, err := ParsePeriod("weekly until 2024-03-01")
	assert.NoError(t, err)
	assert.Zero(t, until.Range.Begin)
	assert.Equal(t, "2024-03-01", until.Range.End.String())
}

func TestParsePeriodErrors(t *testing.T) {
	for _, text := range []string{
		"",
		"sometimes",
		"every",
		"every x days",
		"every 0 days",
		"every 2 fortnights",
		"from 2024-01-01",
		"monthly from yesterday",
	} {
		_, err := ParsePeriod(text)
		assert.Error(t, err, text)
	}
}

func TestIntervalPrime(t *testing.T) {
	t.Run("month-aligned snaps to the first", func(t *testing.T) {
		interval := &Interval{Months: 1}
		interval.Prime(MustDate("2024-02-17"))
		assert.Equal(t, "2024-02-01", interval.Start.String())
	})

	t.Run("year-aligned snaps to january first", func(t *testing.T) {
		interval := &Interval{Years: 1}
		interval.Prime(MustDate("2024-07-04"))
		assert.Equal(t, "2024-01-01", interval.Start.String())
	})

	t.Run("day-stepped starts at the date itself", func(t *testing.T) {
		interval := &Interval{Days: 7}
		interval.Prime(MustDate("2024-02-17"))
		assert.Equal(t, "2024-02-17", interval.Start.String())
	})

	t.Run("range begin anchors the schedule", func(t *testing.T) {
		interval := &Interval{
			Days:  7,
			Range: &DateSpan{Begin: MustDate("2024-01-01")},
		}
		interval.Prime(MustDate("2024-01-20"))
		assert.Equal(t, "2024-01-15", interval.Start.String())
	})

	t.Run("an already-set cursor is kept", func(t *testing.T) {
		interval := &Interval{Days: 1, Start: MustDate("2024-05-05")}
		interval.Prime(MustDate("2024-01-01"))
		assert.Equal(t, "2024-05-05", interval.Start.String())
	})
}

func TestIntervalAdvanceAndExhaustion(t *testing.T) {
	interval := &Interval{
		Months: 1,
		Start:  MustDate("2024-01-01"),
		Range:  &DateSpan{End: MustDate("2024-03-01")},
	}

	assert.False(t, interval.Exhausted())
	interval.Advance()
	assert.Equal(t, "2024-02-01", interval.Start.String())
	assert.False(t, interval.Exhausted())
	interval.Advance()
	assert.True(t, interval.Exhausted())
}

func TestIntervalCloneIsIndependent(t *testing.T) {
	interval := &Interval{Months: 1, Start: MustDate("2024-01-01")}
	clone := interval.Clone()
	clone.Advance()

	assert.Equal(t, "2024-01-01", interval.Start.String())
	assert.Equal(t, "2024-02-01", clone.Start.String())
}

func TestDateSpanContains(t *testing.T) {
	span := &DateSpan{Begin: MustDate("2024-01-01"), End: MustDate("2024-02-01")}
	assert.True(t, span.Contains(MustDate("2024-01-01")))
	assert.True(t, span.Contains(MustDate("2024-01-31")))
	assert.False(t, span.Contains(MustDate("2024-02-01")))
	assert.False(t, span.Contains(MustDate("2023-12-31")))

	open := &DateSpan{Begin: MustDate("2024-01-01")}
	assert.True(t, open.Contains(MustDate("2030-01-01")))
}

func TestIntervalString(t *testing.T) {
	assert.Equal(t, "every month", (&Interval{Months: 1}).String())
	assert.Equal(t, "every 2 weeks", (&Interval{Days: 14}).String())
	assert.Equal(t, "every 3 days", (&Interval{Days: 3}).String())
	assert.Equal(t, "every year", (&Interval{Years: 1}).String())
	assert.Equal(t, "once", (&Interval{}).String())
}
