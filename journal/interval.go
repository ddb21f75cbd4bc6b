package journal

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateSpan is a half-open [Begin, End) window of dates. A nil bound is
// unbounded on that side.
type DateSpan struct {
	Begin *Date
	End   *Date
}

// Contains reports whether the date falls inside the span.
func (s *DateSpan) Contains(d *Date) bool {
	if s == nil || d == nil {
		return s == nil && d != nil
	}
	if s.Begin != nil && d.Before(s.Begin) {
		return false
	}
	if s.End != nil && !d.Before(s.End) {
		return false
	}
	return true
}

// Clone returns an independent copy of the span.
func (s *DateSpan) Clone() *DateSpan {
	if s == nil {
		return nil
	}
	return &DateSpan{Begin: s.Begin.Clone(), End: s.End.Clone()}
}

// Interval is a recurring period descriptor: an advancing Start cursor, an
// optional bounding Range, and a step length in years/months/days.
//
// Intervals are value types. Any stage that stores one for later must store
// a Clone: templates are shared across many synthesized occurrences, and
// mutating a shared interval's cursor silently corrupts sibling schedules.
type Interval struct {
	// Start is the current occurrence cursor, primed on first use.
	Start *Date
	// Range bounds the schedule; occurrences outside it are discarded.
	Range *DateSpan

	Years  int
	Months int
	Days   int
}

// Clone returns a deep copy, including the cursor and range.
func (i *Interval) Clone() *Interval {
	if i == nil {
		return nil
	}
	return &Interval{
		Start:  i.Start.Clone(),
		Range:  i.Range.Clone(),
		Years:  i.Years,
		Months: i.Months,
		Days:   i.Days,
	}
}

// HasStep reports whether the interval advances at all.
func (i *Interval) HasStep() bool {
	return i.Years != 0 || i.Months != 0 || i.Days != 0
}

// Next returns the occurrence after the current cursor without advancing.
func (i *Interval) Next() *Date {
	if i.Start == nil {
		return nil
	}
	t := i.Start.AddDate(i.Years, i.Months, i.Days)
	return &Date{Time: t}
}

// Advance moves the cursor to the next occurrence.
func (i *Interval) Advance() {
	i.Start = i.Next()
}

// Prime positions the cursor on or before the given date, so that the first
// occurrence is the bucket containing it. A cursor already set is kept.
func (i *Interval) Prime(d *Date) {
	if i.Start != nil || d == nil {
		return
	}
	start := d.Clone()
	if i.Range != nil && i.Range.Begin != nil {
		// Walk forward from the range begin to the bucket holding d.
		start = i.Range.Begin.Clone()
		for i.HasStep() {
			next := &Date{Time: start.AddDate(i.Years, i.Months, i.Days)}
			if d.Before(next) {
				break
			}
			start = next
		}
	} else if i.Months != 0 && i.Days == 0 {
		// Month-aligned buckets snap to the first of the month.
		start = DateOf(d.Year(), d.Month(), 1)
	} else if i.Years != 0 && i.Months == 0 && i.Days == 0 {
		start = DateOf(d.Year(), time.January, 1)
	}
	i.Start = start
}

// Exhausted reports whether the cursor has advanced past the bounding range.
func (i *Interval) Exhausted() bool {
	if i.Start == nil {
		return false
	}
	return i.Range != nil && i.Range.End != nil && !i.Start.Before(i.Range.End)
}

// String renders the step in "every N unit" form.
func (i *Interval) String() string {
	switch {
	case i.Years != 0:
		return pluralStep(i.Years, "year")
	case i.Months != 0:
		return pluralStep(i.Months, "month")
	case i.Days%7 == 0 && i.Days != 0:
		return pluralStep(i.Days/7, "week")
	case i.Days != 0:
		return pluralStep(i.Days, "day")
	default:
		return "once"
	}
}

func pluralStep(n int, unit string) string {
	if n == 1 {
		return "every " + unit
	}
	return fmt.Sprintf("every %d %ss", n, unit)
}

// PeriodError is returned for a malformed period expression. It surfaces at
// chain-build time, before any posting is processed.
type PeriodError struct {
	Text   string
	Reason string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period %q: %s", e.Text, e.Reason)
}

// ParsePeriod parses a period expression into an interval. Supported forms:
//
//	daily | weekly | biweekly | monthly | bimonthly | quarterly | yearly
//	every N days|weeks|months|years
//	... from DATE
//	... to DATE (or "until DATE")
//
// The keyword clauses may be combined, e.g. "every 2 weeks from 2024-01-01".
func ParsePeriod(text string) (*Interval, error) {
	interval := &Interval{}
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, &PeriodError{Text: text, Reason: "empty period expression"}
	}

	for pos := 0; pos < len(words); pos++ {
		word := words[pos]
		switch word {
		case "daily":
			interval.Days = 1
		case "weekly":
			interval.Days = 7
		case "biweekly":
			interval.Days = 14
		case "monthly":
			interval.Months = 1
		case "bimonthly":
			interval.Months = 2
		case "quarterly":
			interval.Months = 3
		case "yearly", "annually":
			interval.Years = 1
		case "every":
			if pos+2 >= len(words) {
				return nil, &PeriodError{Text: text, Reason: `"every" expects a count and a unit`}
			}
			n, err := strconv.Atoi(words[pos+1])
			if err != nil || n <= 0 {
				return nil, &PeriodError{Text: text, Reason: fmt.Sprintf("invalid count %q", words[pos+1])}
			}
			switch strings.TrimSuffix(words[pos+2], "s") {
			case "day":
				interval.Days = n
			case "week":
				interval.Days = n * 7
			case "month":
				interval.Months = n
			case "year":
				interval.Years = n
			default:
				return nil, &PeriodError{Text: text, Reason: fmt.Sprintf("unknown unit %q", words[pos+2])}
			}
			pos += 2
		case "from", "since":
			d, err := periodDate(words, pos, text)
			if err != nil {
				return nil, err
			}
			if interval.Range == nil {
				interval.Range = &DateSpan{}
			}
			interval.Range.Begin = d
			pos++
		case "to", "until":
			d, err := periodDate(words, pos, text)
			if err != nil {
				return nil, err
			}
			if interval.Range == nil {
				interval.Range = &DateSpan{}
			}
			interval.Range.End = d
			pos++
		default:
			return nil, &PeriodError{Text: text, Reason: fmt.Sprintf("unexpected token %q", word)}
		}
	}

	if !interval.HasStep() {
		return nil, &PeriodError{Text: text, Reason: "period has no step"}
	}
	return interval, nil
}

func periodDate(words []string, pos int, text string) (*Date, error) {
	if pos+1 >= len(words) {
		return nil, &PeriodError{Text: text, Reason: fmt.Sprintf("%q expects a date", words[pos])}
	}
	d, err := NewDate(words[pos+1])
	if err != nil {
		return nil, &PeriodError{Text: text, Reason: err.Error()}
	}
	return d, nil
}
