// Package value provides commodity amount arithmetic for the reporting
// pipeline. An Amount is a single decimal quantity of one commodity; a Value
// is a compound total that may span multiple commodities at once, which is
// what running totals and subtotals are accumulated into.
//
// All arithmetic uses decimal numbers to avoid floating point precision
// issues. Amounts and Values are value types: every stage that stores one for
// later must take its own copy (see Value.Clone).
package value

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal quantity of a single commodity, e.g. "100.00 USD".
type Amount struct {
	Number    decimal.Decimal
	Commodity string
}

// NewAmount creates an amount from a decimal number and a commodity symbol.
func NewAmount(number decimal.Decimal, commodity string) Amount {
	return Amount{Number: number, Commodity: commodity}
}

// ParseAmount parses an amount from its textual form "NUMBER COMMODITY".
// The commodity may be omitted, yielding a bare (commodity-less) quantity.
func ParseAmount(s string) (Amount, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		d, err := decimal.NewFromString(fields[0])
		if err != nil {
			return Amount{}, fmt.Errorf("invalid amount value %q: %w", fields[0], err)
		}
		return Amount{Number: d}, nil
	case 2:
		d, err := decimal.NewFromString(fields[0])
		if err != nil {
			return Amount{}, fmt.Errorf("invalid amount value %q: %w", fields[0], err)
		}
		return Amount{Number: d, Commodity: fields[1]}, nil
	default:
		return Amount{}, fmt.Errorf("invalid amount %q, expected NUMBER [COMMODITY]", s)
	}
}

// MustParseAmount parses an amount and panics on error.
// Use only in tests or when you're certain the amount is valid.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Neg returns the negated amount.
func (a Amount) Neg() Amount {
	return Amount{Number: a.Number.Neg(), Commodity: a.Commodity}
}

// Mul returns the amount scaled by the given factor.
func (a Amount) Mul(factor decimal.Decimal) Amount {
	return Amount{Number: a.Number.Mul(factor), Commodity: a.Commodity}
}

// Add adds another amount of the same commodity.
// Adding incompatible commodities is a typed arithmetic error; callers that
// need multi-commodity sums accumulate into a Value instead.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Commodity != b.Commodity {
		return Amount{}, &IncompatibleCommoditiesError{Left: a.Commodity, Right: b.Commodity}
	}
	return Amount{Number: a.Number.Add(b.Number), Commodity: a.Commodity}, nil
}

// IsZero returns true if the quantity is zero.
func (a Amount) IsZero() bool {
	return a.Number.IsZero()
}

// Equal returns true if both quantity and commodity match exactly.
func (a Amount) Equal(b Amount) bool {
	return a.Commodity == b.Commodity && a.Number.Equal(b.Number)
}

// String returns the textual form "NUMBER COMMODITY".
func (a Amount) String() string {
	if a.Commodity == "" {
		return a.Number.String()
	}
	return a.Number.String() + " " + a.Commodity
}

// IncompatibleCommoditiesError is returned when arithmetic is attempted
// between two amounts of different commodities.
type IncompatibleCommoditiesError struct {
	Left  string
	Right string
}

func (e *IncompatibleCommoditiesError) Error() string {
	return fmt.Sprintf("incompatible commodities %q and %q", e.Left, e.Right)
}
