package value

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Value is a compound total across commodities.
// Running totals and group subtotals may legitimately span several
// commodities at once, so the pipeline accumulates into a Value rather than
// a single Amount.
type Value struct {
	// Map: commodity -> quantity
	amounts map[string]decimal.Decimal
}

// NewValue creates an empty compound value.
func NewValue() *Value {
	return &Value{amounts: make(map[string]decimal.Decimal)}
}

// ValueOf creates a compound value holding the given amounts.
func ValueOf(amounts ...Amount) *Value {
	v := NewValue()
	for _, a := range amounts {
		v.AddAmount(a)
	}
	return v
}

// AddAmount adds a single-commodity amount into the compound value.
func (v *Value) AddAmount(a Amount) {
	next := v.amounts[a.Commodity].Add(a.Number)
	if next.IsZero() {
		delete(v.amounts, a.Commodity)
		return
	}
	v.amounts[a.Commodity] = next
}

// Add adds every commodity of another value into this one.
func (v *Value) Add(other *Value) {
	if other == nil {
		return
	}
	for commodity, number := range other.amounts {
		v.AddAmount(Amount{Number: number, Commodity: commodity})
	}
}

// Sub subtracts every commodity of another value from this one.
func (v *Value) Sub(other *Value) {
	if other == nil {
		return
	}
	for commodity, number := range other.amounts {
		v.AddAmount(Amount{Number: number.Neg(), Commodity: commodity})
	}
}

// Neg returns a new value with every quantity negated.
func (v *Value) Neg() *Value {
	out := NewValue()
	for commodity, number := range v.amounts {
		out.amounts[commodity] = number.Neg()
	}
	return out
}

// Scale returns a new value with every quantity multiplied by the factor.
func (v *Value) Scale(factor decimal.Decimal) *Value {
	out := NewValue()
	if v == nil {
		return out
	}
	for commodity, number := range v.amounts {
		out.AddAmount(Amount{Number: number.Mul(factor), Commodity: commodity})
	}
	return out
}

// Clone returns an independent copy. Stages that record a running total per
// post must store a clone; later mutations of the accumulator must not
// retroactively alter earlier posts' recorded totals.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := NewValue()
	for commodity, number := range v.amounts {
		out.amounts[commodity] = number
	}
	return out
}

// Get returns the quantity of a commodity (zero if absent).
func (v *Value) Get(commodity string) decimal.Decimal {
	return v.amounts[commodity]
}

// IsZero returns true if no commodity has a nonzero quantity.
func (v *Value) IsZero() bool {
	return v == nil || len(v.amounts) == 0
}

// Equal returns true if both values hold exactly the same quantities.
func (v *Value) Equal(other *Value) bool {
	if v.IsZero() || other.IsZero() {
		return v.IsZero() && other.IsZero()
	}
	if len(v.amounts) != len(other.amounts) {
		return false
	}
	for commodity, number := range v.amounts {
		if !number.Equal(other.amounts[commodity]) {
			return false
		}
	}
	return true
}

// Commodities returns the commodities present, in ascending order.
func (v *Value) Commodities() []string {
	if v == nil {
		return nil
	}
	commodities := make([]string, 0, len(v.amounts))
	for commodity := range v.amounts {
		commodities = append(commodities, commodity)
	}
	sort.Strings(commodities)
	return commodities
}

// Amounts returns the per-commodity amounts, ordered by commodity.
func (v *Value) Amounts() []Amount {
	commodities := v.Commodities()
	amounts := make([]Amount, 0, len(commodities))
	for _, commodity := range commodities {
		amounts = append(amounts, Amount{Number: v.amounts[commodity], Commodity: commodity})
	}
	return amounts
}

// String returns a brace-wrapped listing like "{100 USD, 3 AAPL}".
func (v *Value) String() string {
	if v.IsZero() {
		return "{}"
	}

	var buf strings.Builder
	buf.WriteByte('{')
	for i, a := range v.Amounts() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(a.String())
	}
	buf.WriteByte('}')
	return buf.String()
}
