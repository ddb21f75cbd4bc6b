// Package eval implements the expression boundary the reporting pipeline
// evaluates predicates and amount/sort-key expressions through. Expressions
// are parsed once at chain-assembly time and evaluated against a posting or
// account scope per element; parse failures are build errors, evaluation
// failures abort the run.
package eval

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerpipe/ledgerpipe/value"
)

// Kind discriminates the typed results an expression can produce.
type Kind int

const (
	KindBool Kind = iota
	KindNumber
	KindString
	KindDate
	KindValue
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindDate:
		return "date"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Val is a typed expression result: boolean for predicates, number/compound
// value for amount and total expressions, string or date for sort keys.
type Val struct {
	kind Kind
	b    bool
	num  decimal.Decimal
	str  string
	date time.Time
	val  *value.Value
}

func BoolVal(b bool) Val                { return Val{kind: KindBool, b: b} }
func NumberVal(d decimal.Decimal) Val   { return Val{kind: KindNumber, num: d} }
func StringVal(s string) Val            { return Val{kind: KindString, str: s} }
func DateVal(t time.Time) Val           { return Val{kind: KindDate, date: t} }
func ValueVal(v *value.Value) Val       { return Val{kind: KindValue, val: v} }
func AmountVal(a value.Amount) Val      { return Val{kind: KindValue, val: value.ValueOf(a)} }

// Kind returns the result's kind.
func (v Val) Kind() Kind { return v.kind }

// Truth converts the result to a boolean. Every kind has a truthiness:
// nonzero numbers and values, nonempty strings, nonzero dates.
func (v Val) Truth() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return !v.num.IsZero()
	case KindString:
		return v.str != ""
	case KindDate:
		return !v.date.IsZero()
	case KindValue:
		return !v.val.IsZero()
	}
	return false
}

// Value converts the result to a compound value.
func (v Val) Value() (*value.Value, error) {
	switch v.kind {
	case KindValue:
		return v.val, nil
	case KindNumber:
		return value.ValueOf(value.Amount{Number: v.num}), nil
	}
	return nil, fmt.Errorf("cannot use %s as an amount", v.kind)
}

// Str returns the string form of the result.
func (v Val) Str() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return v.num.String()
	case KindString:
		return v.str
	case KindDate:
		return v.date.Format("2006-01-02")
	case KindValue:
		return v.val.String()
	}
	return ""
}

// Compare orders two results: -1, 0 or 1. Comparable pairs are numbers,
// strings, dates, and single-commodity values; anything else is a type
// mismatch error.
func (v Val) Compare(other Val) (int, error) {
	switch {
	case v.kind == KindNumber && other.kind == KindNumber:
		return v.num.Cmp(other.num), nil
	case v.kind == KindString && other.kind == KindString:
		return strings.Compare(v.str, other.str), nil
	case v.kind == KindDate && other.kind == KindDate:
		switch {
		case v.date.Before(other.date):
			return -1, nil
		case v.date.After(other.date):
			return 1, nil
		default:
			return 0, nil
		}
	case v.kind == KindValue || other.kind == KindValue:
		a, err := v.Value()
		if err != nil {
			return 0, err
		}
		b, err := other.Value()
		if err != nil {
			return 0, err
		}
		return compareValues(a, b)
	case v.kind == KindBool && other.kind == KindBool:
		switch {
		case v.b == other.b:
			return 0, nil
		case v.b:
			return 1, nil
		default:
			return -1, nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s with %s", v.kind, other.kind)
}

// compareValues orders single-commodity values by magnitude. A
// commodity-less quantity (a bare number) compares against any commodity;
// two different commodities are an arithmetic type error.
func compareValues(a, b *value.Value) (int, error) {
	ca, err := soleCommodity(a)
	if err != nil {
		return 0, err
	}
	cb, err := soleCommodity(b)
	if err != nil {
		return 0, err
	}
	if ca != "" && cb != "" && ca != cb {
		return 0, &value.IncompatibleCommoditiesError{Left: ca, Right: cb}
	}
	return a.Get(ca).Cmp(b.Get(cb)), nil
}

func soleCommodity(v *value.Value) (string, error) {
	cs := v.Commodities()
	switch len(cs) {
	case 0:
		return "", nil
	case 1:
		return cs[0], nil
	default:
		return "", fmt.Errorf("cannot compare multi-commodity value %s", v)
	}
}
