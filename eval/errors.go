package eval

import "fmt"

// ParseError is returned when an expression is malformed. It surfaces at
// chain-assembly time, before any posting is processed.
type ParseError struct {
	Text   string
	Pos    int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in expression %q at position %d: %s", e.Text, e.Pos, e.Reason)
}

// EvalError is returned when a well-formed expression fails against a
// specific element (type mismatch, incompatible commodities). It aborts the
// in-progress run and names both the expression and the offending element.
type EvalError struct {
	Text  string
	Scope string
	Err   error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error evaluating %q against %s: %v", e.Text, e.Scope, e.Err)
}

func (e *EvalError) Unwrap() error {
	return e.Err
}
