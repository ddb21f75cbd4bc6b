package chain

import "fmt"

// BuildError is returned when the chain cannot be assembled: a malformed
// predicate or period expression, or mutually exclusive options both set.
// Build errors surface before any posting is processed.
type BuildError struct {
	Option string
	Err    error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("cannot build report chain (%s): %v", e.Option, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErrorf(option, format string, args ...interface{}) *BuildError {
	return &BuildError{Option: option, Err: fmt.Errorf(format, args...)}
}

// InvalidOperationError reports a programming error: an operation invoked on
// a stage in a phase where it is not legal, such as Handle on a buffering
// stage after its buffer has been flushed. Not a recoverable condition.
type InvalidOperationError struct {
	Stage  string
	Op     string
	Reason string
}

func (e *InvalidOperationError) Error() string {
	return fmt.Sprintf("invalid operation %s.%s: %s", e.Stage, e.Op, e.Reason)
}
