package collector

import (
	"fmt"
	"time"
)

// ProcessSpawnError signals that the target command could not be started.
type ProcessSpawnError struct {
	Command string
	Err     error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("cannot spawn %q: %v", e.Command, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error { return e.Err }

// TimeoutError signals that an invocation exceeded the configured timeout.
// A timeout aborts the run; it is never reclassified as an outlier.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("invocation exceeded the %s timeout", e.Timeout)
}

// NonZeroExitError signals that the target process exited with a non-zero
// code.
type NonZeroExitError struct {
	ExitCode int
}

func (e *NonZeroExitError) Error() string {
	return fmt.Sprintf("process exited with code %d", e.ExitCode)
}

// OutputParseError signals that stdout did not satisfy the output contract.
type OutputParseError struct {
	Err error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("cannot parse benchmark output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// ValidationMismatchError signals that the reported RESULT differs from the
// target's expected value.
type ValidationMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *ValidationMismatchError) Error() string {
	return fmt.Sprintf("RESULT validation failed: expected %d, got %d", e.Expected, e.Actual)
}
