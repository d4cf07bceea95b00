// Package parse implements the line-oriented stdout contract spoken by every
// benchmark executable:
//
//	STARTUP_TIME_US: <integer microseconds>   (optional, paired with COMPUTE_TIME_US)
//	COMPUTE_TIME_US: <integer microseconds>   (optional, paired with STARTUP_TIME_US)
//	RESULT: <integer>                         (required)
//
// Unrecognized lines are ignored so that benchmarks are free to print
// diagnostics. The first occurrence of a key wins.
package parse

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Recognized output keys.
const (
	KeyStartupTimeUS = "STARTUP_TIME_US"
	KeyComputeTimeUS = "COMPUTE_TIME_US"
	KeyResult        = "RESULT"
)

// MissingKeyError signals that a required key was absent from the output.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing required output key %q", e.Key)
}

// MalformedValueError signals that a recognized key carried a value that
// does not parse as an integer.
type MalformedValueError struct {
	Key string
	Raw string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value %q for output key %q", e.Raw, e.Key)
}

// Output holds the values extracted from one benchmark invocation's stdout.
type Output struct {
	// StartupTimeUS and ComputeTimeUS carry the instrumented sub-timings.
	// Both are nil when the benchmark is not instrumented.
	StartupTimeUS *int64
	ComputeTimeUS *int64

	// Result is the computed value used for correctness validation.
	Result int64
}

// Instrumented reports whether the benchmark emitted its own
// startup/compute timing decomposition.
func (o Output) Instrumented() bool {
	return o.StartupTimeUS != nil && o.ComputeTimeUS != nil
}

// TotalTimeUS returns the instrumented startup+compute total. It is only
// meaningful when Instrumented() is true.
func (o Output) TotalTimeUS() int64 {
	if !o.Instrumented() {
		return 0
	}
	return *o.StartupTimeUS + *o.ComputeTimeUS
}

// Parse extracts the recognized keys from raw stdout.
//
// RESULT is required. STARTUP_TIME_US and COMPUTE_TIME_US are optional but
// must appear as a pair; emitting only one of them is a contract violation
// reported as a MissingKeyError for the absent half.
func Parse(stdout string) (Output, error) {
	var output Output
	seen := map[string]bool{}

	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		key, rawValue, found := strings.Cut(scanner.Text(), ":")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if seen[key] {
			continue
		}

		switch key {
		case KeyStartupTimeUS, KeyComputeTimeUS:
			value, err := parseValue(key, rawValue)
			if err != nil {
				return Output{}, err
			}
			if key == KeyStartupTimeUS {
				output.StartupTimeUS = &value
			} else {
				output.ComputeTimeUS = &value
			}
			seen[key] = true
		case KeyResult:
			value, err := parseValue(key, rawValue)
			if err != nil {
				return Output{}, err
			}
			output.Result = value
			seen[key] = true
		}
	}

	if !seen[KeyResult] {
		return Output{}, &MissingKeyError{Key: KeyResult}
	}
	if seen[KeyStartupTimeUS] != seen[KeyComputeTimeUS] {
		absent := KeyComputeTimeUS
		if seen[KeyComputeTimeUS] {
			absent = KeyStartupTimeUS
		}
		return Output{}, &MissingKeyError{Key: absent}
	}

	return output, nil
}

func parseValue(key, raw string) (int64, error) {
	trimmed := strings.TrimSpace(raw)
	value, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return 0, &MalformedValueError{Key: key, Raw: trimmed}
	}
	return value, nil
}
