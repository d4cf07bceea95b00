// Package collector executes a benchmark target repeatedly and assembles the
// measured invocations into a Run. Warmup iterations prime OS, disk and JIT
// caches and are never recorded; measured iterations are never retried, as a
// retry would bias timing.
package collector

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Target is a named, runnable unit under measurement. Immutable once a run
// starts.
type Target struct {
	// Benchmark is the benchmark identifier, e.g. "fibonacci".
	Benchmark string `yaml:"benchmark" json:"benchmark"`
	// ID is the language/mode tag, e.g. "rust" or "python".
	ID string `yaml:"id" json:"id"`
	// Command is the shell invocation executing one benchmark iteration.
	Command string `yaml:"command" json:"command"`
	// WorkDir is the working directory for the invocation. Empty means the
	// current directory.
	WorkDir string `yaml:"workdir,omitempty" json:"workdir,omitempty"`
	// Timeout bounds a single invocation. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	// WarmupIterations is the number of discarded priming invocations.
	WarmupIterations int `yaml:"warmup" json:"warmup"`
	// MeasurementIterations is the number of recorded invocations.
	MeasurementIterations int `yaml:"measurements" json:"measurements"`
	// ExpectedResult is the value the RESULT output line must carry.
	ExpectedResult int64 `yaml:"expected_result" json:"expected_result"`
}

// Name returns the "benchmark/id" identifier of the target.
func (t Target) Name() string {
	return fmt.Sprintf("%s/%s", t.Benchmark, t.ID)
}

// Validate checks the descriptor before any process is spawned.
func (t Target) Validate() error {
	if t.Benchmark == "" {
		return errors.New("target benchmark identifier is empty")
	}
	if t.ID == "" {
		return errors.New("target identifier is empty")
	}
	if t.Command == "" {
		return errors.Errorf("target %q has an empty command", t.Name())
	}
	if t.WarmupIterations < 0 {
		return errors.Errorf("target %q has a negative warmup count", t.Name())
	}
	if t.MeasurementIterations < 1 {
		return errors.Errorf("target %q needs at least one measurement iteration", t.Name())
	}
	if t.Timeout < 0 {
		return errors.Errorf("target %q has a negative timeout", t.Name())
	}
	return nil
}
