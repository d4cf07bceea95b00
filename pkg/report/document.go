// Package report serializes finished runs, summaries and aggregates into a
// single self-describing JSON artifact, plus an optional human-readable
// table rendering. The artifact always carries the raw per-sample data so
// that every derived statistic can be independently re-verified.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/paiml/ruchy-docker/pkg/aggregate"
	"github.com/paiml/ruchy-docker/pkg/stats"
)

// Session identifies one benchmarking session and the knobs that shaped it.
type Session struct {
	ID                 string    `json:"id"`
	StartedAt          time.Time `json:"started_at"`
	Version            string    `json:"version,omitempty"`
	Baseline           string    `json:"baseline"`
	BootstrapSeed      int64     `json:"bootstrap_seed"`
	BootstrapResamples int       `json:"bootstrap_resamples"`
}

// FailureEntry describes a failed or cancelled run, with the raw output of
// the failing invocation for diagnosis.
type FailureEntry struct {
	Iteration int    `json:"iteration"`
	Reason    string `json:"reason"`
	Stdout    string `json:"stdout,omitempty"`
	Stderr    string `json:"stderr,omitempty"`
}

// TargetEntry is the per-target block of the artifact. Failed targets are
// reported explicitly with their reason; they are never silently dropped.
type TargetEntry struct {
	Status string `json:"status"`
	// RawSamples are the measured durations in microseconds, exactly as
	// fed to the summary statistics engine.
	RawSamples     []int64        `json:"raw_samples,omitempty"`
	Summary        *stats.Summary `json:"summary,omitempty"`
	OutlierIndices []int          `json:"outlier_indices,omitempty"`
	Failure        *FailureEntry  `json:"failure,omitempty"`
}

// Document is the full artifact of one session. It marshals as a top-level
// object keyed by benchmark identifier, with the reserved keys "session"
// and "aggregates" alongside; benchmarks may not use those two names.
type Document struct {
	Session    Session
	Benchmarks map[string]map[string]*TargetEntry
	Aggregates map[string]aggregate.Result
}

const (
	sessionKey    = "session"
	aggregatesKey = "aggregates"
)

// statusComplete is the status string of a fully measured target.
const statusComplete = "complete"

// IncompleteRuns returns the "benchmark/target" names of every entry that
// did not complete. A non-empty result maps to a non-zero exit code.
func (d *Document) IncompleteRuns() []string {
	var names []string
	for benchmark, targets := range d.Benchmarks {
		for targetID, entry := range targets {
			if entry.Status != statusComplete {
				names = append(names, fmt.Sprintf("%s/%s", benchmark, targetID))
			}
		}
	}
	sort.Strings(names)
	return names
}

// MarshalJSON flattens the benchmarks next to the reserved keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	top := make(map[string]interface{}, len(d.Benchmarks)+2)
	for benchmark, targets := range d.Benchmarks {
		if benchmark == sessionKey || benchmark == aggregatesKey {
			return nil, errors.Errorf("benchmark identifier %q collides with a reserved artifact key", benchmark)
		}
		top[benchmark] = targets
	}
	top[sessionKey] = d.Session
	if len(d.Aggregates) > 0 {
		top[aggregatesKey] = d.Aggregates
	}
	return json.Marshal(top)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Benchmarks = map[string]map[string]*TargetEntry{}
	for key, value := range raw {
		switch key {
		case sessionKey:
			if err := json.Unmarshal(value, &d.Session); err != nil {
				return errors.Wrap(err, "cannot decode session")
			}
		case aggregatesKey:
			if err := json.Unmarshal(value, &d.Aggregates); err != nil {
				return errors.Wrap(err, "cannot decode aggregates")
			}
		default:
			targets := map[string]*TargetEntry{}
			if err := json.Unmarshal(value, &targets); err != nil {
				return errors.Wrapf(err, "cannot decode benchmark %q", key)
			}
			d.Benchmarks[key] = targets
		}
	}
	return nil
}
