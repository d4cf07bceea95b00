package collector

// Sample is one measured invocation. Owned exclusively by the Run that
// produced it and never mutated after creation.
type Sample struct {
	// Index is the ordinal of this sample within its run, starting at 0.
	Index int `json:"index"`
	// DurationUS is the wall-clock duration in microseconds. For
	// instrumented targets it is the startup+compute total reported by the
	// benchmark itself.
	DurationUS int64 `json:"duration_us"`
	// StartupUS and ComputeUS carry the instrumented decomposition. Both
	// are nil for uninstrumented targets.
	StartupUS *int64 `json:"startup_us,omitempty"`
	ComputeUS *int64 `json:"compute_us,omitempty"`
	// Result is the value the benchmark reported, already validated against
	// the target's expectation.
	Result int64 `json:"result"`
}

// Instrumented reports whether the sample carries the startup/compute
// decomposition.
func (s Sample) Instrumented() bool {
	return s.StartupUS != nil && s.ComputeUS != nil
}

// DurationMS converts the duration to milliseconds.
func (s Sample) DurationMS() float64 {
	return float64(s.DurationUS) / 1000.0
}

// RunState tracks a run through its lifecycle.
type RunState int

const (
	// RunPending means the run has not started yet.
	RunPending RunState = iota
	// RunWarmingUp means discarded priming iterations are executing.
	RunWarmingUp
	// RunMeasuring means recorded iterations are executing.
	RunMeasuring
	// RunComplete means all measurement iterations succeeded.
	RunComplete
	// RunFailed means a spawn, timeout, parse or validation error aborted
	// the run.
	RunFailed
	// RunCancelled means the run was interrupted; collected samples are
	// discarded.
	RunCancelled
)

func (s RunState) String() string {
	switch s {
	case RunPending:
		return "pending"
	case RunWarmingUp:
		return "warming-up"
	case RunMeasuring:
		return "measuring"
	case RunComplete:
		return "complete"
	case RunFailed:
		return "failed"
	case RunCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Failure describes why a run aborted, with the raw process output captured
// for diagnosis.
type Failure struct {
	// Iteration is the 1-based measured iteration that failed. Zero means
	// the failure happened before measurement (warmup or spawn).
	Iteration int `json:"iteration"`
	// Reason is the human-readable failure description.
	Reason string `json:"reason"`
	// Stdout and Stderr hold the raw output of the failing invocation.
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`

	err error
}

// Err returns the underlying typed error.
func (f *Failure) Err() error {
	return f.err
}

// Run is the ordered set of samples for one target. After a successful run
// len(Samples) equals the target's measurement iteration count; warmup
// samples are never stored.
type Run struct {
	Target  Target   `json:"target"`
	State   RunState `json:"state"`
	Samples []Sample `json:"samples"`
	Failure *Failure `json:"failure,omitempty"`
}

// Completed reports whether every measurement iteration succeeded.
func (r *Run) Completed() bool {
	return r.State == RunComplete
}

// DurationsUS returns the measured durations in run order.
func (r *Run) DurationsUS() []int64 {
	durations := make([]int64, len(r.Samples))
	for i, sample := range r.Samples {
		durations[i] = sample.DurationUS
	}
	return durations
}
