package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/paiml/ruchy-docker/pkg/executor"
	"github.com/paiml/ruchy-docker/pkg/parse"
)

// maxWarmupFailures bounds the tolerated warmup errors before the run
// aborts. Warmup iterations only prime caches, so transient failures are
// retried; measured iterations never are.
const maxWarmupFailures = 3

// Collector runs a target's command repeatedly and assembles a Run.
// Collectors for different targets share no mutable state.
type Collector struct {
	executor executor.Executor
	clock    Clock
}

// New returns a Collector spawning processes through exec and timing them
// with clock.
func New(exec executor.Executor, clock Clock) Collector {
	return Collector{
		executor: exec,
		clock:    clock,
	}
}

// invocation is the outcome of one successfully measured command execution.
type invocation struct {
	durationUS int64
	output     parse.Output
	stdout     string
	stderr     string
}

// Collect executes the target's warmup and measurement iterations and
// returns the finished Run. The returned Run is always in a terminal state:
// complete, failed or cancelled.
func (c Collector) Collect(ctx context.Context, target Target) *Run {
	run := &Run{Target: target, State: RunPending}

	if err := target.Validate(); err != nil {
		run.State = RunFailed
		run.Failure = &Failure{Reason: err.Error(), err: err}
		return run
	}

	log.Infof("%s: starting run, %d warmup + %d measured iterations",
		target.Name(), target.WarmupIterations, target.MeasurementIterations)

	run.State = RunWarmingUp
	if err := c.warmup(ctx, target); err != nil {
		if isCancellation(err) {
			return cancelRun(run)
		}
		run.State = RunFailed
		run.Failure = &Failure{Reason: err.Error(), err: err}
		log.Errorf("%s: warmup failed: %v", target.Name(), err)
		return run
	}

	run.State = RunMeasuring
	for i := 0; i < target.MeasurementIterations; i++ {
		if err := ctx.Err(); err != nil {
			return cancelRun(run)
		}

		inv, err := c.runOnce(ctx, target)
		if err != nil {
			if isCancellation(err) {
				return cancelRun(run)
			}

			run.State = RunFailed
			run.Failure = &Failure{
				Iteration: i + 1,
				Reason:    err.Error(),
				err:       err,
			}
			if inv != nil {
				run.Failure.Stdout = inv.stdout
				run.Failure.Stderr = inv.stderr
			}
			log.Errorf("%s: iteration %d failed: %v", target.Name(), i+1, err)
			return run
		}

		sample := Sample{
			Index:      i,
			DurationUS: inv.durationUS,
			Result:     inv.output.Result,
		}
		if inv.output.Instrumented() {
			sample.StartupUS = inv.output.StartupTimeUS
			sample.ComputeUS = inv.output.ComputeTimeUS
		}
		run.Samples = append(run.Samples, sample)

		log.Debugf("%s: iteration %d took %dus", target.Name(), i+1, inv.durationUS)
	}

	run.State = RunComplete
	log.Infof("%s: run complete with %d samples", target.Name(), len(run.Samples))
	return run
}

// warmup executes the discarded priming iterations, retrying transient
// failures up to maxWarmupFailures.
func (c Collector) warmup(ctx context.Context, target Target) error {
	failures := 0
	for completed := 0; completed < target.WarmupIterations; {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := c.runOnce(ctx, target); err != nil {
			if isCancellation(err) {
				return err
			}

			failures++
			log.Debugf("%s: warmup failure %d: %v", target.Name(), failures, err)
			if failures > maxWarmupFailures {
				return errors.Wrapf(err, "warmup failed %d times", failures)
			}
			continue
		}
		completed++
	}
	return nil
}

// runOnce spawns the target command, waits for it (bounded by the target
// timeout), and extracts one invocation's timing and result data.
//
// When the process ran but its outcome is invalid, the returned invocation
// still carries the captured stdout/stderr for diagnosis.
func (c Collector) runOnce(ctx context.Context, target Target) (*invocation, error) {
	start := c.clock.Now()

	handle, err := c.executor.Execute(target.Command)
	if err != nil {
		return nil, &ProcessSpawnError{Command: target.Command, Err: err}
	}
	defer func() {
		handle.Clean()
		handle.EraseOutput()
	}()

	terminated, interrupted := c.waitFor(ctx, handle, target.Timeout)
	end := c.clock.Now()

	if interrupted {
		handle.Stop()
		return nil, ctx.Err()
	}
	if !terminated {
		handle.Stop()
		return nil, &TimeoutError{Timeout: target.Timeout}
	}

	stdout, err := executor.ReadStdout(handle)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read process stdout")
	}
	stderr, err := executor.ReadStderr(handle)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read process stderr")
	}
	inv := &invocation{stdout: stdout, stderr: stderr}

	exitCode, err := handle.ExitCode()
	if err != nil {
		return inv, errors.Wrap(err, "cannot determine exit code")
	}
	if exitCode != 0 {
		executor.LogOutput(handle)
		return inv, &NonZeroExitError{ExitCode: exitCode}
	}

	output, err := parse.Parse(stdout)
	if err != nil {
		executor.LogOutput(handle)
		return inv, &OutputParseError{Err: err}
	}
	if output.Result != target.ExpectedResult {
		executor.LogOutput(handle)
		return inv, &ValidationMismatchError{
			Expected: target.ExpectedResult,
			Actual:   output.Result,
		}
	}
	inv.output = output

	// Instrumented targets report their own startup+compute total, which is
	// more precise than external wall-clock timing of the whole process.
	if output.Instrumented() {
		inv.durationUS = output.TotalTimeUS()
	} else {
		inv.durationUS = end.Sub(start).Microseconds()
	}

	return inv, nil
}

// waitFor blocks until the task terminates, the timeout elapses or the
// context is cancelled.
func (c Collector) waitFor(ctx context.Context, handle executor.TaskHandle, timeout time.Duration) (terminated, interrupted bool) {
	done := make(chan bool, 1)
	go func() {
		done <- handle.Wait(timeout)
	}()

	select {
	case terminated = <-done:
		return terminated, false
	case <-ctx.Done():
		return false, true
	}
}

// cancelRun marks the run cancelled. Partial samples are discarded so an
// interrupted run can never masquerade as a complete one.
func cancelRun(run *Run) *Run {
	run.State = RunCancelled
	run.Samples = nil
	run.Failure = &Failure{Reason: "run cancelled", err: context.Canceled}
	log.Warnf("%s: run cancelled", run.Target.Name())
	return run
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
