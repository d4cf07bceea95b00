package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/mock"

	"github.com/paiml/ruchy-docker/pkg/executor"
	"github.com/paiml/ruchy-docker/pkg/executor/mocks"
)

// fakeClock advances by a fixed step on every Now call, making wall-clock
// durations deterministic.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Unix(0, 0), step: step}
}

// handleSpec describes the behavior of one mocked invocation.
type handleSpec struct {
	stdout   string
	stderr   string
	exitCode int
	timesOut bool
}

func newMockHandle(t *testing.T, spec handleSpec) *mocks.TaskHandle {
	t.Helper()

	dir := t.TempDir()
	stdoutFile, err := os.Create(filepath.Join(dir, "stdout"))
	if err != nil {
		t.Fatal(err)
	}
	stdoutFile.WriteString(spec.stdout)
	stderrFile, err := os.Create(filepath.Join(dir, "stderr"))
	if err != nil {
		t.Fatal(err)
	}
	stderrFile.WriteString(spec.stderr)

	handle := new(mocks.TaskHandle)
	handle.On("Wait", mock.Anything).Return(!spec.timesOut)
	handle.On("Stop").Return(nil)
	handle.On("ExitCode").Return(spec.exitCode, nil)
	handle.On("StdoutFile").Return(stdoutFile, nil)
	handle.On("StderrFile").Return(stderrFile, nil)
	handle.On("Clean").Return(nil)
	handle.On("EraseOutput").Return(nil)
	return handle
}

// scriptedExecutor returns mocked handles in sequence, one per Execute call.
func scriptedExecutor(t *testing.T, specs func(call int) handleSpec) *mocks.Executor {
	t.Helper()

	call := 0
	exec := new(mocks.Executor)
	exec.On("Execute", mock.Anything).Return(
		func(string) executor.TaskHandle {
			handle := newMockHandle(t, specs(call))
			call++
			return handle
		},
		func(string) error { return nil },
	)
	exec.On("Name").Return("Mock Executor")
	return exec
}

func target(warmup, measurements int) Target {
	return Target{
		Benchmark:             "fibonacci",
		ID:                    "c",
		Command:               "./fib",
		Timeout:               10 * time.Second,
		WarmupIterations:      warmup,
		MeasurementIterations: measurements,
		ExpectedResult:        42,
	}
}

func TestCollector(t *testing.T) {
	Convey("While collecting samples for a target", t, func() {
		clock := newFakeClock(250 * time.Microsecond)

		Convey("A well-behaved target completes with exactly M samples", func() {
			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{stdout: "RESULT: 42\n"}
			})
			run := New(exec, clock).Collect(context.Background(), target(3, 10))

			So(run.State, ShouldEqual, RunComplete)
			So(len(run.Samples), ShouldEqual, 10)
			So(run.Failure, ShouldBeNil)

			Convey("Warmup samples are never stored", func() {
				exec.AssertNumberOfCalls(t, "Execute", 13)
				for i, sample := range run.Samples {
					So(sample.Index, ShouldEqual, i)
				}
			})

			Convey("Durations come from the wall clock around the invocation", func() {
				for _, sample := range run.Samples {
					So(sample.DurationUS, ShouldEqual, 250)
					So(sample.Instrumented(), ShouldBeFalse)
				}
			})
		})

		Convey("An instrumented target's own timing replaces the wall clock", func() {
			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{stdout: "STARTUP_TIME_US: 100\nCOMPUTE_TIME_US: 900\nRESULT: 42\n"}
			})
			run := New(exec, clock).Collect(context.Background(), target(0, 2))

			So(run.State, ShouldEqual, RunComplete)
			for _, sample := range run.Samples {
				So(sample.DurationUS, ShouldEqual, 1000)
				So(sample.Instrumented(), ShouldBeTrue)
				So(*sample.StartupUS, ShouldEqual, 100)
				So(*sample.ComputeUS, ShouldEqual, 900)
			}
		})

		Convey("A wrong RESULT on the 5th measured iteration fails the run there", func() {
			exec := scriptedExecutor(t, func(call int) handleSpec {
				// 3 warmup calls, then measured iterations 1..: the 5th
				// measured call is call index 7.
				if call == 7 {
					return handleSpec{stdout: "RESULT: 41\n"}
				}
				return handleSpec{stdout: "RESULT: 42\n"}
			})
			run := New(exec, clock).Collect(context.Background(), target(3, 10))

			So(run.State, ShouldEqual, RunFailed)
			So(run.Failure, ShouldNotBeNil)
			So(run.Failure.Iteration, ShouldEqual, 5)

			mismatch, ok := run.Failure.Err().(*ValidationMismatchError)
			So(ok, ShouldBeTrue)
			So(mismatch.Expected, ShouldEqual, 42)
			So(mismatch.Actual, ShouldEqual, 41)

			Convey("The failing invocation's raw output is captured", func() {
				So(run.Failure.Stdout, ShouldContainSubstring, "RESULT: 41")
			})

			Convey("Measured iterations are not retried", func() {
				exec.AssertNumberOfCalls(t, "Execute", 8)
			})
		})

		Convey("A timed-out invocation fails the run and stops the process", func() {
			var handles []*mocks.TaskHandle
			exec := new(mocks.Executor)
			exec.On("Execute", mock.Anything).Return(
				func(string) executor.TaskHandle {
					handle := newMockHandle(t, handleSpec{timesOut: true})
					handles = append(handles, handle)
					return handle
				},
				func(string) error { return nil },
			)

			run := New(exec, clock).Collect(context.Background(), target(0, 3))

			So(run.State, ShouldEqual, RunFailed)
			So(run.Failure.Iteration, ShouldEqual, 1)

			_, ok := run.Failure.Err().(*TimeoutError)
			So(ok, ShouldBeTrue)

			So(len(handles), ShouldEqual, 1)
			handles[0].AssertCalled(t, "Stop")
		})

		Convey("A non-zero exit code fails the run", func() {
			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{stdout: "RESULT: 42\n", stderr: "boom\n", exitCode: 3}
			})
			run := New(exec, clock).Collect(context.Background(), target(0, 3))

			So(run.State, ShouldEqual, RunFailed)

			exit, ok := run.Failure.Err().(*NonZeroExitError)
			So(ok, ShouldBeTrue)
			So(exit.ExitCode, ShouldEqual, 3)
			So(run.Failure.Stderr, ShouldContainSubstring, "boom")
		})

		Convey("Unparsable output fails the run with a parse error", func() {
			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{stdout: "no contract here\n"}
			})
			run := New(exec, clock).Collect(context.Background(), target(0, 1))

			So(run.State, ShouldEqual, RunFailed)
			_, ok := run.Failure.Err().(*OutputParseError)
			So(ok, ShouldBeTrue)
		})

		Convey("A command that cannot be spawned fails the run", func() {
			exec := new(mocks.Executor)
			exec.On("Execute", mock.Anything).Return(nil, os.ErrNotExist)

			run := New(exec, clock).Collect(context.Background(), target(0, 1))

			So(run.State, ShouldEqual, RunFailed)
			_, ok := run.Failure.Err().(*ProcessSpawnError)
			So(ok, ShouldBeTrue)
		})

		Convey("Transient warmup failures are retried", func() {
			exec := scriptedExecutor(t, func(call int) handleSpec {
				if call < 2 {
					return handleSpec{exitCode: 1}
				}
				return handleSpec{stdout: "RESULT: 42\n"}
			})
			run := New(exec, clock).Collect(context.Background(), target(1, 1))

			So(run.State, ShouldEqual, RunComplete)
			// 2 failed warmups + 1 good warmup + 1 measurement.
			exec.AssertNumberOfCalls(t, "Execute", 4)
		})

		Convey("Persistent warmup failure aborts the run", func() {
			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{exitCode: 1}
			})
			run := New(exec, clock).Collect(context.Background(), target(1, 1))

			So(run.State, ShouldEqual, RunFailed)
			So(run.Failure.Iteration, ShouldEqual, 0)
			So(run.Failure.Reason, ShouldContainSubstring, "warmup")
		})

		Convey("A cancelled context leaves a cancelled run with no samples", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			exec := scriptedExecutor(t, func(int) handleSpec {
				return handleSpec{stdout: "RESULT: 42\n"}
			})
			run := New(exec, clock).Collect(ctx, target(1, 5))

			So(run.State, ShouldEqual, RunCancelled)
			So(run.Samples, ShouldBeEmpty)
		})

		Convey("An invalid target fails fast without spawning", func() {
			exec := new(mocks.Executor)

			run := New(exec, clock).Collect(context.Background(), Target{Benchmark: "fibonacci", ID: "c"})

			So(run.State, ShouldEqual, RunFailed)
			exec.AssertNotCalled(t, "Execute", mock.Anything)
		})
	})
}
