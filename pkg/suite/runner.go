package suite

import (
	"context"
	"math/rand"
	"os"

	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/paiml/ruchy-docker/pkg/aggregate"
	"github.com/paiml/ruchy-docker/pkg/collector"
	"github.com/paiml/ruchy-docker/pkg/executor"
	"github.com/paiml/ruchy-docker/pkg/report"
	"github.com/paiml/ruchy-docker/pkg/stats"
)

// RunnerConfig tunes one benchmarking session.
type RunnerConfig struct {
	// BootstrapResamples is the bootstrap resample count for confidence
	// intervals; non-positive selects the default.
	BootstrapResamples int
	// BootstrapSeed makes the confidence intervals reproducible.
	BootstrapSeed int64
	// Parallelism is the number of targets measured concurrently. The
	// default of 1 keeps runs strictly sequential, the only mode free of
	// cross-target cache and scheduler contention.
	Parallelism int
	// ShowProgress renders a progress bar on stderr.
	ShowProgress bool
	// Version is recorded in the artifact's session block.
	Version string
}

// Runner executes every target of a suite and assembles the artifact.
// One run failing never aborts the session; the failure is carried into
// the artifact instead.
type Runner struct {
	config       *Config
	runnerConfig RunnerConfig
	engine       stats.Engine
}

// NewRunner returns a session runner for the given suite.
func NewRunner(config *Config, runnerConfig RunnerConfig) *Runner {
	return &Runner{
		config:       config,
		runnerConfig: runnerConfig,
		engine:       stats.NewEngine(runnerConfig.BootstrapResamples),
	}
}

// Run measures every target and returns the finished artifact. Aggregates
// are computed only when every run completed: aggregating around a failed
// target would require silently dropping it, which the aggregation
// contract forbids.
func (r *Runner) Run(ctx context.Context) (*report.Document, error) {
	targets := r.config.Targets()
	currentSession := newSession()

	log.Infof("session %s: measuring %d targets", currentSession.ID, len(targets))

	var bar *progressbar.ProgressBar
	if r.runnerConfig.ShowProgress {
		bar = progressbar.NewOptions(len(targets),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("benchmarking"),
			progressbar.OptionShowCount(),
		)
	}

	runs := r.collectRuns(ctx, targets, bar)
	if bar != nil {
		bar.Finish()
	}

	return r.buildDocument(currentSession, runs)
}

// collectRuns measures all targets, sequentially by default or with
// bounded parallelism when configured.
func (r *Runner) collectRuns(ctx context.Context, targets []collector.Target, bar *progressbar.ProgressBar) []*collector.Run {
	runs := make([]*collector.Run, len(targets))

	collectOne := func(index int) {
		target := targets[index]
		c := collector.New(executor.NewLocalIn(target.WorkDir), collector.SystemClock())
		runs[index] = c.Collect(ctx, target)
		if bar != nil {
			bar.Add(1)
		}
	}

	if r.runnerConfig.Parallelism <= 1 {
		for index := range targets {
			collectOne(index)
		}
		return runs
	}

	group := &errgroup.Group{}
	group.SetLimit(r.runnerConfig.Parallelism)
	for index := range targets {
		index := index
		group.Go(func() error {
			collectOne(index)
			return nil
		})
	}
	group.Wait()
	return runs
}

// buildDocument derives summaries and aggregates from the finished runs.
func (r *Runner) buildDocument(currentSession session, runs []*collector.Run) (*report.Document, error) {
	resamples := r.runnerConfig.BootstrapResamples
	if resamples <= 0 {
		resamples = stats.DefaultBootstrapResamples
	}

	document := &report.Document{
		Session: report.Session{
			ID:                 currentSession.ID,
			StartedAt:          currentSession.StartedAt,
			Version:            r.runnerConfig.Version,
			Baseline:           r.config.Baseline,
			BootstrapSeed:      r.runnerConfig.BootstrapSeed,
			BootstrapResamples: resamples,
		},
		Benchmarks: map[string]map[string]*report.TargetEntry{},
	}

	summaries := map[string]map[string]stats.Summary{}
	allComplete := true

	for _, run := range runs {
		entry := &report.TargetEntry{Status: run.State.String()}

		if run.Completed() {
			durations := run.DurationsUS()
			summary, err := r.engine.Summarize(durations, rand.New(rand.NewSource(r.runnerConfig.BootstrapSeed)))
			if err != nil {
				return nil, err
			}

			entry.RawSamples = durations
			entry.Summary = &summary
			entry.OutlierIndices = summary.OutlierIndices

			if summaries[run.Target.Benchmark] == nil {
				summaries[run.Target.Benchmark] = map[string]stats.Summary{}
			}
			summaries[run.Target.Benchmark][run.Target.ID] = summary
		} else {
			allComplete = false
			if run.Failure != nil {
				entry.Failure = &report.FailureEntry{
					Iteration: run.Failure.Iteration,
					Reason:    run.Failure.Reason,
					Stdout:    run.Failure.Stdout,
					Stderr:    run.Failure.Stderr,
				}
			}
		}

		if document.Benchmarks[run.Target.Benchmark] == nil {
			document.Benchmarks[run.Target.Benchmark] = map[string]*report.TargetEntry{}
		}
		document.Benchmarks[run.Target.Benchmark][run.Target.ID] = entry
	}

	if allComplete {
		// An aggregation failure withholds the aggregates but never the
		// measured data; the artifact is still written.
		aggregates, err := aggregate.Aggregate(summaries, r.config.Baseline)
		if err != nil {
			log.Errorf("Skipping aggregation: %v", err)
		} else {
			document.Aggregates = aggregates
		}
	} else {
		log.Warn("Skipping aggregation: not all runs completed")
	}

	return document, nil
}
