package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/paiml/ruchy-docker/pkg/conf"
	"github.com/paiml/ruchy-docker/pkg/report"
	"github.com/paiml/ruchy-docker/pkg/stats"
	"github.com/paiml/ruchy-docker/pkg/suite"
	"github.com/paiml/ruchy-docker/pkg/utils/errutil"
)

const version = "0.1.0"

var (
	suiteFileFlag = conf.NewStringFlag(
		"suite",
		"Path to the benchmark suite file.",
		"polybench.yaml",
	)
	outputFlag = conf.NewStringFlag(
		"output",
		"Path the JSON report artifact is written to.",
		"report.json",
	)
	baselineFlag = conf.NewStringFlag(
		"baseline",
		"Baseline target identifier, overriding the suite file.",
		"",
	)
	warmupFlag = conf.NewIntFlag(
		"warmup",
		"Warmup iterations per target, overriding the suite file.",
		0,
	)
	measurementsFlag = conf.NewIntFlag(
		"measurements",
		"Measurement iterations per target, overriding the suite file.",
		0,
	)
	resamplesFlag = conf.NewIntFlag(
		"bootstrap-resamples",
		"Bootstrap resample count for confidence intervals.",
		stats.DefaultBootstrapResamples,
	)
	seedFlag = conf.NewInt64Flag(
		"bootstrap-seed",
		"Bootstrap RNG seed. Zero derives a seed from the current time.",
		0,
	)
	parallelFlag = conf.NewIntFlag(
		"parallel",
		"Number of targets measured concurrently. Keep at 1 for trustworthy timings.",
		1,
	)
	tableFlag = conf.NewBoolFlag(
		"table",
		"Render the comparison table on stdout after the session.",
		true,
	)
	progressFlag = conf.NewBoolFlag(
		"progress",
		"Render a progress bar on stderr while measuring.",
		true,
	)
)

// usageError reports a configuration or flag problem and exits with the
// usage status.
func usageError(err error) {
	log.Debugf("%+v", err)
	log.Errorf("%v", err)
	os.Exit(2)
}

func main() {
	conf.SetAppName("polybench")
	conf.SetHelp("Runs every target of a benchmark suite, detects outliers, and writes a JSON report with cross-target aggregates.")
	conf.SetVersion(version)

	if err := conf.ParseFlags(); err != nil {
		usageError(err)
	}
	logLevel, err := conf.LogLevel()
	if err != nil {
		usageError(err)
	}
	log.SetLevel(logLevel)

	config, err := suite.LoadConfig(suiteFileFlag.Value())
	if err != nil {
		usageError(err)
	}
	if err := config.ApplyOverrides(baselineFlag.Value(), warmupFlag.Value(), measurementsFlag.Value()); err != nil {
		usageError(err)
	}

	seed := seedFlag.Value()
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := suite.NewRunner(config, suite.RunnerConfig{
		BootstrapResamples: resamplesFlag.Value(),
		BootstrapSeed:      seed,
		Parallelism:        parallelFlag.Value(),
		ShowProgress:       progressFlag.Value(),
		Version:            version,
	})

	log.Infof("Starting %s %s with suite %s", conf.AppName(), version, suiteFileFlag.Value())

	document, err := runner.Run(ctx)
	errutil.CheckWithContext(err, "benchmark session failed")

	errutil.CheckWithContext(report.Write(document, outputFlag.Value()), "cannot write report")
	log.Infof("report written to %s", outputFlag.Value())

	if tableFlag.Value() {
		report.RenderTable(os.Stdout, document)
	}

	if incomplete := document.IncompleteRuns(); len(incomplete) > 0 {
		log.Warnf("%d of %d runs did not complete: %v",
			len(incomplete), len(config.Targets()), incomplete)
		os.Exit(1)
	}
}
