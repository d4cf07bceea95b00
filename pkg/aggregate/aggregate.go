// Package aggregate combines per-target summaries across benchmarks into
// speedup aggregates relative to a baseline target.
//
// Three means are always reported together. A single aggregate metric can
// be misleading in isolation: the geometric mean is the fair aggregate for
// speedup ratios, the arithmetic mean answers "what is the average
// wall-clock cost", and the harmonic mean is the rate-style average of
// speedups. None of them is ever reported alone.
package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/paiml/ruchy-docker/pkg/stats"
)

// MissingBaselineError signals that a benchmark has no summary for the
// designated baseline target.
type MissingBaselineError struct {
	Benchmark string
	Baseline  string
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("benchmark %q has no summary for baseline target %q", e.Benchmark, e.Baseline)
}

// InsufficientDataError signals that a target lacks a summary for a
// benchmark being aggregated. Silent skipping or imputation would skew the
// aggregates, so the whole aggregation is rejected instead.
type InsufficientDataError struct {
	Benchmark string
	TargetID  string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("target %q has no summary for benchmark %q", e.TargetID, e.Benchmark)
}

// Result holds the cross-benchmark aggregates for one target.
type Result struct {
	// Baseline is the target every speedup is computed against.
	Baseline string `json:"baseline"`
	// GeometricMean of per-benchmark speedups, computed in log space.
	GeometricMean float64 `json:"geometric_mean"`
	// ArithmeticMean of the target's absolute mean times in microseconds,
	// not of speedups.
	ArithmeticMean float64 `json:"arithmetic_mean"`
	// HarmonicMean of per-benchmark speedups.
	HarmonicMean float64 `json:"harmonic_mean"`
}

// Speedup is the ratio of the baseline's mean time to the target's mean
// time for one benchmark. A value below 1.0 means the target is slower
// than the baseline; this is intentional and never clamped or inverted.
func Speedup(baselineMean, targetMean float64) float64 {
	return baselineMean / targetMean
}

// Aggregate reduces summaries (benchmark identifier → target identifier →
// summary) to one Result per target, relative to the baseline target.
//
// Every benchmark must carry the baseline, and every target must carry a
// summary for every benchmark in the input.
func Aggregate(summaries map[string]map[string]stats.Summary, baseline string) (map[string]Result, error) {
	if len(summaries) == 0 {
		return nil, errors.New("nothing to aggregate")
	}

	benchmarks := make([]string, 0, len(summaries))
	targetSet := map[string]bool{}
	for benchmark, targets := range summaries {
		benchmarks = append(benchmarks, benchmark)
		if _, ok := targets[baseline]; !ok {
			return nil, &MissingBaselineError{Benchmark: benchmark, Baseline: baseline}
		}
		for targetID := range targets {
			targetSet[targetID] = true
		}
	}
	sort.Strings(benchmarks)

	results := make(map[string]Result, len(targetSet))
	for targetID := range targetSet {
		speedups := make([]float64, 0, len(benchmarks))
		meanTimes := make([]float64, 0, len(benchmarks))

		for _, benchmark := range benchmarks {
			summary, ok := summaries[benchmark][targetID]
			if !ok {
				return nil, &InsufficientDataError{Benchmark: benchmark, TargetID: targetID}
			}
			if summary.Mean <= 0 {
				return nil, errors.Errorf("target %q has a non-positive mean time for benchmark %q", targetID, benchmark)
			}

			baselineMean := summaries[benchmark][baseline].Mean
			speedups = append(speedups, Speedup(baselineMean, summary.Mean))
			meanTimes = append(meanTimes, summary.Mean)
		}

		results[targetID] = Result{
			Baseline:       baseline,
			GeometricMean:  geometricMean(speedups),
			ArithmeticMean: arithmeticMean(meanTimes),
			HarmonicMean:   harmonicMean(speedups),
		}
	}

	return results, nil
}

// geometricMean computes exp(mean(log(x))) to avoid overflow and underflow
// with many benchmarks or extreme ratios.
func geometricMean(values []float64) float64 {
	var sumLog float64
	for _, v := range values {
		sumLog += math.Log(v)
	}
	return math.Exp(sumLog / float64(len(values)))
}

func arithmeticMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func harmonicMean(values []float64) float64 {
	var sumReciprocals float64
	for _, v := range values {
		sumReciprocals += 1 / v
	}
	return float64(len(values)) / sumReciprocals
}
