package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
)

// RenderTable writes a human-readable comparison of the artifact: one table
// per benchmark sorted fastest-first, followed by the cross-benchmark
// aggregates. Colors degrade to plain text on non-terminal writers.
func RenderTable(w io.Writer, document *Document) {
	title := color.New(color.Bold)
	okStatus := color.New(color.FgGreen)
	badStatus := color.New(color.FgRed)

	benchmarks := make([]string, 0, len(document.Benchmarks))
	for benchmark := range document.Benchmarks {
		benchmarks = append(benchmarks, benchmark)
	}
	sort.Strings(benchmarks)

	for _, benchmark := range benchmarks {
		targets := document.Benchmarks[benchmark]

		title.Fprintf(w, "%s (baseline: %s)\n", benchmark, document.Session.Baseline)
		fmt.Fprintf(w, "%-20s %14s %14s %10s %10s %10s\n",
			"TARGET", "MEAN (ms)", "MEDIAN (ms)", "SPEEDUP", "OUTLIERS", "STATUS")

		var baselineMean float64
		if baseline, ok := targets[document.Session.Baseline]; ok && baseline.Summary != nil {
			baselineMean = baseline.Summary.Mean
		}

		for _, targetID := range sortTargets(targets) {
			entry := targets[targetID]

			if entry.Summary == nil {
				fmt.Fprintf(w, "%-20s %14s %14s %10s %10s ", targetID, "-", "-", "-", "-")
				badStatus.Fprintf(w, "%10s\n", entry.Status)
				continue
			}

			speedup := "-"
			if baselineMean > 0 {
				speedup = fmt.Sprintf("%.2fx", baselineMean/entry.Summary.Mean)
			}

			fmt.Fprintf(w, "%-20s %14.2f %14.2f %10s %10d ",
				targetID,
				entry.Summary.Mean/1000.0,
				entry.Summary.Median/1000.0,
				speedup,
				len(entry.OutlierIndices))
			okStatus.Fprintf(w, "%10s\n", entry.Status)
		}
		fmt.Fprintln(w)
	}

	if len(document.Aggregates) == 0 {
		return
	}

	title.Fprintf(w, "aggregates (baseline: %s)\n", document.Session.Baseline)
	fmt.Fprintf(w, "%-20s %14s %14s %14s\n",
		"TARGET", "GEOMEAN", "ARITHMEAN (ms)", "HARMEAN")

	targetIDs := make([]string, 0, len(document.Aggregates))
	for targetID := range document.Aggregates {
		targetIDs = append(targetIDs, targetID)
	}
	sort.Strings(targetIDs)

	for _, targetID := range targetIDs {
		result := document.Aggregates[targetID]
		fmt.Fprintf(w, "%-20s %13.2fx %14.2f %13.2fx\n",
			targetID,
			result.GeometricMean,
			result.ArithmeticMean/1000.0,
			result.HarmonicMean)
	}
}

// sortTargets orders completed targets fastest-first, then the rest
// alphabetically so failed targets stay visible at the bottom.
func sortTargets(targets map[string]*TargetEntry) []string {
	targetIDs := make([]string, 0, len(targets))
	for targetID := range targets {
		targetIDs = append(targetIDs, targetID)
	}

	sort.Slice(targetIDs, func(i, j int) bool {
		first, second := targets[targetIDs[i]], targets[targetIDs[j]]
		switch {
		case first.Summary != nil && second.Summary != nil:
			return first.Summary.Mean < second.Summary.Mean
		case first.Summary != nil:
			return true
		case second.Summary != nil:
			return false
		default:
			return targetIDs[i] < targetIDs[j]
		}
	})
	return targetIDs
}
