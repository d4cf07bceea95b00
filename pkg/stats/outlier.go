// Package stats reduces a run's measured durations to descriptive
// statistics and robust outlier annotations. Every function here is a pure
// transformation over an immutable sample set.
package stats

import "sort"

const (
	// DefaultMADConsistency scales the median absolute deviation to be
	// consistent with the standard deviation under a normal distribution.
	DefaultMADConsistency = 1.4826

	// DefaultMADMultiplier is the number of scaled MADs above the median
	// beyond which a sample is flagged.
	DefaultMADMultiplier = 3.0
)

// OutlierDetector flags statistically anomalous durations within a run
// using the median-absolute-deviation method. Flagged samples are advisory
// metadata only; they are never removed from the sample set and never
// influence the summary statistics.
type OutlierDetector struct {
	// Consistency is the MAD scaling constant.
	Consistency float64
	// Multiplier is the number of scaled MADs forming the threshold.
	Multiplier float64
}

// NewOutlierDetector returns a detector with the default consistency
// constant and multiplier.
func NewOutlierDetector() OutlierDetector {
	return OutlierDetector{
		Consistency: DefaultMADConsistency,
		Multiplier:  DefaultMADMultiplier,
	}
}

// Detect returns the indices of durations lying above
// median + Multiplier*Consistency*MAD. Runs with fewer than two samples
// produce no flags.
func (d OutlierDetector) Detect(durationsUS []int64) []int {
	if len(durationsUS) < 2 {
		return nil
	}

	values := toFloats(durationsUS)
	m := median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = abs(v - m)
	}
	mad := median(deviations)

	threshold := m + d.Multiplier*d.Consistency*mad

	var flagged []int
	for i, v := range values {
		if v > threshold {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

// median returns the middle value; for an even count, the average of the
// two central values.
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func toFloats(durationsUS []int64) []float64 {
	values := make([]float64, len(durationsUS))
	for i, d := range durationsUS {
		values[i] = float64(d)
	}
	return values
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
