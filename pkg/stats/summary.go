package stats

import (
	"math/rand"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"github.com/codahale/hdrhistogram"
	"github.com/pkg/errors"
)

// DefaultBootstrapResamples is the bootstrap resample count used for the
// 95% confidence interval when none is configured.
const DefaultBootstrapResamples = 10000

// histogramSigFigs is the value precision kept by the duration histogram.
const histogramSigFigs = 3

// Percentiles are duration percentiles in microseconds, recorded through an
// HDR histogram.
type Percentiles struct {
	P50 int64 `json:"p50"`
	P90 int64 `json:"p90"`
	P99 int64 `json:"p99"`
}

// Summary holds the descriptive statistics of one run's measured durations.
// All time-valued fields are in microseconds.
type Summary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	// CI95 holds the bootstrap 95% confidence interval bounds for the mean.
	CI95 [2]float64 `json:"ci95"`

	Percentiles Percentiles `json:"percentiles"`

	// OutlierIndices are the MAD-flagged sample indices. Advisory only: the
	// fields above are always computed over the full sample set. The report
	// artifact carries the indices next to the summary, not inside it.
	OutlierIndices []int `json:"-"`
}

// Engine computes summaries from raw durations. The zero value is not
// usable; construct with NewEngine.
type Engine struct {
	bootstrapResamples int
	detector           OutlierDetector
}

// NewEngine returns an engine with the given bootstrap resample count.
// A non-positive count falls back to the default.
func NewEngine(bootstrapResamples int) Engine {
	if bootstrapResamples <= 0 {
		bootstrapResamples = DefaultBootstrapResamples
	}
	return Engine{
		bootstrapResamples: bootstrapResamples,
		detector:           NewOutlierDetector(),
	}
}

// Summarize reduces durations to a Summary. It is a pure function of its
// inputs: the same durations and an identically seeded rng yield an
// identical Summary. The rng drives bootstrap resampling only.
func (e Engine) Summarize(durationsUS []int64, rng *rand.Rand) (Summary, error) {
	if len(durationsUS) == 0 {
		return Summary{}, errors.New("cannot summarize an empty sample set")
	}
	if rng == nil {
		return Summary{}, errors.New("summarize requires an explicit random source")
	}

	values := toFloats(durationsUS)
	sample := stats.Sample{Xs: append([]float64(nil), values...)}
	sample.Sort()

	summary := Summary{
		Mean:           sample.Mean(),
		Median:         median(values),
		Min:            sample.Xs[0],
		Max:            sample.Xs[len(sample.Xs)-1],
		Percentiles:    recordPercentiles(durationsUS),
		OutlierIndices: e.detector.Detect(durationsUS),
	}

	if len(values) < 2 {
		// A single measurement has no dispersion; the interval collapses.
		summary.StdDev = 0
		summary.CI95 = [2]float64{values[0], values[0]}
		return summary, nil
	}

	summary.StdDev = sample.StdDev()
	summary.CI95 = e.bootstrapCI95(values, rng)
	return summary, nil
}

// bootstrapCI95 estimates the 95% confidence interval of the mean with the
// percentile bootstrap.
func (e Engine) bootstrapCI95(values []float64, rng *rand.Rand) [2]float64 {
	n := len(values)
	means := make([]float64, e.bootstrapResamples)
	for b := range means {
		var sum float64
		for i := 0; i < n; i++ {
			sum += values[rng.Intn(n)]
		}
		means[b] = sum / float64(n)
	}
	sort.Float64s(means)

	lo := means[int(0.025*float64(len(means)-1))]
	hi := means[int(0.975*float64(len(means)-1))]
	return [2]float64{lo, hi}
}

func recordPercentiles(durationsUS []int64) Percentiles {
	max := durationsUS[0]
	for _, d := range durationsUS {
		if d > max {
			max = d
		}
	}
	if max < 1 {
		max = 1
	}

	histogram := hdrhistogram.New(1, max, histogramSigFigs)
	for _, d := range durationsUS {
		if d < 1 {
			d = 1
		}
		histogram.RecordValue(d)
	}

	return Percentiles{
		P50: histogram.ValueAtQuantile(50),
		P90: histogram.ValueAtQuantile(90),
		P99: histogram.ValueAtQuantile(99),
	}
}
