package report

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/paiml/ruchy-docker/pkg/aggregate"
	"github.com/paiml/ruchy-docker/pkg/stats"
)

func sampleDocument() *Document {
	return &Document{
		Session: Session{
			ID:                 "f0402e2c-8b9a-4a67-bd81-25b38f55c63c",
			StartedAt:          time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
			Baseline:           "c",
			BootstrapSeed:      42,
			BootstrapResamples: 10000,
		},
		Benchmarks: map[string]map[string]*TargetEntry{
			"fibonacci": {
				"c": {
					Status:     "complete",
					RawSamples: []int64{1000, 1050, 990, 1020, 1110},
					Summary: &stats.Summary{
						Mean:   1034,
						Median: 1020,
						StdDev: 47.22,
						Min:    990,
						Max:    1110,
						CI95:   [2]float64{1000.4, 1070.2},
					},
					OutlierIndices: []int{},
				},
				"python": {
					Status: "failed",
					Failure: &FailureEntry{
						Iteration: 5,
						Reason:    "RESULT validation failed: expected 42, got 41",
						Stdout:    "RESULT: 41\n",
					},
				},
			},
		},
		Aggregates: map[string]aggregate.Result{
			"c": {Baseline: "c", GeometricMean: 1.0, ArithmeticMean: 1034, HarmonicMean: 1.0},
		},
	}
}

func TestReport(t *testing.T) {
	Convey("While emitting the report artifact", t, func() {
		directory := t.TempDir()
		path := filepath.Join(directory, "results.json")

		Convey("The artifact round-trips the exact raw sample arrays", func() {
			original := sampleDocument()

			So(Write(original, path), ShouldBeNil)

			decoded, err := Read(path)
			So(err, ShouldBeNil)
			So(decoded.Benchmarks["fibonacci"]["c"].RawSamples,
				ShouldResemble, []int64{1000, 1050, 990, 1020, 1110})
			So(decoded.Session.Baseline, ShouldEqual, "c")
			So(decoded.Aggregates["c"].GeometricMean, ShouldEqual, 1.0)
		})

		Convey("Failed targets appear explicitly with their reason", func() {
			So(Write(sampleDocument(), path), ShouldBeNil)

			decoded, err := Read(path)
			So(err, ShouldBeNil)

			failed := decoded.Benchmarks["fibonacci"]["python"]
			So(failed.Status, ShouldEqual, "failed")
			So(failed.Failure, ShouldNotBeNil)
			So(failed.Failure.Iteration, ShouldEqual, 5)
			So(failed.Failure.Reason, ShouldContainSubstring, "expected 42, got 41")
		})

		Convey("The benchmark map sits at the top level next to session and aggregates", func() {
			So(Write(sampleDocument(), path), ShouldBeNil)

			data, err := ioutil.ReadFile(path)
			So(err, ShouldBeNil)
			So(string(data), ShouldContainSubstring, `"fibonacci"`)
			So(string(data), ShouldContainSubstring, `"session"`)
			So(string(data), ShouldContainSubstring, `"aggregates"`)
		})

		Convey("No temporary files survive a successful write", func() {
			So(Write(sampleDocument(), path), ShouldBeNil)

			entries, err := ioutil.ReadDir(directory)
			So(err, ShouldBeNil)
			for _, entry := range entries {
				So(strings.HasPrefix(entry.Name(), ".report_"), ShouldBeFalse)
			}
		})

		Convey("A benchmark named after a reserved key is rejected", func() {
			document := sampleDocument()
			document.Benchmarks["aggregates"] = map[string]*TargetEntry{}

			err := Write(document, path)

			So(err, ShouldNotBeNil)
			_, ok := err.(*WriteError)
			So(ok, ShouldBeTrue)
		})

		Convey("Writing into a missing directory is a WriteError leaving no artifact", func() {
			missing := filepath.Join(directory, "missing", "results.json")

			err := Write(sampleDocument(), missing)

			So(err, ShouldNotBeNil)
			_, ok := err.(*WriteError)
			So(ok, ShouldBeTrue)

			_, statErr := os.Stat(missing)
			So(os.IsNotExist(statErr), ShouldBeTrue)
		})
	})

	Convey("While rendering the comparison table", t, func() {
		var buffer bytes.Buffer

		RenderTable(&buffer, sampleDocument())
		rendered := buffer.String()

		Convey("Complete targets show mean, speedup and status", func() {
			So(rendered, ShouldContainSubstring, "fibonacci")
			So(rendered, ShouldContainSubstring, "1.00x")
			So(rendered, ShouldContainSubstring, "complete")
		})

		Convey("Failed targets are listed, never dropped", func() {
			So(rendered, ShouldContainSubstring, "python")
			So(rendered, ShouldContainSubstring, "failed")
		})

		Convey("All three aggregate means are shown together", func() {
			So(rendered, ShouldContainSubstring, "GEOMEAN")
			So(rendered, ShouldContainSubstring, "ARITHMEAN")
			So(rendered, ShouldContainSubstring, "HARMEAN")
		})
	})
}
