package stats

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestOutlierDetector(t *testing.T) {
	Convey("While detecting outliers with the MAD method", t, func() {
		detector := NewOutlierDetector()

		Convey("Identical durations produce no flags", func() {
			flagged := detector.Detect([]int64{100, 100, 100, 100, 100})

			So(flagged, ShouldBeEmpty)
		})

		Convey("A tight cluster produces no flags", func() {
			flagged := detector.Detect([]int64{1000, 1100, 1050, 1020, 1080})

			So(flagged, ShouldBeEmpty)
		})

		Convey("A single extreme sample among five is flagged alone", func() {
			flagged := detector.Detect([]int64{1000, 1100, 1050, 1020, 100000})

			So(flagged, ShouldResemble, []int{4})
		})

		Convey("The extreme sample is flagged regardless of its position", func() {
			flagged := detector.Detect([]int64{100000, 1000, 1100, 1050, 1020})

			So(flagged, ShouldResemble, []int{0})
		})

		Convey("The threshold is one-sided: an extremely fast sample is not flagged", func() {
			flagged := detector.Detect([]int64{1000, 1100, 1050, 1020, 1})

			So(flagged, ShouldBeEmpty)
		})

		Convey("Fewer than two samples is a no-op", func() {
			So(detector.Detect([]int64{42}), ShouldBeEmpty)
			So(detector.Detect(nil), ShouldBeEmpty)
		})

		Convey("Median handles even sample counts", func() {
			So(median([]float64{1, 2, 3, 4}), ShouldEqual, 2.5)
		})

		Convey("Median handles odd sample counts", func() {
			So(median([]float64{3, 1, 2}), ShouldEqual, 2)
		})
	})
}
