package calibration

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestTrackerNovelty(t *testing.T) {
	tr := NewTracker(DefaultDiversityConfig(false))
	first := PoseParams{0.5, 0.5, 0.3, 0.1}
	test.That(t, tr.IsGoodSample(first, CornerSet{}, nil), test.ShouldBeTrue)
	tr.Record(Sample{Params: first})

	// exactly at the threshold is not novel
	test.That(t, tr.IsGoodSample(PoseParams{0.7, 0.5, 0.3, 0.1}, CornerSet{}, nil), test.ShouldBeFalse)
	test.That(t, tr.IsGoodSample(PoseParams{0.6, 0.5, 0.3, 0.1}, CornerSet{}, nil), test.ShouldBeFalse)
	test.That(t, tr.IsGoodSample(PoseParams{0.6, 0.61, 0.3, 0.1}, CornerSet{}, nil), test.ShouldBeTrue)

	tr.Record(Sample{Params: PoseParams{0.1, 0.1, 0.2, 0}})
	test.That(t, tr.Len(), test.ShouldEqual, 2)
	// far from the first sample but close to the second
	test.That(t, tr.IsGoodSample(PoseParams{0.15, 0.15, 0.2, 0}, CornerSet{}, nil), test.ShouldBeFalse)

	samples := tr.Samples()
	samples[0].Params = PoseParams{}
	test.That(t, tr.Samples()[0].Params, test.ShouldResemble, first)
	test.That(t, tr.Params(), test.ShouldHaveLength, 2)
}

func TestTrackerMotion(t *testing.T) {
	cfg := DefaultDiversityConfig(false)
	cfg.MaxMotion = 2
	tr := NewTracker(cfg)
	tr.Record(Sample{Params: PoseParams{0.1, 0.1, 0.1, 0.1}})

	novel := PoseParams{0.9, 0.9, 0.5, 0.5}
	current := CornerSet{Points: []r2.Point{{X: 10, Y: 10}, {X: 20, Y: 10}}}
	still := CornerSet{Points: []r2.Point{{X: 11, Y: 10}, {X: 20, Y: 11}}}
	moving := CornerSet{Points: []r2.Point{{X: 20, Y: 10}, {X: 30, Y: 10}}}

	test.That(t, tr.IsGoodSample(novel, current, &still), test.ShouldBeTrue)
	test.That(t, tr.IsGoodSample(novel, current, &moving), test.ShouldBeFalse)
	test.That(t, tr.IsGoodSample(novel, current, nil), test.ShouldBeFalse)
}

func TestIsSlowMoving(t *testing.T) {
	current := CornerSet{Points: []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	test.That(t, IsSlowMoving(current, nil, 5), test.ShouldBeFalse)
	test.That(t, IsSlowMoving(current, &CornerSet{}, 5), test.ShouldBeFalse)

	shifted := CornerSet{Points: []r2.Point{{X: 3, Y: 4}, {X: 13, Y: 4}}}
	test.That(t, IsSlowMoving(current, &shifted, 5), test.ShouldBeTrue)
	test.That(t, IsSlowMoving(current, &shifted, 4.9), test.ShouldBeFalse)

	shorter := CornerSet{Points: []r2.Point{{X: 0, Y: 0}}}
	test.That(t, IsSlowMoving(current, &shorter, 5), test.ShouldBeFalse)

	t.Run("partial views match by id", func(t *testing.T) {
		cur := CornerSet{Points: []r2.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, IDs: []int{3, 7}}
		last := CornerSet{Points: []r2.Point{{X: 100, Y: 100}, {X: 11, Y: 0}}, IDs: []int{9, 7}}
		test.That(t, IsSlowMoving(cur, &last, 1), test.ShouldBeTrue)

		disjoint := CornerSet{Points: []r2.Point{{X: 0, Y: 0}}, IDs: []int{1}}
		test.That(t, IsSlowMoving(cur, &disjoint, 1), test.ShouldBeFalse)
	})
}

func TestComputeCoverage(t *testing.T) {
	cfg := DefaultDiversityConfig(false)
	empty := ComputeCoverage(nil, cfg)
	test.That(t, empty.SampleCount, test.ShouldEqual, 0)
	test.That(t, empty.Ready, test.ShouldBeFalse)

	state := ComputeCoverage([]PoseParams{
		{0.2, 0.3, 0.1, 0.1},
		{0.55, 0.65, 0.2, 0.25},
	}, cfg)
	test.That(t, state.SampleCount, test.ShouldEqual, 2)
	test.That(t, state.Min[0], test.ShouldAlmostEqual, 0.2)
	test.That(t, state.Max[1], test.ShouldAlmostEqual, 0.65)
	test.That(t, state.Progress[0], test.ShouldAlmostEqual, 0.5)
	test.That(t, state.Progress[1], test.ShouldAlmostEqual, 0.5)
	// size and skew are measured from zero
	test.That(t, state.Min[2], test.ShouldEqual, 0)
	test.That(t, state.Progress[2], test.ShouldAlmostEqual, 0.5)
	test.That(t, state.Progress[3], test.ShouldAlmostEqual, 0.5)
	test.That(t, state.Ready, test.ShouldBeFalse)

	full := ComputeCoverage([]PoseParams{{0, 0, 0.1, 0}, {1, 1, 0.5, 0.6}}, cfg)
	test.That(t, full.Progress, test.ShouldResemble, [4]float64{1, 1, 1, 1})
	test.That(t, full.Ready, test.ShouldBeTrue)

	axes := full.Axes()
	test.That(t, axes, test.ShouldHaveLength, 4)
	test.That(t, axes[2].Name, test.ShouldEqual, "Size")
	test.That(t, axes[2].Max, test.ShouldAlmostEqual, 0.5)

	cfg.ReadySampleCount = 2
	test.That(t, ComputeCoverage([]PoseParams{{0.5, 0.5, 0.1, 0}, {0.6, 0.5, 0.1, 0}}, cfg).Ready, test.ShouldBeTrue)
}

func TestReadyAtDefaultSampleCount(t *testing.T) {
	cfg := DefaultDiversityConfig(false)
	// X only spans 0.3 of the 0.7 it needs, so readiness comes from the count alone
	params := make([]PoseParams, 0, DefaultReadySampleCount)
	for i := 0; i < DefaultReadySampleCount-1; i++ {
		params = append(params, PoseParams{0.4 + 0.3*float64(i)/40, float64(i) / 39, 0.5, 0.6})
	}
	short := ComputeCoverage(params, cfg)
	test.That(t, short.SampleCount, test.ShouldEqual, 39)
	test.That(t, short.Progress[0], test.ShouldBeLessThan, 1)
	test.That(t, short.Ready, test.ShouldBeFalse)

	params = append(params, PoseParams{0.5, 0.5, 0.5, 0.6})
	test.That(t, ComputeCoverage(params, cfg).Ready, test.ShouldBeTrue)
}

func TestStereoDiversityNeedsLessX(t *testing.T) {
	mono := DefaultDiversityConfig(false)
	stereo := DefaultDiversityConfig(true)
	test.That(t, stereo.ParamRanges[0], test.ShouldBeLessThan, mono.ParamRanges[0])
	params := []PoseParams{{0.3, 0.5, 0.2, 0.1}, {0.7, 0.5, 0.2, 0.1}}
	test.That(t, ComputeCoverage(params, stereo).Progress[0], test.ShouldAlmostEqual, 1)
	test.That(t, ComputeCoverage(params, mono).Progress[0], test.ShouldBeLessThan, 1)
}
