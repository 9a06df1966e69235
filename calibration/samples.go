package calibration

import (
	"image"

	"github.com/samber/lo"

	"go.viam.com/camcal/utils"
)

// Default diversity settings.
const (
	DefaultNoveltyThreshold = 0.2
	DefaultReadySampleCount = 40
)

// Sample is an accepted board view. Frames holds the source frame of each camera, left first, so
// the solve can be redone later; it may be empty for samples restored from a snapshot.
type Sample struct {
	Params PoseParams
	Left   CornerSet
	Right  *CornerSet
	Frames []*image.Gray
}

// DiversityConfig holds the thresholds used to accept samples and judge coverage.
type DiversityConfig struct {
	// NoveltyThreshold is the L1 distance a new sample must exceed from every stored sample.
	NoveltyThreshold float64
	// MaxMotion is the largest average corner displacement since the previous frame for which a
	// sample is accepted. Zero or less disables the check.
	MaxMotion float64
	// ReadySampleCount is the sample count at which coverage is considered sufficient anyway.
	ReadySampleCount int
	// ParamRanges is the spread each pose parameter needs for full progress.
	ParamRanges [4]float64
}

// DefaultDiversityConfig returns the default thresholds. A camera mounted in a stereo rig cannot
// sweep the full horizontal range, so stereo needs less X spread.
func DefaultDiversityConfig(stereo bool) DiversityConfig {
	cfg := DiversityConfig{
		NoveltyThreshold: DefaultNoveltyThreshold,
		ReadySampleCount: DefaultReadySampleCount,
		ParamRanges:      [4]float64{0.7, 0.7, 0.4, 0.5},
	}
	if stereo {
		cfg.ParamRanges[0] = 0.4
	}
	return cfg
}

// Tracker holds the accepted samples of one calibration session. It is not safe for concurrent
// use; calibrators serialize access to it.
//
// Live sessions only Record samples that passed IsGoodSample, so stored samples are pairwise more
// than the novelty threshold apart. Restoring a snapshot records its samples as they were stored.
// Calibrating from a fixed list of images (CalibrateMonoFromImages,
// CalibrateStereoFromImages) records every detection instead, and its coverage counts repeated views.
type Tracker struct {
	cfg     DiversityConfig
	samples []Sample
}

// NewTracker returns an empty tracker.
func NewTracker(cfg DiversityConfig) *Tracker {
	return &Tracker{cfg: cfg}
}

// Config returns the tracker thresholds.
func (t *Tracker) Config() DiversityConfig {
	return t.cfg
}

// IsGoodSample reports whether a candidate view adds enough new information to be kept. The first
// sample is always good. last is the previous frame's detection, used by the motion check.
func (t *Tracker) IsGoodSample(params PoseParams, corners CornerSet, last *CornerSet) bool {
	if len(t.samples) == 0 {
		return true
	}
	nearest := lo.Min(lo.Map(t.samples, func(s Sample, _ int) float64 {
		return params.L1(s.Params)
	}))
	if nearest <= t.cfg.NoveltyThreshold {
		return false
	}
	if t.cfg.MaxMotion > 0 && !IsSlowMoving(corners, last, t.cfg.MaxMotion) {
		return false
	}
	return true
}

// Record appends a sample without checking novelty.
func (t *Tracker) Record(s Sample) {
	t.samples = append(t.samples, s)
}

// Len returns the number of accepted samples.
func (t *Tracker) Len() int {
	return len(t.samples)
}

// Samples returns a copy of the accepted samples.
func (t *Tracker) Samples() []Sample {
	return append([]Sample(nil), t.samples...)
}

// Params returns the pose parameters of every accepted sample.
func (t *Tracker) Params() []PoseParams {
	return lo.Map(t.samples, func(s Sample, _ int) PoseParams { return s.Params })
}

// Coverage computes the coverage of the accepted samples.
func (t *Tracker) Coverage() CoverageState {
	return ComputeCoverage(t.Params(), t.cfg)
}

// IsSlowMoving reports whether the board moved on average no more than maxMotion pixels since the
// previous frame. Full grids are matched by position, partial views by id; with no previous
// detection or no matching corners the board is not considered slow.
func IsSlowMoving(current CornerSet, last *CornerSet, maxMotion float64) bool {
	if last == nil || last.Len() == 0 {
		return false
	}

	var deltas []float64
	if current.IDs == nil {
		if current.Len() != last.Len() {
			return false
		}
		for i, p := range current.Points {
			deltas = append(deltas, p.Sub(last.Points[i]).Norm())
		}
	} else {
		previous := make(map[int]int, len(last.IDs))
		for i, id := range last.IDs {
			if _, seen := previous[id]; !seen {
				previous[id] = i
			}
		}
		for i, id := range current.IDs {
			if j, ok := previous[id]; ok {
				deltas = append(deltas, current.Points[i].Sub(last.Points[j]).Norm())
			}
		}
	}

	average, ok := utils.Mean(deltas)
	return ok && average <= maxMotion
}
