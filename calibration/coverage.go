package calibration

import "math"

// AxisCoverage is the spread of one pose parameter over the accepted samples.
type AxisCoverage struct {
	Name     string
	Min      float64
	Max      float64
	Progress float64
}

// CoverageState summarizes how much of the pose space the accepted samples span.
type CoverageState struct {
	SampleCount int
	Min         PoseParams
	Max         PoseParams
	Progress    [4]float64
	Ready       bool
}

// Axes returns the coverage of each pose parameter, in order.
func (c CoverageState) Axes() []AxisCoverage {
	axes := make([]AxisCoverage, len(ParamNames))
	for i, name := range ParamNames {
		axes[i] = AxisCoverage{Name: name, Min: c.Min[i], Max: c.Max[i], Progress: c.Progress[i]}
	}
	return axes
}

// ComputeCoverage computes the per axis spread and readiness of a set of samples. Size and skew
// are measured from 0 so that only large or skewed views earn progress on those axes. The set is
// ready once every axis is fully covered or enough samples were taken.
func ComputeCoverage(params []PoseParams, cfg DiversityConfig) CoverageState {
	state := CoverageState{SampleCount: len(params)}
	if len(params) == 0 {
		return state
	}

	state.Min, state.Max = params[0], params[0]
	for _, p := range params[1:] {
		for i := range p {
			state.Min[i] = math.Min(state.Min[i], p[i])
			state.Max[i] = math.Max(state.Max[i], p[i])
		}
	}
	state.Min[2], state.Min[3] = 0, 0

	full := true
	for i := range state.Progress {
		state.Progress[i] = math.Min((state.Max[i]-state.Min[i])/cfg.ParamRanges[i], 1)
		if state.Progress[i] != 1 {
			full = false
		}
	}
	state.Ready = len(params) >= cfg.ReadySampleCount || full
	return state
}
