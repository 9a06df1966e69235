//go:build no_cgo

// Package native implements board detection, corner refinement and camera solving on top of
// OpenCV through gocv.
package native

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/logging"
)

var errNoCgo = errors.Wrap(calibration.ErrUnsupportedConfiguration, "OpenCV is not available on this build")

// Detector mimics the type in the cgo compiled code.
type Detector struct{}

// NewDetector returns a detector that always fails.
func NewDetector(logger logging.Logger) *Detector {
	return &Detector{}
}

// Detect refuses to detect without cgo.
func (d *Detector) Detect(img *image.Gray, board calibration.Board) (calibration.CornerSet, bool, error) {
	return calibration.CornerSet{}, false, errNoCgo
}

// RefineCorners refuses to refine without cgo.
func (d *Detector) RefineCorners(img *image.Gray, pts []r2.Point, radius int) ([]r2.Point, error) {
	return nil, errNoCgo
}

// Solver mimics the type in the cgo compiled code.
type Solver struct{}

// NewSolver returns a solver that always fails.
func NewSolver(logger logging.Logger) *Solver {
	return &Solver{}
}

// SolveMono refuses to solve without cgo.
func (s *Solver) SolveMono(ctx context.Context, problem calibration.MonoProblem) (*calibration.MonoSolution, error) {
	return nil, errNoCgo
}

// SolveStereo refuses to solve without cgo.
func (s *Solver) SolveStereo(ctx context.Context, problem calibration.StereoProblem) (*calibration.StereoSolution, error) {
	return nil, errNoCgo
}
