package calibration

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// A Detector locates a board in an 8-bit mono frame. Points must come back in the board's
// canonical row-major order; partial views carry ids. A frame without a board is not an error.
type Detector interface {
	Detect(img *image.Gray, board Board) (CornerSet, bool, error)
}

// A Refiner moves approximate corner positions onto the exact corners of img, searching at most
// radius pixels away.
type Refiner interface {
	RefineCorners(img *image.Gray, pts []r2.Point, radius int) ([]r2.Point, error)
}

// MonoProblem is the input of a single camera solve.
type MonoProblem struct {
	Model        CameraModel
	Size         image.Point
	ObjectPoints [][]r3.Vector
	ImagePoints  [][]r2.Point
	Flags        SolverFlags
	FisheyeFlags FisheyeFlags
}

// MonoSolution is the output of a single camera solve. Rotations are axis-angle vectors, one per
// view, taking board points into the camera frame together with Translations.
type MonoSolution struct {
	K                 [9]float64
	D                 []float64
	Rotations         []r3.Vector
	Translations      []r3.Vector
	ReprojectionError float64
}

// StereoProblem is the input of a stereo extrinsics solve. Intrinsics are held fixed.
type StereoProblem struct {
	Model        CameraModel
	Size         image.Point
	ObjectPoints [][]r3.Vector
	LeftPoints   [][]r2.Point
	RightPoints  [][]r2.Point
	LeftK        [9]float64
	LeftD        []float64
	RightK       [9]float64
	RightD       []float64
}

// StereoSolution holds the rotation R (row-major) and translation T taking points from the left
// camera frame to the right one.
type StereoSolution struct {
	R                 [9]float64
	T                 r3.Vector
	ReprojectionError float64
}

// A Solver estimates camera parameters from matched board and image points.
type Solver interface {
	SolveMono(ctx context.Context, problem MonoProblem) (*MonoSolution, error)
	SolveStereo(ctx context.Context, problem StereoProblem) (*StereoSolution, error)
}
