// Package fake provides a scripted board detector and a deterministic solver for exercising
// calibration sessions without OpenCV.
package fake

import (
	"image"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"go.viam.com/camcal/calibration"
)

// Detection is one scripted detector answer.
type Detection struct {
	Corners calibration.CornerSet
	Found   bool
	Err     error
}

// Detector answers detection requests from DetectFunc or, when it is nil, from Script in order.
// Once the script runs out every frame is reported as having no board.
type Detector struct {
	mu sync.Mutex

	Script     []Detection
	DetectFunc func(img *image.Gray, board calibration.Board) (calibration.CornerSet, bool, error)
	RefineFunc func(img *image.Gray, pts []r2.Point, radius int) ([]r2.Point, error)

	calls int
}

// NewDetector returns a detector that plays back the given detections.
func NewDetector(script ...Detection) *Detector {
	return &Detector{Script: script}
}

// Found is a scripted detection of the given corners.
func Found(cs calibration.CornerSet) Detection {
	return Detection{Corners: cs, Found: true}
}

// NotFound is a scripted detection with no board.
func NotFound() Detection {
	return Detection{}
}

// Detect returns the next scripted answer.
func (d *Detector) Detect(img *image.Gray, board calibration.Board) (calibration.CornerSet, bool, error) {
	if d.DetectFunc != nil {
		return d.DetectFunc(img, board)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.calls >= len(d.Script) {
		d.calls++
		return calibration.CornerSet{}, false, nil
	}
	next := d.Script[d.calls]
	d.calls++
	return next.Corners, next.Found, next.Err
}

// RefineCorners calls RefineFunc or returns the points unchanged.
func (d *Detector) RefineCorners(img *image.Gray, pts []r2.Point, radius int) ([]r2.Point, error) {
	if d.RefineFunc != nil {
		return d.RefineFunc(img, pts, radius)
	}
	return append([]r2.Point(nil), pts...), nil
}

// Calls returns how many detections were requested.
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// View places a synthetic board in a frame: the first corner lands on Origin, columns step by
// Spacing to the right, rows step by Spacing down and are pushed right by Shear per row.
type View struct {
	Origin  r2.Point
	Spacing float64
	Shear   float64
}

// Corners returns the full corner grid of the board in detector order. ChArUco corners carry
// their ids.
func (v View) Corners(board calibration.Board) calibration.CornerSet {
	cols, rows := board.Grid()
	cs := calibration.CornerSet{Points: make([]r2.Point, 0, cols*rows)}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cs.Points = append(cs.Points, r2.Point{
				X: v.Origin.X + float64(c)*v.Spacing + float64(r)*v.Shear,
				Y: v.Origin.Y + float64(r)*v.Spacing,
			})
		}
	}
	if board.Pattern.PartialViews() {
		cs.IDs = lo.Range(cols * rows)
	}
	return cs
}

// PartialCorners returns only the corners with the given ids.
func (v View) PartialCorners(board calibration.Board, ids []int) calibration.CornerSet {
	full := v.Corners(board)
	return calibration.CornerSet{
		Points: lo.Map(ids, func(id, _ int) r2.Point { return full.Points[id] }),
		IDs:    append([]int(nil), ids...),
	}
}
