//go:build !no_cgo

// Package native implements board detection, corner refinement and camera solving on top of
// OpenCV through gocv.
package native

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/logging"
)

const (
	subPixIterations = 30
	subPixEpsilon    = 0.1
)

// Detector finds chessboards with OpenCV and refines their corners to sub-pixel accuracy.
type Detector struct {
	logger logging.Logger
}

// NewDetector returns an OpenCV backed detector.
func NewDetector(logger logging.Logger) *Detector {
	return &Detector{logger: logger}
}

// grayMat wraps the pixels of img in a single channel 8-bit Mat. The caller must close it.
func grayMat(img *image.Gray) (gocv.Mat, error) {
	b := img.Bounds()
	if img.Stride != b.Dx() || b.Min != (image.Point{}) {
		compact := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(compact.Pix[y*compact.Stride:(y+1)*compact.Stride], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		img = compact
	}
	m, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8U, img.Pix)
	if err != nil {
		return gocv.Mat{}, errors.Wrap(err, "wrapping frame")
	}
	return m, nil
}

// Detect finds the inner corners of a chessboard. Circle grids and ChArUco boards are not
// available through gocv.
func (d *Detector) Detect(img *image.Gray, board calibration.Board) (calibration.CornerSet, bool, error) {
	if board.Pattern != calibration.PatternChessboard {
		return calibration.CornerSet{}, false, errors.Wrapf(calibration.ErrUnsupportedConfiguration,
			"%v detection", board.Pattern)
	}
	m, err := grayMat(img)
	if err != nil {
		return calibration.CornerSet{}, false, err
	}
	defer m.Close()

	corners := gocv.NewMat()
	defer corners.Close()
	cols, rows := board.Grid()
	flags := gocv.CalibCBAdaptiveThresh | gocv.CalibCBNormalizeImage | gocv.CalibCBFastCheck
	if !gocv.FindChessboardCorners(m, image.Pt(cols, rows), &corners, flags) {
		return calibration.CornerSet{}, false, nil
	}

	pts := make([]r2.Point, corners.Rows())
	for i := range pts {
		v := corners.GetVecfAt(i, 0)
		pts[i] = r2.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return calibration.CornerSet{Points: pts}, true, nil
}

// RefineCorners moves each point onto the nearest corner within radius pixels.
func (d *Detector) RefineCorners(img *image.Gray, pts []r2.Point, radius int) ([]r2.Point, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	m, err := grayMat(img)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	corners := gocv.NewMatWithSize(len(pts), 1, gocv.MatTypeCV32FC2)
	defer corners.Close()
	for i, p := range pts {
		corners.SetFloatAt(i, 0, float32(p.X))
		corners.SetFloatAt(i, 1, float32(p.Y))
	}
	criteria := gocv.NewTermCriteria(gocv.Count|gocv.EPS, subPixIterations, subPixEpsilon)
	gocv.CornerSubPix(m, &corners, image.Pt(radius, radius), image.Pt(-1, -1), criteria)

	out := make([]r2.Point, len(pts))
	for i := range out {
		v := corners.GetVecfAt(i, 0)
		out[i] = r2.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return out, nil
}
