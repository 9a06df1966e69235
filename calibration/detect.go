package calibration

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/camcal/rimage"
)

// borderPixels is how close to the frame edge a chessboard corner may be before the detection is
// discarded.
const borderPixels = 8

// Detection is the result of looking for the board in one frame.
type Detection struct {
	Found bool
	// Corners are in full resolution frame coordinates.
	Corners CornerSet
	// Display holds the corners in Downsampled coordinates.
	Display     CornerSet
	Downsampled *image.Gray
	XScale      float64
	YScale      float64
}

// RefineRadius returns the corner refinement search radius for a chessboard detection: half the
// smallest distance between adjacent corners, so the search cannot reach a neighbouring corner.
func RefineRadius(pts []r2.Point, cols int) int {
	d := rimage.MinAdjacentDistance(pts, cols)
	if math.IsInf(d, 0) || d <= 0 {
		return 1
	}
	return int(math.Ceil(d * 0.5))
}

// InsideBorder reports whether every point lies more than border pixels inside a frame of the
// given size.
func InsideBorder(pts []r2.Point, size image.Point, border float64) bool {
	for _, p := range pts {
		if p.X <= border || p.X >= float64(size.X)-border || p.Y <= border || p.Y >= float64(size.Y)-border {
			return false
		}
	}
	return true
}

// NormalizeChessboardOrientation reorders chessboard corners so they run from the top of the
// image to the bottom. Square boards whose last corner is not down and to the right of the first
// are reversed or turned by a quarter turn instead.
func NormalizeChessboardOrientation(pts []r2.Point, cols, rows int) []r2.Point {
	n := len(pts)
	if n == 0 || n != cols*rows {
		return pts
	}
	out := append([]r2.Point(nil), pts...)
	if cols != rows {
		if out[0].Y > out[n-1].Y {
			reverse(out)
		}
		return out
	}

	dir := out[n-1].Sub(out[0])
	right, down := dir.X >= 0, dir.Y >= 0
	switch {
	case right && down:
	case !right && !down:
		reverse(out)
	case right:
		// counter-clockwise quarter turn of the rows x cols grid
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				out[i*rows+j] = pts[j*cols+(cols-1-i)]
			}
		}
	default:
		// clockwise quarter turn
		for i := 0; i < cols; i++ {
			for j := 0; j < rows; j++ {
				out[i*rows+j] = pts[(rows-1-j)*cols+i]
			}
		}
	}
	return out
}

func reverse(pts []r2.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

// detectFrame finds the board in a frame. Chessboard detection runs on a frame shrunk to about
// targetPixels and the corners are scaled back up, then refined on the full frame when a refiner
// is available. Other patterns are detected on the full frame.
func detectFrame(img *image.Gray, board Board, detector Detector, refiner Refiner, targetPixels int) (Detection, error) {
	if img == nil {
		return Detection{}, errors.New("no frame")
	}
	ds := rimage.Downsample(img, targetPixels)
	det := Detection{Downsampled: ds.Image, XScale: ds.XScale, YScale: ds.YScale}
	cols, rows := board.Grid()

	if board.Pattern != PatternChessboard {
		corners, ok, err := detector.Detect(img, board)
		if err != nil || !ok {
			return det, err
		}
		det.Found = true
		det.Corners = corners
		det.Display = corners.Scaled(1/ds.XScale, 1/ds.YScale)
		return det, nil
	}

	small, ok, err := detector.Detect(ds.Image, board)
	if err != nil || !ok {
		return det, err
	}
	if !InsideBorder(small.Points, ds.Image.Bounds().Size(), borderPixels) {
		return det, nil
	}
	small.Points = NormalizeChessboardOrientation(small.Points, cols, rows)
	if refiner != nil {
		refined, err := refiner.RefineCorners(ds.Image, small.Points, RefineRadius(small.Points, cols))
		if err != nil {
			return det, errors.Wrap(err, "refining corners")
		}
		small.Points = refined
	}

	det.Found = true
	det.Display = small
	det.Corners = small
	if ds.Scale > 1 {
		det.Corners = small.Scaled(ds.XScale, ds.YScale)
		if refiner != nil {
			refined, err := refiner.RefineCorners(img, det.Corners.Points, int(math.Ceil(ds.Scale)))
			if err != nil {
				return det, errors.Wrap(err, "refining upscaled corners")
			}
			det.Corners.Points = refined
		}
	}
	return det, nil
}
