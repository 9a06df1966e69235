package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"
)

// rect is an axis aligned rectangle in floating point coordinates.
type rect struct {
	X, Y, W, H float64
}

// undistortedRectangles samples a 9x9 grid over the image, undistorts it with the lens model and
// returns the largest rectangle inside the valid region and the smallest one containing it.
func undistortedRectangles(lm LensModel, width, height int, normalized bool) (inner, outer rect) {
	const n = 9
	grid := make([]r2.Point, 0, n*n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			grid = append(grid, r2.Point{
				X: float64(x) * float64(width-1) / (n - 1),
				Y: float64(y) * float64(height-1) / (n - 1),
			})
		}
	}
	var pts []r2.Point
	if normalized {
		pts = lm.undistortNormalizedPoints(grid)
	} else {
		pts = lm.UndistortPoints(grid)
	}

	oX0, oY0 := math.Inf(1), math.Inf(1)
	oX1, oY1 := math.Inf(-1), math.Inf(-1)
	iX0, iY0 := math.Inf(-1), math.Inf(-1)
	iX1, iY1 := math.Inf(1), math.Inf(1)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			p := pts[y*n+x]
			oX0, oX1 = math.Min(oX0, p.X), math.Max(oX1, p.X)
			oY0, oY1 = math.Min(oY0, p.Y), math.Max(oY1, p.Y)
			if x == 0 {
				iX0 = math.Max(iX0, p.X)
			}
			if x == n-1 {
				iX1 = math.Min(iX1, p.X)
			}
			if y == 0 {
				iY0 = math.Max(iY0, p.Y)
			}
			if y == n-1 {
				iY1 = math.Min(iY1, p.Y)
			}
		}
	}
	return rect{iX0, iY0, iX1 - iX0, iY1 - iY0}, rect{oX0, oY0, oX1 - oX0, oY1 - oY0}
}

// OptimalNewCameraMatrix returns the camera matrix of the undistorted image for a free scaling
// parameter alpha: 0 keeps only valid pixels, 1 keeps every source pixel.
func OptimalNewCameraMatrix(k *mat.Dense, distortion Distorter, width, height int, alpha float64) *mat.Dense {
	alpha = math.Min(math.Max(alpha, 0), 1)
	lm := LensModel{K: k, Distortion: distortion}
	inner, outer := undistortedRectangles(lm, width, height, true)

	w, h := float64(width-1), float64(height-1)
	fx0, fy0 := w/inner.W, h/inner.H
	cx0, cy0 := -fx0*inner.X, -fy0*inner.Y
	fx1, fy1 := w/outer.W, h/outer.H
	cx1, cy1 := -fx1*outer.X, -fy1*outer.Y

	ncm := mat.NewDense(3, 3, nil)
	ncm.Set(0, 0, fx0*(1-alpha)+fx1*alpha)
	ncm.Set(1, 1, fy0*(1-alpha)+fy1*alpha)
	ncm.Set(0, 2, cx0*(1-alpha)+cx1*alpha)
	ncm.Set(1, 2, cy0*(1-alpha)+cy1*alpha)
	ncm.Set(2, 2, 1)
	return ncm
}

// FisheyeNewCameraMatrix zooms out a fisheye camera matrix by dividing its focal lengths by 1+alpha.
func FisheyeNewCameraMatrix(k *mat.Dense, alpha float64) *mat.Dense {
	ncm := mat.DenseCopyOf(k)
	ncm.Set(0, 0, k.At(0, 0)/(1+alpha))
	ncm.Set(1, 1, k.At(1, 1)/(1+alpha))
	return ncm
}
