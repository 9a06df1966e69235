package transform

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LensModel bundles what is needed to move points between a distorted camera image and a
// rectified one: the camera matrix, its distortion, a rectifying rotation and a new projection.
// A nil Rectification is the identity and a nil Projection reuses K.
type LensModel struct {
	K             *mat.Dense
	Distortion    Distorter
	Rectification *mat.Dense
	Projection    *mat.Dense
}

// projection3x3 returns the left 3x3 block of the projection, or K when there is none.
func (lm LensModel) projection3x3() *mat.Dense {
	if lm.Projection == nil {
		return mat.DenseCopyOf(lm.K)
	}
	return mat.DenseCopyOf(lm.Projection.Slice(0, 3, 0, 3))
}

func (lm LensModel) rectification() *mat.Dense {
	if lm.Rectification == nil {
		return eye(3)
	}
	return lm.Rectification
}

func (lm LensModel) undistortNormalized(p r2.Point) (float64, float64) {
	x := (p.X - lm.K.At(0, 2)) / lm.K.At(0, 0)
	y := (p.Y - lm.K.At(1, 2)) / lm.K.At(1, 1)
	if lm.Distortion != nil {
		x, y = lm.Distortion.Undistort(x, y)
	}
	return x, y
}

// UndistortPoints removes lens distortion from pixel positions, rotates them by the
// rectification and reprojects them with the projection matrix.
func (lm LensModel) UndistortPoints(pts []r2.Point) []r2.Point {
	var rr mat.Dense
	rr.Mul(lm.projection3x3(), lm.rectification())

	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		x, y := lm.undistortNormalized(p)
		out[i] = applyHomography(&rr, x, y)
	}
	return out
}

// undistortNormalizedPoints undistorts and rotates points, keeping them in normalized coordinates.
func (lm LensModel) undistortNormalizedPoints(pts []r2.Point) []r2.Point {
	rot := lm.rectification()
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		x, y := lm.undistortNormalized(p)
		out[i] = applyHomography(rot, x, y)
	}
	return out
}

func applyHomography(h mat.Matrix, x, y float64) r2.Point {
	xw := h.At(0, 0)*x + h.At(0, 1)*y + h.At(0, 2)
	yw := h.At(1, 0)*x + h.At(1, 1)*y + h.At(1, 2)
	w := h.At(2, 0)*x + h.At(2, 1)*y + h.At(2, 2)
	if w == 0 {
		w = 1
	}
	return r2.Point{X: xw / w, Y: yw / w}
}

// RectifyMap holds, for every destination pixel, the source pixel it samples from.
type RectifyMap struct {
	Width  int
	Height int
	MapX   []float32
	MapY   []float32
}

// NewRectifyMap computes the undistort/rectify lookup for a width x height image.
func (lm LensModel) NewRectifyMap(width, height int) (*RectifyMap, error) {
	var pr mat.Dense
	pr.Mul(lm.projection3x3(), lm.rectification())
	var inv mat.Dense
	if err := inv.Inverse(&pr); err != nil {
		return nil, errors.Wrap(err, "projection and rectification are not invertible")
	}

	fx, fy := lm.K.At(0, 0), lm.K.At(1, 1)
	cx, cy := lm.K.At(0, 2), lm.K.At(1, 2)
	rm := &RectifyMap{
		Width:  width,
		Height: height,
		MapX:   make([]float32, width*height),
		MapY:   make([]float32, width*height),
	}
	for v := 0; v < height; v++ {
		for u := 0; u < width; u++ {
			p := applyHomography(&inv, float64(u), float64(v))
			x, y := p.X, p.Y
			if lm.Distortion != nil {
				x, y = lm.Distortion.Transform(x, y)
			}
			idx := v*width + u
			rm.MapX[idx] = float32(fx*x + cx)
			rm.MapY[idx] = float32(fy*y + cy)
		}
	}
	return rm, nil
}

// Remap samples src through the map with bilinear interpolation. Pixels mapping outside the
// source are black.
func (rm *RectifyMap) Remap(src *image.Gray) (*image.Gray, error) {
	bounds := src.Bounds()
	if bounds.Dx() != rm.Width || bounds.Dy() != rm.Height {
		return nil, errors.Errorf("image size (%d,%d) does not match rectify map (%d,%d)",
			bounds.Dx(), bounds.Dy(), rm.Width, rm.Height)
	}
	dst := image.NewGray(image.Rect(0, 0, rm.Width, rm.Height))
	for v := 0; v < rm.Height; v++ {
		for u := 0; u < rm.Width; u++ {
			idx := v*rm.Width + u
			dst.Pix[v*dst.Stride+u] = bilinearGray(src, float64(rm.MapX[idx]), float64(rm.MapY[idx]))
		}
	}
	return dst, nil
}

func bilinearGray(src *image.Gray, x, y float64) uint8 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return 0
	}
	x0, y0 := int(math.Floor(x)), int(math.Floor(y))
	x1, y1 := min(x0+1, w-1), min(y0+1, h-1)
	fx, fy := x-float64(x0), y-float64(y0)

	at := func(px, py int) float64 {
		return float64(src.Pix[src.PixOffset(bounds.Min.X+px, bounds.Min.Y+py)])
	}
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bottom := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return uint8(math.Round(top*(1-fy) + bottom*fy))
}
