package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StereoRectification holds the rectifying rotations and new projections of a stereo pair.
// P2 carries the baseline times the focal length in its fourth column.
type StereoRectification struct {
	R1, R2 *mat.Dense
	P1, P2 *mat.Dense
}

// StereoRectify computes a row aligned rectification for two cameras, where R and T take points
// from the first camera frame to the second. Principal points of both views are made equal.
// alpha in [0,1] scales between keeping only valid pixels and keeping all of them; a negative
// alpha leaves the focal length unscaled.
func StereoRectify(
	k1 *mat.Dense, d1 Distorter,
	k2 *mat.Dense, d2 Distorter,
	width, height int,
	r *mat.Dense, t r3.Vector,
	alpha float64,
) (*StereoRectification, error) {
	if width <= 1 || height <= 1 {
		return nil, errors.Errorf("invalid image size (%d,%d)", width, height)
	}
	if t.Norm() == 0 {
		return nil, errors.New("stereo baseline is zero")
	}

	// Rotate each camera half way so they share an orientation.
	om := MatrixToRodrigues(r).Mul(-0.5)
	rr := RodriguesToMatrix(om)
	tv := mulVec(rr, t)
	tArr := [3]float64{tv.X, tv.Y, tv.Z}

	idx := 1
	if math.Abs(tv.X) > math.Abs(tv.Y) {
		idx = 0
	}
	c := tArr[idx]
	var uu [3]float64
	uu[idx] = 1
	if c <= 0 {
		uu[idx] = -1
	}

	// Then rotate both about the optical axis so the baseline lines up with an image axis.
	ww := tv.Cross(r3.Vector{X: uu[0], Y: uu[1], Z: uu[2]})
	if nw := ww.Norm(); nw > 0 {
		ww = ww.Mul(math.Acos(math.Abs(c)/tv.Norm()) / nw)
	}
	wR := RodriguesToMatrix(ww)

	r1 := mat.NewDense(3, 3, nil)
	r1.Mul(wR, rr.T())
	r2m := mat.NewDense(3, 3, nil)
	r2m.Mul(wR, rr)
	tv = mulVec(r2m, t)
	tArr = [3]float64{tv.X, tv.Y, tv.Z}

	// Both views share the focal length along the axis orthogonal to the baseline.
	other := idx ^ 1
	fc := (k1.At(other, other) + k2.At(other, other)) / 2

	corners := []r2.Point{
		{X: 0, Y: 0},
		{X: float64(width - 1), Y: 0},
		{X: 0, Y: float64(height - 1)},
		{X: float64(width - 1), Y: float64(height - 1)},
	}
	fcOnly := mat.NewDense(3, 3, []float64{fc, 0, 0, 0, fc, 0, 0, 0, 1})
	var cc [2]r2.Point
	for i, cam := range []LensModel{
		{K: k1, Distortion: d1, Rectification: r1, Projection: fcOnly},
		{K: k2, Distortion: d2, Rectification: r2m, Projection: fcOnly},
	} {
		var avg r2.Point
		for _, p := range cam.UndistortPoints(corners) {
			avg = avg.Add(p)
		}
		avg = avg.Mul(1.0 / float64(len(corners)))
		cc[i] = r2.Point{X: float64(width-1)/2 - avg.X, Y: float64(height-1)/2 - avg.Y}
	}
	shared := cc[0].Add(cc[1]).Mul(0.5)
	cx, cy := shared.X, shared.Y

	p1 := mat.NewDense(3, 4, []float64{
		fc, 0, cx, 0,
		0, fc, cy, 0,
		0, 0, 1, 0,
	})
	p2 := mat.DenseCopyOf(p1)
	p2.Set(idx, 3, tArr[idx]*fc)

	s := 1.0
	if alpha >= 0 {
		alpha = math.Min(alpha, 1)
		inner1, outer1 := undistortedRectangles(
			LensModel{K: k1, Distortion: d1, Rectification: r1, Projection: p1}, width, height, false)
		inner2, outer2 := undistortedRectangles(
			LensModel{K: k2, Distortion: d2, Rectification: r2m, Projection: p2}, width, height, false)

		w, h := float64(width-1), float64(height-1)
		ratios := func(in rect) [4]float64 {
			return [4]float64{
				cx / (cx - in.X),
				cy / (cy - in.Y),
				(w - cx) / (in.X + in.W - cx),
				(h - cy) / (in.Y + in.H - cy),
			}
		}
		s0, s1 := math.Inf(-1), math.Inf(1)
		for _, in := range []rect{inner1, inner2} {
			for _, v := range ratios(in) {
				s0 = math.Max(s0, v)
			}
		}
		for _, out := range []rect{outer1, outer2} {
			for _, v := range ratios(out) {
				s1 = math.Min(s1, v)
			}
		}
		s = s0*(1-alpha) + s1*alpha
	}
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		return nil, errors.Errorf("degenerate rectification scale %v", s)
	}

	for _, p := range []*mat.Dense{p1, p2} {
		p.Set(0, 0, fc*s)
		p.Set(1, 1, fc*s)
	}
	p2.Set(idx, 3, p2.At(idx, 3)*s)

	return &StereoRectification{R1: r1, R2: r2m, P1: p1, P2: p2}, nil
}
