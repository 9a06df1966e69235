package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// StereoCameraModel reprojects rectified left image pixels with disparity to 3D points in the
// left camera frame.
type StereoCameraModel struct {
	Q *mat.Dense
}

// NewStereoCameraModel builds the reprojection matrix from the rectified left and right 3x4
// projection matrices.
func NewStereoCameraModel(leftP, rightP *mat.Dense) (*StereoCameraModel, error) {
	fx := rightP.At(0, 0)
	if fx == 0 {
		return nil, errors.New("right projection has zero focal length")
	}
	baseline := -rightP.At(0, 3) / fx
	if baseline == 0 {
		return nil, errors.New("stereo baseline is zero")
	}

	cx, cy := leftP.At(0, 2), leftP.At(1, 2)
	rightCx := rightP.At(0, 2)
	q := mat.NewDense(4, 4, nil)
	q.Set(0, 0, 1)
	q.Set(0, 3, -cx)
	q.Set(1, 1, 1)
	q.Set(1, 3, -cy)
	q.Set(2, 3, leftP.At(0, 0))
	q.Set(3, 2, 1/baseline)
	q.Set(3, 3, -(cx-rightCx)/baseline)
	return &StereoCameraModel{Q: q}, nil
}

// Baseline returns the distance between the two camera centers.
func (m *StereoCameraModel) Baseline() float64 {
	return 1 / m.Q.At(3, 2)
}

// ProjectPixelTo3D returns the point seen at pixel (u,v) of the rectified left image with the
// given disparity. Zero disparity has no finite solution and yields an error.
func (m *StereoCameraModel) ProjectPixelTo3D(u, v, disparity float64) (r3.Vector, error) {
	in := mat.NewVecDense(4, []float64{u, v, disparity, 1})
	var out mat.VecDense
	out.MulVec(m.Q, in)
	w := out.AtVec(3)
	if w == 0 {
		return r3.Vector{}, errors.Errorf("pixel (%v,%v) at disparity %v is at infinity", u, v, disparity)
	}
	return r3.Vector{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: out.AtVec(2) / w}, nil
}
