package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// RelativePose returns the rotation and translation taking points from the left camera frame to
// the right one, given each camera's pose with respect to the same target.
func RelativePose(leftR *mat.Dense, leftT r3.Vector, rightR *mat.Dense, rightT r3.Vector) (*mat.Dense, r3.Vector) {
	r := mat.NewDense(3, 3, nil)
	r.Mul(rightR, leftR.T())
	return r, rightT.Sub(mulVec(r, leftT))
}

// AverageRotations returns the rotation closest, in the chordal sense, to the mean of the inputs.
func AverageRotations(rotations []*mat.Dense) (*mat.Dense, error) {
	if len(rotations) == 0 {
		return nil, errors.New("no rotations to average")
	}
	sum := mat.NewDense(3, 3, nil)
	for _, r := range rotations {
		sum.Add(sum, r)
	}
	decomposition := performSVD(sum)
	if decomposition == nil {
		return nil, errors.New("failed to factorize rotation sum")
	}

	out := mat.NewDense(3, 3, nil)
	out.Mul(decomposition.U, decomposition.VT)
	if mat.Det(out) < 0 {
		// Flip the axis of the smallest singular value to stay in SO(3).
		fix := eye(3)
		fix.Set(2, 2, -1)
		var tmp mat.Dense
		tmp.Mul(decomposition.U, fix)
		out.Mul(&tmp, decomposition.VT)
	}
	return out, nil
}

func mulVec(m mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// matsSVD stores the matrices from SVD decomposition.
type matsSVD struct {
	U  *mat.Dense
	V  *mat.Dense
	VT *mat.Dense
	S  *mat.Dense
}

// performSVD performs SVD on inputMatrix and returns matrices U, Sigma and V from the decomposition.
func performSVD(inputMatrix *mat.Dense) *matsSVD {
	var svd mat.SVD
	if ok := svd.Factorize(inputMatrix, mat.SVDFull); !ok {
		return nil
	}

	u, v, sigma, vt := &mat.Dense{}, &mat.Dense{}, &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)
	vt.CloneFrom(v.T())
	singularValues := svd.Values(nil)
	sigma.CloneFrom(mat.NewDiagDense(len(singularValues), singularValues))

	return &matsSVD{u, v, vt, sigma}
}
