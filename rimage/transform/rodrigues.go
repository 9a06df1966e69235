package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// getCrossProductMatFromPoint returns the cross product with point p matrix.
func getCrossProductMatFromPoint(p r3.Vector) *mat.Dense {
	cross := mat.NewDense(3, 3, nil)
	cross.Set(0, 1, -p.Z)
	cross.Set(0, 2, p.Y)
	cross.Set(1, 0, p.Z)
	cross.Set(1, 2, -p.X)
	cross.Set(2, 0, -p.Y)
	cross.Set(2, 1, p.X)
	return cross
}

// RodriguesToMatrix converts an axis-angle rotation vector to a 3x3 rotation matrix.
func RodriguesToMatrix(rvec r3.Vector) *mat.Dense {
	theta := rvec.Norm()
	if theta < 1e-12 {
		return eye(3)
	}
	k := rvec.Mul(1 / theta)
	c, s := math.Cos(theta), math.Sin(theta)

	kkT := mat.NewDense(3, 3, []float64{
		k.X * k.X, k.X * k.Y, k.X * k.Z,
		k.Y * k.X, k.Y * k.Y, k.Y * k.Z,
		k.Z * k.X, k.Z * k.Y, k.Z * k.Z,
	})
	r := eye(3)
	r.Scale(c, r)
	kkT.Scale(1-c, kkT)
	r.Add(r, kkT)
	cross := getCrossProductMatFromPoint(k)
	cross.Scale(s, cross)
	r.Add(r, cross)
	return r
}

// MatrixToRodrigues converts a 3x3 rotation matrix to its axis-angle rotation vector.
func MatrixToRodrigues(r mat.Matrix) r3.Vector {
	v := r3.Vector{
		X: r.At(2, 1) - r.At(1, 2),
		Y: r.At(0, 2) - r.At(2, 0),
		Z: r.At(1, 0) - r.At(0, 1),
	}
	s := v.Norm() / 2
	c := (r.At(0, 0) + r.At(1, 1) + r.At(2, 2) - 1) / 2
	c = math.Max(-1, math.Min(1, c))

	if s >= 1e-5 {
		theta := math.Acos(c)
		return v.Mul(theta / (2 * s))
	}
	if c > 0 {
		return r3.Vector{}
	}

	// theta is pi: recover the axis from the symmetric part (R + I) / 2 = k kᵀ.
	rx := math.Sqrt(math.Max((r.At(0, 0)+1)/2, 0))
	ry := math.Sqrt(math.Max((r.At(1, 1)+1)/2, 0))
	rz := math.Sqrt(math.Max((r.At(2, 2)+1)/2, 0))
	if r.At(0, 1) < 0 {
		ry = -ry
	}
	if r.At(0, 2) < 0 {
		rz = -rz
	}
	if math.Abs(rx) < math.Abs(ry) && math.Abs(rx) < math.Abs(rz) && (r.At(1, 2) > 0) != (ry*rz > 0) {
		rz = -rz
	}
	axis := r3.Vector{X: rx, Y: ry, Z: rz}
	return axis.Mul(math.Pi / axis.Norm())
}
