package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
)

// StereoFromViewPoses estimates the left to right extrinsics of a rig from the board pose seen by
// each camera in the same views. Per view relative poses are averaged.
func StereoFromViewPoses(leftR, leftT, rightR, rightT []r3.Vector) (*StereoSolution, error) {
	n := len(leftR)
	if n == 0 || len(leftT) != n || len(rightR) != n || len(rightT) != n {
		return nil, errors.Wrapf(ErrNoUsableSamples, "mismatched view poses (%d, %d, %d, %d)",
			len(leftR), len(leftT), len(rightR), len(rightT))
	}
	rotations := make([]*mat.Dense, n)
	var translation r3.Vector
	for i := 0; i < n; i++ {
		r, t := transform.RelativePose(
			transform.RodriguesToMatrix(leftR[i]), leftT[i],
			transform.RodriguesToMatrix(rightR[i]), rightT[i])
		rotations[i] = r
		translation = translation.Add(t)
	}
	r, err := transform.AverageRotations(rotations)
	if err != nil {
		return nil, err
	}
	sol := &StereoSolution{T: translation.Mul(1 / float64(n))}
	copy(sol.R[:], r.RawMatrix().Data)
	return sol, nil
}
