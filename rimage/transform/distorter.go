package transform

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model, as written in camera_info files.
type DistortionType string

const (
	// PlumbBobDistortionType is the five coefficient Brown-Conrady model (k1, k2, p1, p2, k3).
	PlumbBobDistortionType = DistortionType("plumb_bob")
	// RationalPolynomialDistortionType extends plumb_bob with the denominator terms k4, k5, k6.
	RationalPolynomialDistortionType = DistortionType("rational_polynomial")
	// EquidistantDistortionType is the Kannala-Brandt fisheye model (k1, k2, k3, k4).
	EquidistantDistortionType = DistortionType("equidistant")
)

// Distorter maps between undistorted and distorted normalized image coordinates.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	// Transform distorts a normalized point.
	Transform(x, y float64) (float64, float64)
	// Undistort inverts Transform.
	Undistort(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case PlumbBobDistortionType:
		return NewBrownConrady(parameters)
	case RationalPolynomialDistortionType:
		return NewRationalPolynomial(parameters)
	case EquidistantDistortionType:
		return NewKannalaBrandt(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// padParameters copies inp into a slice of length n, filling missing values with 0.
func padParameters(inp []float64, n int) ([]float64, error) {
	if len(inp) > n {
		return nil, errors.Errorf("list of parameters too long, expected max %d, got %d", n, len(inp))
	}
	out := make([]float64, n)
	copy(out, inp)
	return out, nil
}

// invertDistortion solves forward(xu, yu) = (xd, yd) with Newton-Raphson, starting from the
// distorted point. The Jacobian is taken by central differences so any forward model works.
func invertDistortion(forward func(x, y float64) (float64, float64), xd, yd float64) (float64, float64) {
	const (
		maxIterations = 20
		tolerance     = 1e-10
		step          = 1e-7
	)

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst := forward(xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		xp, yp := forward(xu+step, yu)
		xm, ym := forward(xu-step, yu)
		dxdDxu, dydDxu := (xp-xm)/(2*step), (yp-ym)/(2*step)
		xp, yp = forward(xu, yu+step)
		xm, ym = forward(xu, yu-step)
		dxdDyu, dydDyu := (xp-xm)/(2*step), (yp-ym)/(2*step)

		det := dxdDxu*dydDyu - dxdDyu*dydDxu
		if det == 0 {
			break
		}

		// [xu, yu] -= J^-1 * [errX, errY]
		xu -= (dydDyu*errX - dxdDyu*errY) / det
		yu -= (-dydDxu*errX + dxdDxu*errY) / det
	}

	return xu, yu
}
