package transform

import "math"

// KannalaBrandt is the equidistant fisheye model:
//
//	θ = atan(r), θ_d = θ * (1 + k1*θ² + k2*θ⁴ + k3*θ⁶ + k4*θ⁸), (x_d, y_d) = (θ_d / r) * (x, y).
type KannalaBrandt struct {
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	K4 float64 `json:"k4"`
}

// NewKannalaBrandt takes in a slice of floats (k1, k2, k3, k4).
func NewKannalaBrandt(inp []float64) (*KannalaBrandt, error) {
	params, err := padParameters(inp, 4)
	if err != nil {
		return nil, err
	}
	return &KannalaBrandt{params[0], params[1], params[2], params[3]}, nil
}

// CheckValid checks if the fields for KannalaBrandt have valid inputs.
func (kb *KannalaBrandt) CheckValid() error {
	if kb == nil {
		return InvalidDistortionError("KannalaBrandt shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (kb *KannalaBrandt) ModelType() DistortionType {
	return EquidistantDistortionType
}

// Parameters returns the coefficients k1..k4.
func (kb *KannalaBrandt) Parameters() []float64 {
	if kb == nil {
		return []float64{}
	}
	return []float64{kb.K1, kb.K2, kb.K3, kb.K4}
}

func (kb *KannalaBrandt) thetaD(theta float64) float64 {
	t2 := theta * theta
	return theta * (1 + t2*(kb.K1+t2*(kb.K2+t2*(kb.K3+t2*kb.K4))))
}

// Transform distorts a normalized point.
func (kb *KannalaBrandt) Transform(x, y float64) (float64, float64) {
	if kb == nil {
		return x, y
	}
	r := math.Hypot(x, y)
	if r < 1e-12 {
		return x, y
	}
	scale := kb.thetaD(math.Atan(r)) / r
	return x * scale, y * scale
}

// Undistort inverts Transform by solving θ_d(θ) = r_d with Newton's method.
func (kb *KannalaBrandt) Undistort(x, y float64) (float64, float64) {
	if kb == nil {
		return x, y
	}
	thetaD := math.Hypot(x, y)
	// Points beyond 90 degrees cannot be projected back onto the image plane.
	thetaD = math.Min(math.Max(-math.Pi/2, thetaD), math.Pi/2)
	if thetaD < 1e-12 {
		return x, y
	}

	const (
		maxIterations = 20
		tolerance     = 1e-10
	)
	theta := thetaD
	for i := 0; i < maxIterations; i++ {
		t2 := theta * theta
		t4 := t2 * t2
		t6 := t4 * t2
		t8 := t6 * t2
		deriv := 1 + 3*kb.K1*t2 + 5*kb.K2*t4 + 7*kb.K3*t6 + 9*kb.K4*t8
		if deriv == 0 {
			break
		}
		delta := (kb.thetaD(theta) - thetaD) / deriv
		theta -= delta
		if math.Abs(delta) < tolerance {
			break
		}
	}

	scale := math.Tan(theta) / thetaD
	return x * scale, y * scale
}
