package transform

// BrownConrady is the plumb_bob lens model, with coefficients in OpenCV order.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
	RadialK3     float64 `json:"rk3"`
}

// NewBrownConrady takes in a slice of floats (k1, k2, p1, p2, k3) that will be passed into the
// struct in order. Missing trailing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	params, err := padParameters(inp, 5)
	if err != nil {
		return nil, err
	}
	return &BrownConrady{params[0], params[1], params[2], params[3], params[4]}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return PlumbBobDistortionType
}

// Parameters returns the coefficients as k1, k2, p1, p2, k3.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// Transform distorts a normalized point:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + p1*(r² + 2*y_u²) + 2*p2*x_u*y_u
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	return distortRational(x, y, bc.RadialK1, bc.RadialK2, bc.RadialK3, 0, 0, 0, bc.TangentialP1, bc.TangentialP2)
}

// Undistort inverts Transform iteratively.
func (bc *BrownConrady) Undistort(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	return invertDistortion(bc.Transform, x, y)
}

// RationalPolynomial is the eight coefficient rational_polynomial lens model.
type RationalPolynomial struct {
	BrownConrady
	RadialK4 float64 `json:"rk4"`
	RadialK5 float64 `json:"rk5"`
	RadialK6 float64 `json:"rk6"`
}

// NewRationalPolynomial takes (k1, k2, p1, p2, k3, k4, k5, k6).
func NewRationalPolynomial(inp []float64) (*RationalPolynomial, error) {
	params, err := padParameters(inp, 8)
	if err != nil {
		return nil, err
	}
	return &RationalPolynomial{
		BrownConrady: BrownConrady{params[0], params[1], params[2], params[3], params[4]},
		RadialK4:     params[5],
		RadialK5:     params[6],
		RadialK6:     params[7],
	}, nil
}

// CheckValid checks if the fields for RationalPolynomial have valid inputs.
func (rp *RationalPolynomial) CheckValid() error {
	if rp == nil {
		return InvalidDistortionError("RationalPolynomial shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (rp *RationalPolynomial) ModelType() DistortionType {
	return RationalPolynomialDistortionType
}

// Parameters returns the coefficients as k1, k2, p1, p2, k3, k4, k5, k6.
func (rp *RationalPolynomial) Parameters() []float64 {
	if rp == nil {
		return []float64{}
	}
	return append(rp.BrownConrady.Parameters(), rp.RadialK4, rp.RadialK5, rp.RadialK6)
}

// Transform distorts a normalized point; the radial factor is
// (1 + k1*r² + k2*r⁴ + k3*r⁶) / (1 + k4*r² + k5*r⁴ + k6*r⁶).
func (rp *RationalPolynomial) Transform(x, y float64) (float64, float64) {
	if rp == nil {
		return x, y
	}
	return distortRational(x, y, rp.RadialK1, rp.RadialK2, rp.RadialK3, rp.RadialK4, rp.RadialK5, rp.RadialK6,
		rp.TangentialP1, rp.TangentialP2)
}

// Undistort inverts Transform iteratively.
func (rp *RationalPolynomial) Undistort(x, y float64) (float64, float64) {
	if rp == nil {
		return x, y
	}
	return invertDistortion(rp.Transform, x, y)
}

func distortRational(x, y, k1, k2, k3, k4, k5, k6, p1, p2 float64) (float64, float64) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := (1 + k1*r2 + k2*r4 + k3*r6) / (1 + k4*r2 + k5*r4 + k6*r6)
	xd := x*radial + 2*p1*x*y + p2*(r2+2*x*x)
	yd := y*radial + p1*(r2+2*y*y) + 2*p2*x*y
	return xd, yd
}
