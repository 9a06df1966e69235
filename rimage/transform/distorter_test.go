package transform

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(PlumbBobDistortionType, []float64{0.1, 0.2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, PlumbBobDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{0.1, 0.2, 0, 0, 0})

	d, err = NewDistorter(RationalPolynomialDistortionType, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Parameters(), test.ShouldResemble, []float64{1, 2, 3, 4, 5, 6, 7, 8})

	d, err = NewDistorter(EquidistantDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.Parameters(), test.ShouldHaveLength, 4)

	_, err = NewDistorter(EquidistantDistortionType, []float64{1, 2, 3, 4, 5})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "too long")

	_, err = NewDistorter("fov", nil)
	test.That(t, err, test.ShouldNotBeNil)

	var bc *BrownConrady
	test.That(t, bc.CheckValid(), test.ShouldNotBeNil)
	x, y := bc.Transform(0.3, 0.4)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, 0.4)
}

func TestDistortionRoundTrip(t *testing.T) {
	bc, err := NewBrownConrady([]float64{-0.25, 0.07, 0.001, -0.002, 0.01})
	test.That(t, err, test.ShouldBeNil)
	rp, err := NewRationalPolynomial([]float64{0.3, -0.1, 0.001, 0.002, 0.01, 0.2, -0.05, 0.01})
	test.That(t, err, test.ShouldBeNil)
	kb, err := NewKannalaBrandt([]float64{0.05, -0.01, 0.002, -0.001})
	test.That(t, err, test.ShouldBeNil)

	for _, d := range []Distorter{bc, rp, kb} {
		t.Run(string(d.ModelType()), func(t *testing.T) {
			for _, p := range [][2]float64{{0, 0}, {0.3, -0.2}, {-0.5, 0.4}, {0.1, 0.6}} {
				xd, yd := d.Transform(p[0], p[1])
				xu, yu := d.Undistort(xd, yd)
				test.That(t, xu, test.ShouldAlmostEqual, p[0], 1e-7)
				test.That(t, yu, test.ShouldAlmostEqual, p[1], 1e-7)
			}
		})
	}
}

func TestBrownConradyTransform(t *testing.T) {
	bc, err := NewBrownConrady([]float64{-0.2})
	test.That(t, err, test.ShouldBeNil)
	// r² = 0.25, so the radial factor is 1 - 0.2*0.25.
	x, y := bc.Transform(0.3, 0.4)
	test.That(t, x, test.ShouldAlmostEqual, 0.3*0.95)
	test.That(t, y, test.ShouldAlmostEqual, 0.4*0.95)
}

func TestKannalaBrandtTransform(t *testing.T) {
	kb, err := NewKannalaBrandt(nil)
	test.That(t, err, test.ShouldBeNil)
	// with no coefficients the radius becomes the angle from the optical axis.
	x, y := kb.Transform(1, 0)
	test.That(t, x, test.ShouldAlmostEqual, math.Pi/4)
	test.That(t, y, test.ShouldEqual, 0.0)
	x, y = kb.Undistort(math.Pi/4, 0)
	test.That(t, x, test.ShouldAlmostEqual, 1)
	test.That(t, y, test.ShouldEqual, 0.0)
}
