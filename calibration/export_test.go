package calibration

import (
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/camcal/rimage/transform"
)

func testCameraInfo() CameraInfo {
	return CameraInfo{
		Name:            "narrow_stereo/left",
		Width:           640,
		Height:          480,
		Model:           CameraModelPinhole,
		DistortionModel: transform.PlumbBobDistortionType,
		K:               [9]float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
		D:               []float64{-0.1, 0.01, 0, 0, 0},
		R:               identity9,
		P:               [12]float64{490, 0, 321, 0, 0, 490, 241, 0, 0, 0, 1, 0},
	}
}

func TestCameraInfoOST(t *testing.T) {
	ci := testCameraInfo()
	ost, err := ci.OST()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ost, test.ShouldEqual, strings.Join([]string{
		"# oST version 5.0 parameters",
		"",
		"",
		"[image]",
		"",
		"width",
		"640",
		"",
		"height",
		"480",
		"",
		"[narrow_stereo/left]",
		"",
		"camera matrix",
		"500.000000 0.000000 320.000000",
		"0.000000 500.000000 240.000000",
		"0.000000 0.000000 1.000000",
		"",
		"distortion",
		"-0.100000 0.010000 0.000000 0.000000 0.000000",
		"",
		"rectification",
		"1.000000 0.000000 0.000000",
		"0.000000 1.000000 0.000000",
		"0.000000 0.000000 1.000000",
		"",
		"projection",
		"490.000000 0.000000 321.000000 0.000000",
		"0.000000 490.000000 241.000000 0.000000",
		"0.000000 0.000000 1.000000 0.000000",
		"",
	}, "\n"))
	test.That(t, len(ost), test.ShouldBeLessThan, maxOSTBytes)
}

func TestCameraInfoOSTTooLarge(t *testing.T) {
	ci := testCameraInfo()
	ci.Name = strings.Repeat("camera", 40)
	_, err := ci.OST()
	test.That(t, err, test.ShouldWrap, ErrOSTTooLarge)

	ci = testCameraInfo()
	ci.D = []float64{-1234.5, 1234.5, -1234.5, 1234.5, -1234.5, 1234.5, -1234.5, 1234.5}
	ci.K = [9]float64{123456.5, 0, 123456.5, 0, 123456.5, 123456.5, 0, 0, 1}
	ci.P = [12]float64{123456.5, 0, 123456.5, 0, 0, 123456.5, 123456.5, 0, 0, 0, 1, 0}
	_, err = ci.OST()
	test.That(t, err, test.ShouldWrap, ErrOSTTooLarge)
}

func TestStereoOST(t *testing.T) {
	left := testCameraInfo()
	right := testCameraInfo()
	right.Name = "narrow_stereo/right"
	right.P[3] = -49
	sr := StereoResult{Left: left, Right: right, R: identity9, T: r3.Vector{X: -0.1}}

	ost, err := sr.OST()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, strings.Count(ost, "# oST version 5.0 parameters"), test.ShouldEqual, 2)
	test.That(t, strings.Index(ost, "[narrow_stereo/left]"), test.ShouldBeLessThan, strings.Index(ost, "[narrow_stereo/right]"))
	test.That(t, ost, test.ShouldContainSubstring, "490.000000 0.000000 321.000000 -49.000000")
}

func TestCameraInfoYAMLRoundTrip(t *testing.T) {
	ci := testCameraInfo()
	data, err := ci.YAML()
	test.That(t, err, test.ShouldBeNil)
	text := string(data)
	test.That(t, text, test.ShouldContainSubstring, "image_width: 640")
	test.That(t, text, test.ShouldContainSubstring, "camera_name: narrow_stereo/left")
	test.That(t, text, test.ShouldContainSubstring, "distortion_model: plumb_bob")
	test.That(t, text, test.ShouldContainSubstring, "data: [500, 0, 320, 0, 500, 240, 0, 0, 1]")

	parsed, err := ParseCameraInfoYAML(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, *parsed, test.ShouldResemble, ci)

	fisheye := testCameraInfo()
	fisheye.Model = CameraModelFisheye
	fisheye.DistortionModel = transform.EquidistantDistortionType
	fisheye.D = []float64{0.1, 0.01, 0.001, 0.0001}
	data, err = fisheye.YAML()
	test.That(t, err, test.ShouldBeNil)
	parsed, err = ParseCameraInfoYAML(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parsed.Model, test.ShouldEqual, CameraModelFisheye)
}

func TestParseCameraInfoYAMLErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
	}{
		{"not yaml", "{"},
		{"no size", "image_width: 0\nimage_height: 480\n"},
		{"short camera matrix", `image_width: 640
image_height: 480
camera_matrix: {rows: 3, cols: 3, data: [1, 2, 3]}
`},
		{"unknown distortion model", `image_width: 640
image_height: 480
camera_matrix: {rows: 3, cols: 3, data: [1, 0, 0, 0, 1, 0, 0, 0, 1]}
distortion_model: magic
distortion_coefficients: {rows: 1, cols: 1, data: [0]}
rectification_matrix: {rows: 3, cols: 3, data: [1, 0, 0, 0, 1, 0, 0, 0, 1]}
projection_matrix: {rows: 3, cols: 4, data: [1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0]}
`},
		{"zero focal length", `image_width: 640
image_height: 480
camera_matrix: {rows: 3, cols: 3, data: [0, 0, 320, 0, 500, 240, 0, 0, 1]}
distortion_model: plumb_bob
distortion_coefficients: {rows: 1, cols: 5, data: [0, 0, 0, 0, 0]}
rectification_matrix: {rows: 3, cols: 3, data: [1, 0, 0, 0, 1, 0, 0, 0, 1]}
projection_matrix: {rows: 3, cols: 4, data: [500, 0, 320, 0, 0, 500, 240, 0, 0, 0, 1, 0]}
`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCameraInfoYAML([]byte(tc.doc))
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}
