package calibration

import (
	"testing"

	"go.viam.com/test"
)

func TestSolverFlagsOpenCV(t *testing.T) {
	for _, tc := range []struct {
		name     string
		flags    SolverFlags
		expected int
		count    int
	}{
		{"default", DefaultSolverFlags(), 128 + 2048 + 4096 + 8192, 5},
		{"all radial terms", SolverFlags{KCoefficients: 6}, 16384, 8},
		{"four radial terms", SolverFlags{KCoefficients: 4}, 16384 + 4096 + 8192, 8},
		{"three radial terms", SolverFlags{KCoefficients: 3}, 2048 + 4096 + 8192, 5},
		{"fixed everything", SolverFlags{FixPrincipalPoint: true, FixAspectRatio: true, ZeroTangentDist: true}, 4 + 2 + 8 + 32 + 64 + 128 + 2048 + 4096 + 8192, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, tc.flags.OpenCV(), test.ShouldEqual, tc.expected)
			test.That(t, tc.flags.DistortionCount(), test.ShouldEqual, tc.count)
		})
	}
}

func TestFixedIntrinsicsOpenCV(t *testing.T) {
	plain := FixedIntrinsicsOpenCV(5)
	test.That(t, plain&calibUseIntrinsicGuess, test.ShouldNotEqual, 0)
	test.That(t, plain&calibFixFocalLength, test.ShouldNotEqual, 0)
	test.That(t, plain&calibRationalModel, test.ShouldEqual, 0)

	rational := FixedIntrinsicsOpenCV(8)
	test.That(t, rational&calibRationalModel, test.ShouldNotEqual, 0)
	test.That(t, rational&calibFixK6, test.ShouldNotEqual, 0)
}

func TestFisheyeFlagsOpenCV(t *testing.T) {
	test.That(t, DefaultFisheyeFlags().OpenCV(), test.ShouldEqual, 2+8)
	test.That(t, FisheyeFlags{KCoefficients: 2}.OpenCV(), test.ShouldEqual, 64+128)
	test.That(t, FisheyeFlags{CheckCond: true, FixPrincipalPoint: true}.OpenCV(), test.ShouldEqual, 4+512+16+32+64+128)
}
