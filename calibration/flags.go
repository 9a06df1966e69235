package calibration

// OpenCV calibration flag values, shared by every solver implementation.
const (
	calibUseIntrinsicGuess    = 1
	calibFixAspectRatio       = 2
	calibFixPrincipalPoint    = 4
	calibZeroTangentDist      = 8
	calibFixFocalLength       = 16
	calibFixK1                = 32
	calibFixK2                = 64
	calibFixK3                = 128
	calibFixK4                = 2048
	calibFixK5                = 4096
	calibFixK6                = 8192
	calibRationalModel        = 16384
	calibFixS1S2S3S4          = 65536
	calibFixTangentDist       = 2097152
	calibFixTauxTauy          = 524288
	fisheyeRecomputeExtrinsic = 2
	fisheyeCheckCond          = 4
	fisheyeFixSkew            = 8
	fisheyeFixK1              = 16
	fisheyeFixPrincipalPoint  = 512
)

// SolverFlags configures the pinhole solve.
type SolverFlags struct {
	FixPrincipalPoint bool `json:"fix_principal_point"`
	FixAspectRatio    bool `json:"fix_aspect_ratio"`
	ZeroTangentDist   bool `json:"zero_tangent_dist"`
	// KCoefficients is the number of radial coefficients to estimate, 0 to 6. More than 3 selects
	// the rational model.
	KCoefficients int `json:"k_coefficients"`
}

// DefaultSolverFlags estimates two radial coefficients.
func DefaultSolverFlags() SolverFlags {
	return SolverFlags{KCoefficients: 2}
}

// RationalModel reports whether the solve uses the eight coefficient rational model.
func (f SolverFlags) RationalModel() bool {
	return f.KCoefficients > 3
}

// DistortionCount is the number of distortion coefficients the solve reports.
func (f SolverFlags) DistortionCount() int {
	if f.RationalModel() {
		return 8
	}
	return 5
}

// OpenCV returns the flags as an OpenCV calibrateCamera bit set.
func (f SolverFlags) OpenCV() int {
	var flags int
	if f.FixPrincipalPoint {
		flags |= calibFixPrincipalPoint
	}
	if f.FixAspectRatio {
		flags |= calibFixAspectRatio
	}
	if f.ZeroTangentDist {
		flags |= calibZeroTangentDist
	}
	if f.RationalModel() {
		flags |= calibRationalModel
	}
	fixK := []int{calibFixK1, calibFixK2, calibFixK3, calibFixK4, calibFixK5, calibFixK6}
	for i := max(f.KCoefficients, 0); i < len(fixK); i++ {
		flags |= fixK[i]
	}
	return flags
}

// FixedIntrinsicsOpenCV returns flags that keep the given intrinsics and distortion and only
// estimate the board poses.
func FixedIntrinsicsOpenCV(distortionCount int) int {
	flags := calibUseIntrinsicGuess | calibFixFocalLength | calibFixPrincipalPoint | calibFixAspectRatio |
		calibFixTangentDist | calibFixK1 | calibFixK2 | calibFixK3 | calibFixS1S2S3S4 | calibFixTauxTauy
	if distortionCount > 5 {
		flags |= calibRationalModel | calibFixK4 | calibFixK5 | calibFixK6
	}
	return flags
}

// FisheyeFlags configures the fisheye solve.
type FisheyeFlags struct {
	RecomputeExtrinsic bool `json:"recompute_extrinsic"`
	FixSkew            bool `json:"fix_skew"`
	CheckCond          bool `json:"check_cond"`
	FixPrincipalPoint  bool `json:"fix_principal_point"`
	// KCoefficients is the number of fisheye coefficients to estimate, 0 to 4.
	KCoefficients int `json:"k_coefficients"`
}

// DefaultFisheyeFlags estimates all four coefficients and recomputes extrinsics.
func DefaultFisheyeFlags() FisheyeFlags {
	return FisheyeFlags{RecomputeExtrinsic: true, FixSkew: true, KCoefficients: 4}
}

// OpenCV returns the flags as an OpenCV fisheye::calibrate bit set.
func (f FisheyeFlags) OpenCV() int {
	var flags int
	if f.RecomputeExtrinsic {
		flags |= fisheyeRecomputeExtrinsic
	}
	if f.FixSkew {
		flags |= fisheyeFixSkew
	}
	if f.CheckCond {
		flags |= fisheyeCheckCond
	}
	if f.FixPrincipalPoint {
		flags |= fisheyeFixPrincipalPoint
	}
	for i := max(f.KCoefficients, 0); i < 4; i++ {
		flags |= fisheyeFixK1 << i
	}
	return flags
}
