package calibration

import (
	"testing"

	"go.viam.com/test"

	"go.viam.com/camcal/rimage"
)

func chessboardConfig() Config {
	return DefaultConfig(BoardConfig{Pattern: "chessboard", Cols: 8, Rows: 6, Dim: 0.108})
}

func TestConfigValidate(t *testing.T) {
	cfg := chessboardConfig()
	test.That(t, cfg.Validate("calibration"), test.ShouldBeNil)

	for _, tc := range []struct {
		name   string
		modify func(*Config)
		substr string
	}{
		{"no pattern", func(c *Config) { c.Board.Pattern = "" }, "pattern"},
		{"no cols", func(c *Config) { c.Board.Cols = 0 }, "cols"},
		{"no rows", func(c *Config) { c.Board.Rows = 0 }, "rows"},
		{"no dim", func(c *Config) { c.Board.Dim = 0 }, "dim"},
		{"bad pattern", func(c *Config) { c.Board.Pattern = "dots" }, "dots"},
		{"charuco without marker", func(c *Config) { c.Board.Pattern = "charuco" }, "marker_size"},
		{"bad camera model", func(c *Config) { c.CameraModel = "orthographic" }, "orthographic"},
		{"negative novelty", func(c *Config) { c.NoveltyThreshold = -1 }, "novelty_threshold"},
		{"alpha too large", func(c *Config) { c.Alpha = 1.5 }, "alpha"},
		{"too many coefficients", func(c *Config) { c.Flags.KCoefficients = 7 }, "k_coefficients"},
		{"too many fisheye coefficients", func(c *Config) { c.FisheyeFlags.KCoefficients = 5 }, "k_coefficients"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := chessboardConfig()
			tc.modify(&cfg)
			err := cfg.Validate("calibration")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.substr)
		})
	}

	charuco := DefaultConfig(BoardConfig{Pattern: "charuco", Cols: 5, Rows: 7, Dim: 0.04, MarkerSize: 0.03, Dictionary: "4x4_50"})
	test.That(t, charuco.Validate("calibration"), test.ShouldBeNil)
}

func TestNewSessionDefaults(t *testing.T) {
	s, err := newSession(chessboardConfig(), false, "narrow_stereo/left")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.name, test.ShouldEqual, "narrow_stereo/left")
	test.That(t, s.targetPixels, test.ShouldEqual, rimage.VGAPixels)
	test.That(t, s.diversity.NoveltyThreshold, test.ShouldEqual, DefaultNoveltyThreshold)
	test.That(t, s.diversity.ReadySampleCount, test.ShouldEqual, DefaultReadySampleCount)
	test.That(t, s.diversity.MaxMotion, test.ShouldEqual, 0)
	test.That(t, s.board.Cols, test.ShouldEqual, 8)

	cfg := chessboardConfig()
	cfg.Name = "wide"
	cfg.NoveltyThreshold = 0.3
	cfg.ReadySampleCount = 10
	cfg.MaxChessboardSpeed = 4
	cfg.CameraModel = "fisheye"
	s, err = newSession(cfg, true, "narrow_stereo")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.name, test.ShouldEqual, "wide")
	test.That(t, s.model, test.ShouldEqual, CameraModelFisheye)
	test.That(t, s.diversity.NoveltyThreshold, test.ShouldEqual, 0.3)
	test.That(t, s.diversity.ReadySampleCount, test.ShouldEqual, 10)
	test.That(t, s.diversity.MaxMotion, test.ShouldEqual, 4)
	test.That(t, s.diversity.ParamRanges[0], test.ShouldEqual, 0.4)
}
