package calibration_test

import (
	"context"
	"image"
	"testing"

	"go.viam.com/test"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/calibration/fake"
	"go.viam.com/camcal/logging"
)

func TestCalibrateMonoFromImages(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	full := diverseViews[0].Corners(board)
	detector := fake.NewDetector(
		fake.Found(full),
		fake.Found(full),
		fake.NotFound(),
		fake.Found(calibration.CornerSet{Points: full.Points[:5]}),
	)
	solver := fake.NewSolver(500, 0)
	images := []*image.Gray{vga(), vga(), vga(), vga()}

	mc, err := calibration.CalibrateMonoFromImages(
		context.Background(), cfg, images, detector, solver, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateCalibrated)
	// repeated views are all kept
	test.That(t, mc.Samples(), test.ShouldHaveLength, 2)
	test.That(t, solver.MonoProblems[0].ImagePoints, test.ShouldHaveLength, 2)
	test.That(t, mc.Coverage().SampleCount, test.ShouldEqual, 2)
}

func TestCalibrateMonoFromImagesNoBoard(t *testing.T) {
	_, err := calibration.CalibrateMonoFromImages(
		context.Background(), chessboardConfig(), []*image.Gray{vga()},
		fake.NewDetector(), fake.NewSolver(500, 0), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldWrap, calibration.ErrNoUsableSamples)
}

func TestCalibrateStereoFromImages(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	l, r := rigPair(board, -0.3, -0.2, 2)
	solver := fake.NewSolver(500, 0.1)

	sc, err := calibration.CalibrateStereoFromImages(
		context.Background(), cfg,
		[]*image.Gray{vga(), vga()}, []*image.Gray{vga(), vga()},
		fake.NewDetector(l, r, l, fake.NotFound()), solver, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sc.Samples(), test.ShouldHaveLength, 1)
	result, err := sc.Result()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, result.Right.P[3], test.ShouldBeLessThan, 0)

	_, err = calibration.CalibrateStereoFromImages(
		context.Background(), cfg, []*image.Gray{vga()}, nil,
		fake.NewDetector(), solver, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
