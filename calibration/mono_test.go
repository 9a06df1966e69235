package calibration_test

import (
	"bytes"
	"context"
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/calibration/fake"
	"go.viam.com/camcal/logging"
)

func chessboardConfig() calibration.Config {
	return calibration.DefaultConfig(calibration.BoardConfig{Pattern: "chessboard", Cols: 8, Rows: 6, Dim: 0.108})
}

func frame(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 77
	}
	return img
}

func vga() *image.Gray {
	return frame(640, 480)
}

// diverseViews are board placements far apart in pose space.
var diverseViews = []fake.View{
	{Origin: r2.Point{X: 20, Y: 20}, Spacing: 30},
	{Origin: r2.Point{X: 400, Y: 300}, Spacing: 30},
	{Origin: r2.Point{X: 200, Y: 150}, Spacing: 45},
	{Origin: r2.Point{X: 60, Y: 250}, Spacing: 25, Shear: 10},
}

func newMono(
	t *testing.T,
	cfg calibration.Config,
	script ...fake.Detection,
) (*calibration.MonoCalibrator, *fake.Solver) {
	t.Helper()
	solver := fake.NewSolver(500, 0.1)
	mc, err := calibration.NewMonoCalibrator(cfg, fake.NewDetector(script...), solver, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return mc, solver
}

func TestMonoAcquisition(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)

	logger, logs := logging.NewObservedTestLogger(t)
	detector := fake.NewDetector(
		fake.Found(diverseViews[0].Corners(board)),
		fake.Found(diverseViews[0].Corners(board)),
		fake.Found(diverseViews[1].Corners(board)),
		fake.NotFound(),
		fake.Found(diverseViews[2].Corners(board)),
	)
	mc, err := calibration.NewMonoCalibrator(cfg, detector, fake.NewSolver(500, 0), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateAcquiring)

	var added []bool
	for i := 0; i < 5; i++ {
		res, err := mc.ProcessFrame(vga())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Rectified, test.ShouldBeNil)
		added = append(added, res.Added)
	}
	test.That(t, added, test.ShouldResemble, []bool{true, false, true, false, true})
	test.That(t, detector.Calls(), test.ShouldEqual, 5)

	samples := mc.Samples()
	test.That(t, samples, test.ShouldHaveLength, 3)
	test.That(t, samples[0].Frames, test.ShouldHaveLength, 1)
	test.That(t, samples[0].Right, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("added sample").Len(), test.ShouldEqual, 3)

	coverage := mc.Coverage()
	test.That(t, coverage.SampleCount, test.ShouldEqual, 3)
	test.That(t, coverage.Progress[0], test.ShouldBeGreaterThan, 0.9)
	test.That(t, coverage.Ready, test.ShouldBeFalse)
	test.That(t, mc.FrameSize(), test.ShouldResemble, image.Pt(640, 480))
}

func TestMonoMotionGate(t *testing.T) {
	cfg := chessboardConfig()
	cfg.MaxChessboardSpeed = 2
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)

	mc, _ := newMono(t, cfg,
		fake.Found(diverseViews[0].Corners(board)),
		fake.Found(diverseViews[1].Corners(board)),
		fake.Found(diverseViews[1].Corners(board)),
	)
	var added []bool
	for i := 0; i < 3; i++ {
		res, err := mc.ProcessFrame(vga())
		test.That(t, err, test.ShouldBeNil)
		added = append(added, res.Added)
	}
	// the board jumped between the first two frames and then held still
	test.That(t, added, test.ShouldResemble, []bool{true, false, true})
}

func TestMonoFrameSizeChange(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	mc, _ := newMono(t, cfg,
		fake.Found(diverseViews[0].Corners(board)),
		fake.Found(diverseViews[1].Corners(board)),
	)
	_, err = mc.ProcessFrame(vga())
	test.That(t, err, test.ShouldBeNil)
	_, err = mc.ProcessFrame(frame(800, 600))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, mc.Samples(), test.ShouldHaveLength, 1)
}

func TestMonoSolveWithoutSamples(t *testing.T) {
	mc, solver := newMono(t, chessboardConfig())
	_, err := mc.Solve(context.Background())
	test.That(t, err, test.ShouldWrap, calibration.ErrNoUsableSamples)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateAcquiring)
	test.That(t, solver.MonoProblems, test.ShouldBeEmpty)

	_, err = mc.Result()
	test.That(t, err, test.ShouldWrap, calibration.ErrNotCalibrated)
	test.That(t, mc.SetAlpha(0.5), test.ShouldWrap, calibration.ErrNotCalibrated)
	_, err = mc.ArchiveContents()
	test.That(t, err, test.ShouldWrap, calibration.ErrNotCalibrated)
}

func acquireAll(t *testing.T, mc *calibration.MonoCalibrator, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		res, err := mc.ProcessFrame(vga())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Added, test.ShouldBeTrue)
	}
}

func TestMonoSolve(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	var script []fake.Detection
	for _, v := range diverseViews {
		script = append(script, fake.Found(v.Corners(board)))
	}
	script = append(script, fake.Found(diverseViews[2].Corners(board)))
	mc, solver := newMono(t, cfg, script...)
	acquireAll(t, mc, len(diverseViews))

	info, err := mc.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateCalibrated)
	test.That(t, info.Name, test.ShouldEqual, calibration.DefaultMonoName)
	test.That(t, info.Width, test.ShouldEqual, 640)
	test.That(t, info.Height, test.ShouldEqual, 480)
	test.That(t, info.D, test.ShouldHaveLength, 5)
	test.That(t, info.R, test.ShouldResemble, [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	// no distortion, so the projection matches the camera matrix
	test.That(t, info.P[0], test.ShouldAlmostEqual, 500, 1e-6)
	test.That(t, info.P[2], test.ShouldAlmostEqual, 320, 1e-6)
	test.That(t, info.P[6], test.ShouldAlmostEqual, 240, 1e-6)

	test.That(t, solver.MonoProblems, test.ShouldHaveLength, 1)
	problem := solver.MonoProblems[0]
	test.That(t, problem.ObjectPoints, test.ShouldHaveLength, len(diverseViews))
	test.That(t, problem.ObjectPoints[0], test.ShouldResemble, board.ObjectPoints(false))
	test.That(t, problem.Size, test.ShouldResemble, image.Pt(640, 480))

	// once calibrated, frames are rectified and measured rather than sampled
	res, err := mc.ProcessFrame(vga())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Added, test.ShouldBeFalse)
	test.That(t, res.Rectified, test.ShouldNotBeNil)
	test.That(t, res.Rectified.GrayAt(320, 240).Y, test.ShouldEqual, uint8(77))
	test.That(t, res.HasLinearError, test.ShouldBeTrue)
	test.That(t, res.LinearError, test.ShouldAlmostEqual, 0, 1e-6)
	test.That(t, mc.Samples(), test.ShouldHaveLength, len(diverseViews))

	undistorted, err := mc.UndistortPoints([]r2.Point{{X: 100, Y: 100}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, undistorted[0].X, test.ShouldAlmostEqual, 100, 1e-6)

	var ost bytes.Buffer
	test.That(t, info.Report(&ost), test.ShouldBeNil)
	test.That(t, ost.String(), test.ShouldContainSubstring, "K = ")
}

func TestMonoSolveFailureKeepsState(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	mc, solver := newMono(t, cfg, fake.Found(diverseViews[0].Corners(board)))
	acquireAll(t, mc, 1)

	solver.SolveMonoFunc = func(context.Context, calibration.MonoProblem) (*calibration.MonoSolution, error) {
		return nil, context.Canceled
	}
	_, err = mc.Solve(context.Background())
	test.That(t, err, test.ShouldWrap, context.Canceled)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateAcquiring)
	test.That(t, mc.Samples(), test.ShouldHaveLength, 1)
}

func TestMonoSetAlpha(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	mc, solver := newMono(t, cfg, fake.Found(diverseViews[0].Corners(board)))
	solver.SolveMonoFunc = func(_ context.Context, p calibration.MonoProblem) (*calibration.MonoSolution, error) {
		return &calibration.MonoSolution{
			K: [9]float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
			D: []float64{-0.2, 0.05, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		}, nil
	}
	acquireAll(t, mc, 1)
	info, err := mc.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	// solver output is trimmed to the model's coefficients
	test.That(t, info.D, test.ShouldResemble, []float64{-0.2, 0.05, 0, 0, 0})
	cropped := info.P[0]

	test.That(t, mc.SetAlpha(1), test.ShouldBeNil)
	full, err := mc.Result()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, full.P[0], test.ShouldBeLessThan, cropped)
	test.That(t, full.K, test.ShouldResemble, info.K)

	test.That(t, mc.SetAlpha(1.5), test.ShouldNotBeNil)
}

func TestMonoFisheye(t *testing.T) {
	cfg := chessboardConfig()
	cfg.CameraModel = "fisheye"
	cfg.Alpha = 1
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	mc, solver := newMono(t, cfg, fake.Found(diverseViews[0].Corners(board)))
	acquireAll(t, mc, 1)

	info, err := mc.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Model, test.ShouldEqual, calibration.CameraModelFisheye)
	test.That(t, string(info.DistortionModel), test.ShouldEqual, "equidistant")
	test.That(t, info.D, test.ShouldHaveLength, 4)
	// the fisheye zoom divides the focal length by 1+alpha
	test.That(t, info.P[0], test.ShouldAlmostEqual, 250)
	test.That(t, solver.MonoProblems[0].FisheyeFlags, test.ShouldResemble, calibration.DefaultFisheyeFlags())
}

func TestMonoChArUco(t *testing.T) {
	cfg := calibration.DefaultConfig(calibration.BoardConfig{
		Pattern: "charuco", Cols: 5, Rows: 7, Dim: 0.04, MarkerSize: 0.03, Dictionary: "4x4_50",
	})
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	partial := diverseViews[2].PartialCorners(board, []int{0, 1, 2, 4, 5, 6, 8, 9, 10})

	mc, solver := newMono(t, cfg, fake.Found(partial))
	acquireAll(t, mc, 1)
	_, err = mc.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solver.MonoProblems[0].ObjectPoints[0], test.ShouldResemble, board.ObjectPointsFor(partial.IDs))

	cfg.CameraModel = "fisheye"
	mc, _ = newMono(t, cfg, fake.Found(partial))
	acquireAll(t, mc, 1)
	_, err = mc.Solve(context.Background())
	test.That(t, err, test.ShouldWrap, calibration.ErrUnsupportedConfiguration)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateAcquiring)
}

func TestMonoFromResult(t *testing.T) {
	mc, _ := newMono(t, chessboardConfig())
	info := calibration.CameraInfo{
		Name:            "loaded",
		Width:           640,
		Height:          480,
		DistortionModel: "plumb_bob",
		K:               [9]float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
		D:               []float64{0, 0, 0, 0, 0},
		R:               [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}
	test.That(t, mc.FromResult(info), test.ShouldBeNil)
	test.That(t, mc.State(), test.ShouldEqual, calibration.StateCalibrated)
	loaded, err := mc.Result()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, loaded.Name, test.ShouldEqual, "loaded")
	test.That(t, loaded.P[0], test.ShouldAlmostEqual, 500, 1e-6)

	rectified, err := mc.Remap(vga())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rectified.Bounds().Size(), test.ShouldResemble, image.Pt(640, 480))
	_, err = mc.Remap(frame(320, 240))
	test.That(t, err, test.ShouldNotBeNil)

	info.Width = 0
	test.That(t, mc.FromResult(info), test.ShouldNotBeNil)
}

func TestMonoLinearErrorFromImage(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	bent := diverseViews[2].Corners(board)
	bent.Points[3].Y += 4

	mc, _ := newMono(t, cfg, fake.Found(bent), fake.NotFound())
	_, _, err = mc.LinearErrorFromImage(vga())
	test.That(t, err, test.ShouldWrap, calibration.ErrNotCalibrated)

	test.That(t, mc.FromResult(calibration.CameraInfo{
		Width: 640, Height: 480, DistortionModel: "plumb_bob",
		K: [9]float64{500, 0, 320, 0, 500, 240, 0, 0, 1},
		R: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
	}), test.ShouldBeNil)
	e, ok, err := mc.LinearErrorFromImage(vga())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, e, test.ShouldBeGreaterThan, 0.1)

	_, ok, err = mc.LinearErrorFromImage(vga())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestMonoSnapshotRestore(t *testing.T) {
	cfg := chessboardConfig()
	board, err := cfg.Board.Board()
	test.That(t, err, test.ShouldBeNil)
	mc, _ := newMono(t, cfg,
		fake.Found(diverseViews[0].Corners(board)),
		fake.Found(diverseViews[1].Corners(board)),
	)
	acquireAll(t, mc, 2)

	var buf bytes.Buffer
	snap := mc.Snapshot()
	test.That(t, snap.SessionID, test.ShouldEqual, mc.SessionID())
	test.That(t, snap.Write(&buf), test.ShouldBeNil)
	restored, err := calibration.ReadSnapshot(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, restored.Samples, test.ShouldHaveLength, 2)

	resumed, solver := newMono(t, cfg)
	test.That(t, resumed.RestoreSamples(restored), test.ShouldBeNil)
	samples := resumed.Samples()
	test.That(t, samples, test.ShouldHaveLength, 2)
	test.That(t, samples[1].Left.Points, test.ShouldResemble, diverseViews[1].Corners(board).Points)
	test.That(t, samples[1].Params, test.ShouldResemble, mc.Samples()[1].Params)
	test.That(t, resumed.FrameSize(), test.ShouldResemble, image.Pt(640, 480))

	_, err = resumed.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solver.MonoProblems[0].ImagePoints, test.ShouldHaveLength, 2)

	other := chessboardConfig()
	other.Board.Cols = 9
	mismatched, _ := newMono(t, other)
	test.That(t, mismatched.RestoreSamples(restored), test.ShouldNotBeNil)

	stereo, err := calibration.NewStereoCalibrator(cfg, fake.NewDetector(), fake.NewSolver(500, 0.1), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stereo.RestoreSamples(restored), test.ShouldNotBeNil)
}

func TestReadSnapshotVersion(t *testing.T) {
	_, err := calibration.ReadSnapshot(bytes.NewBufferString(`{"version": 7}`))
	test.That(t, err, test.ShouldWrap, calibration.ErrSnapshotVersion)
	_, err = calibration.ReadSnapshot(bytes.NewBufferString(`not json`))
	test.That(t, err, test.ShouldNotBeNil)
}
