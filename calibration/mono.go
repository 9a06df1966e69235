package calibration

import (
	"context"
	"image"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camcal/logging"
)

// DefaultMonoName is the camera name used when a mono session has none configured.
const DefaultMonoName = "narrow_stereo/left"

// MonoFrameResult is what processing a single frame produced.
type MonoFrameResult struct {
	Detection Detection
	// Params is set when the board was found and could be measured.
	Params *PoseParams
	Added  bool
	// Rectified is the undistorted frame once the session is calibrated.
	Rectified      *image.Gray
	LinearError    float64
	HasLinearError bool
	Coverage       CoverageState
}

// MonoCalibrator collects board views from a single camera and solves for its calibration.
type MonoCalibrator struct {
	mu sync.Mutex

	id       uuid.UUID
	s        session
	detector Detector
	refiner  Refiner
	solver   Solver
	logger   logging.Logger

	tracker *Tracker
	last    *CornerSet
	size    image.Point
	state   State
	camera  *calibratedCamera
}

// NewMonoCalibrator returns a calibrator in the acquiring state. When the detector can also
// refine corners it is used for refinement.
func NewMonoCalibrator(cfg Config, detector Detector, solver Solver, logger logging.Logger) (*MonoCalibrator, error) {
	if detector == nil {
		return nil, errors.New("a detector is required")
	}
	s, err := newSession(cfg, false, DefaultMonoName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("calibration")
	}
	refiner, _ := detector.(Refiner)
	return &MonoCalibrator{
		id:       uuid.New(),
		s:        s,
		detector: detector,
		refiner:  refiner,
		solver:   solver,
		logger:   logger,
		tracker:  NewTracker(s.diversity),
	}, nil
}

// SessionID identifies this session in snapshots.
func (mc *MonoCalibrator) SessionID() uuid.UUID {
	return mc.id
}

// Board returns the board being detected.
func (mc *MonoCalibrator) Board() Board {
	return mc.s.board
}

// State returns the current phase of the session.
func (mc *MonoCalibrator) State() State {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.state
}

// Coverage returns the current coverage of the collected samples.
func (mc *MonoCalibrator) Coverage() CoverageState {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.tracker.Coverage()
}

// Samples returns a copy of the collected samples.
func (mc *MonoCalibrator) Samples() []Sample {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.tracker.Samples()
}

// FrameSize returns the size of the frames in this session, or zero before the first sample.
func (mc *MonoCalibrator) FrameSize() image.Point {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.size
}

// ProcessFrame detects the board in a frame. While acquiring, a sufficiently novel and still view
// is recorded as a sample. Once calibrated, the frame is rectified and the straightness of the
// detected rows is measured instead.
func (mc *MonoCalibrator) ProcessFrame(img *image.Gray) (*MonoFrameResult, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	det, err := detectFrame(img, mc.s.board, mc.detector, mc.refiner, mc.s.targetPixels)
	if err != nil {
		return nil, err
	}
	res := &MonoFrameResult{Detection: det}
	size := img.Bounds().Size()

	if mc.state == StateCalibrated {
		rectified, err := mc.camera.remap(img)
		if err != nil {
			return nil, err
		}
		res.Rectified = rectified
		if det.Found {
			undistorted := mc.camera.undistort(det.Corners.Points)
			res.LinearError, res.HasLinearError = LinearError(undistorted, det.Corners.IDs, mc.s.board)
		}
	} else if det.Found {
		if err := checkFrameSize(size, mc.size); err != nil {
			return nil, err
		}
		params, err := ComputePoseParams(det.Corners, mc.s.board, size)
		switch {
		case errors.Is(err, ErrCornerCountMismatch):
			mc.logger.Debugw("skipping detection", "error", err)
		case err != nil:
			return nil, err
		default:
			res.Params = &params
			if mc.tracker.IsGoodSample(params, det.Corners, mc.last) {
				mc.size = size
				mc.tracker.Record(Sample{
					Params: params,
					Left:   det.Corners,
					Frames: []*image.Gray{cloneGray(img)},
				})
				res.Added = true
				mc.logger.Infow("added sample",
					"count", mc.tracker.Len(),
					"x", params.X(), "y", params.Y(), "size", params.Size(), "skew", params.Skew())
			}
		}
	}

	if det.Found {
		corners := det.Corners
		mc.last = &corners
	} else {
		mc.last = nil
	}
	res.Coverage = mc.tracker.Coverage()
	return res, nil
}

// Solve calibrates the camera from every collected sample. On failure the session and any
// previous calibration are left untouched.
func (mc *MonoCalibrator) Solve(ctx context.Context) (*CameraInfo, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.solver == nil {
		return nil, errors.New("no solver configured")
	}
	samples := mc.tracker.Samples()
	if len(samples) == 0 {
		return nil, ErrNoUsableSamples
	}
	mc.logger.CDebugw(ctx, "solving mono calibration", "samples", len(samples), "size", mc.size)
	info, sol, err := solveMonoLeg(ctx, mc.s, mc.solver, mc.s.name, mc.size,
		lo.Map(samples, func(s Sample, _ int) CornerSet { return s.Left }))
	if err != nil {
		return nil, err
	}
	mc.logger.Infow("solved mono calibration",
		"samples", len(samples), "reprojection_error", sol.ReprojectionError, "model", mc.s.model)

	if err := mc.applyCalibration(info, mc.s.alpha); err != nil {
		return nil, err
	}
	out := mc.camera.info
	return &out, nil
}

func (mc *MonoCalibrator) applyCalibration(info CameraInfo, alpha float64) error {
	p, err := monoProjection(info, alpha)
	if err != nil {
		return err
	}
	info.P = p
	cam, err := newCalibratedCamera(info)
	if err != nil {
		return err
	}
	mc.camera = cam
	mc.state = StateCalibrated
	return nil
}

// SetAlpha recomputes the projection for a new zoom factor in [0,1]: 0 keeps only valid pixels,
// 1 keeps every source pixel.
func (mc *MonoCalibrator) SetAlpha(alpha float64) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return ErrNotCalibrated
	}
	if alpha < 0 || alpha > 1 {
		return errors.Errorf("alpha must be in [0,1], got %v", alpha)
	}
	return mc.applyCalibration(mc.camera.info, alpha)
}

// FromResult loads an existing calibration and switches to the calibrated state. The projection
// is recomputed with a zoom factor of 0.
func (mc *MonoCalibrator) FromResult(info CameraInfo) error {
	if info.Width <= 0 || info.Height <= 0 {
		return errors.Errorf("invalid calibration size %dx%d", info.Width, info.Height)
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if err := mc.applyCalibration(info, 0); err != nil {
		return err
	}
	mc.size = image.Pt(info.Width, info.Height)
	return nil
}

// Result returns the current calibration.
func (mc *MonoCalibrator) Result() (*CameraInfo, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}
	out := mc.camera.info
	return &out, nil
}

// UndistortPoints maps distorted pixel positions into the rectified image.
func (mc *MonoCalibrator) UndistortPoints(pts []r2.Point) ([]r2.Point, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}
	return mc.camera.undistort(pts), nil
}

// Remap undistorts a full frame.
func (mc *MonoCalibrator) Remap(img *image.Gray) (*image.Gray, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}
	return mc.camera.remap(img)
}

// LinearErrorFromImage detects the board in a frame and measures how straight its rows are after
// undistortion. The second result is false when no board is found.
func (mc *MonoCalibrator) LinearErrorFromImage(img *image.Gray) (float64, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return 0, false, ErrNotCalibrated
	}
	det, err := detectFrame(img, mc.s.board, mc.detector, mc.refiner, mc.s.targetPixels)
	if err != nil || !det.Found {
		return 0, false, err
	}
	e, ok := LinearError(mc.camera.undistort(det.Corners.Points), det.Corners.IDs, mc.s.board)
	return e, ok, nil
}

// Snapshot captures the collected samples so the session can be resumed later.
func (mc *MonoCalibrator) Snapshot() *Snapshot {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return newSnapshot(mc.id, false, mc.s.board, mc.size, mc.tracker.Samples())
}

// RestoreSamples replaces the collected samples with the ones in a snapshot. Frames are not part
// of a snapshot, so an archive written afterwards only holds frames captured since.
func (mc *MonoCalibrator) RestoreSamples(snap *Snapshot) error {
	if snap.Stereo {
		return errors.New("cannot restore a stereo snapshot into a mono session")
	}
	if err := snap.checkBoard(mc.s.board); err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.tracker = NewTracker(mc.s.diversity)
	for _, s := range snap.samples() {
		mc.tracker.Record(s)
	}
	mc.size = snap.Size()
	mc.last = nil
	return nil
}

// ArchiveContents returns what WriteArchive stores for this session.
func (mc *MonoCalibrator) ArchiveContents() (ArchiveContents, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.state != StateCalibrated {
		return ArchiveContents{}, ErrNotCalibrated
	}
	info := mc.camera.info
	return ArchiveContents{
		Left: lo.FilterMap(mc.tracker.Samples(), func(s Sample, _ int) (*image.Gray, bool) {
			return frameAt(s.Frames, 0), len(s.Frames) > 0
		}),
		Mono:     &info,
		Snapshot: newSnapshot(mc.id, false, mc.s.board, mc.size, mc.tracker.Samples()),
	}, nil
}

func frameAt(frames []*image.Gray, i int) *image.Gray {
	if i < len(frames) {
		return frames[i]
	}
	return nil
}
