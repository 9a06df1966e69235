package calibration

import (
	"context"
	"image"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
	"go.viam.com/camcal/rimage/transform"
)

// DefaultStereoName is the rig name used when a stereo session has none configured. The cameras
// are named after it with /left and /right appended.
const DefaultStereoName = "narrow_stereo"

// StereoFrameResult is what processing a synchronized frame pair produced.
type StereoFrameResult struct {
	Left  Detection
	Right Detection
	// Params is measured on the left view when both views found the same number of corners.
	Params *PoseParams
	Added  bool

	LeftRectified    *image.Gray
	RightRectified   *image.Gray
	EpipolarError    float64
	HasEpipolarError bool
	Coverage         CoverageState
}

// StereoCalibrator collects synchronized board views from a camera pair and solves for both
// cameras and the rig geometry between them.
type StereoCalibrator struct {
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

	result      *StereoResult
	left, right *calibratedCamera
}

// NewStereoCalibrator returns a calibrator in the acquiring state.
func NewStereoCalibrator(cfg Config, detector Detector, solver Solver, logger logging.Logger) (*StereoCalibrator, error) {
	if detector == nil {
		return nil, errors.New("a detector is required")
	}
	s, err := newSession(cfg, true, DefaultStereoName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("calibration")
	}
	refiner, _ := detector.(Refiner)
	return &StereoCalibrator{
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
func (sc *StereoCalibrator) SessionID() uuid.UUID {
	return sc.id
}

// Board returns the board being detected.
func (sc *StereoCalibrator) Board() Board {
	return sc.s.board
}

// State returns the current phase of the session.
func (sc *StereoCalibrator) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// Coverage returns the current coverage of the collected samples.
func (sc *StereoCalibrator) Coverage() CoverageState {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.tracker.Coverage()
}

// Samples returns a copy of the collected samples.
func (sc *StereoCalibrator) Samples() []Sample {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.tracker.Samples()
}

func (sc *StereoCalibrator) detectPair(left, right *image.Gray) (Detection, Detection, error) {
	if left == nil || right == nil {
		return Detection{}, Detection{}, errors.New("stereo frames need both a left and a right image")
	}
	if !rimage.SameImgSize(left, right) {
		return Detection{}, Detection{}, errors.Errorf("left frame size %v does not match right frame size %v",
			left.Bounds().Size(), right.Bounds().Size())
	}
	ld, err := detectFrame(left, sc.s.board, sc.detector, sc.refiner, sc.s.targetPixels)
	if err != nil {
		return Detection{}, Detection{}, errors.Wrap(err, "left")
	}
	rd, err := detectFrame(right, sc.s.board, sc.detector, sc.refiner, sc.s.targetPixels)
	if err != nil {
		return Detection{}, Detection{}, errors.Wrap(err, "right")
	}
	return ld, rd, nil
}

func pairFound(l, r Detection) bool {
	return l.Found && r.Found && l.Corners.Len() == r.Corners.Len()
}

// ProcessFramePair detects the board in both frames. A pair is only sampled when both views see
// the same number of corners, and novelty is judged on the left view.
func (sc *StereoCalibrator) ProcessFramePair(left, right *image.Gray) (*StereoFrameResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	ld, rd, err := sc.detectPair(left, right)
	if err != nil {
		return nil, err
	}
	res := &StereoFrameResult{Left: ld, Right: rd}
	size := left.Bounds().Size()

	if sc.state == StateCalibrated {
		if res.LeftRectified, err = sc.left.remap(left); err != nil {
			return nil, err
		}
		if res.RightRectified, err = sc.right.remap(right); err != nil {
			return nil, err
		}
		if pairFound(ld, rd) {
			res.EpipolarError, err = EpipolarError(
				sc.left.undistort(ld.Corners.Points), sc.right.undistort(rd.Corners.Points))
			if err != nil {
				return nil, err
			}
			res.HasEpipolarError = true
		}
	} else if pairFound(ld, rd) {
		if err := checkFrameSize(size, sc.size); err != nil {
			return nil, err
		}
		params, err := ComputePoseParams(ld.Corners, sc.s.board, size)
		switch {
		case errors.Is(err, ErrCornerCountMismatch):
			sc.logger.Debugw("skipping detection", "error", err)
		case err != nil:
			return nil, err
		default:
			res.Params = &params
			if sc.tracker.IsGoodSample(params, ld.Corners, sc.last) {
				sc.size = size
				rc := rd.Corners
				sc.tracker.Record(Sample{
					Params: params,
					Left:   ld.Corners,
					Right:  &rc,
					Frames: []*image.Gray{cloneGray(left), cloneGray(right)},
				})
				res.Added = true
				sc.logger.Infow("added sample",
					"count", sc.tracker.Len(),
					"x", params.X(), "y", params.Y(), "size", params.Size(), "skew", params.Skew())
			}
		}
	}

	if ld.Found {
		corners := ld.Corners
		sc.last = &corners
	} else {
		sc.last = nil
	}
	res.Coverage = sc.tracker.Coverage()
	return res, nil
}

// Solve calibrates each camera on its own and then the rig extrinsics with the intrinsics held
// fixed, and finally rectifies the pair. On failure the session and any previous calibration are
// left untouched.
func (sc *StereoCalibrator) Solve(ctx context.Context) (*StereoResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.solver == nil {
		return nil, errors.New("no solver configured")
	}
	if sc.s.board.Pattern.PartialViews() {
		return nil, newUnsupportedConfigurationError("stereo calibration with a charuco board")
	}
	samples := lo.Filter(sc.tracker.Samples(), func(s Sample, _ int) bool { return s.Right != nil })
	if len(samples) == 0 {
		return nil, ErrNoUsableSamples
	}
	lefts := lo.Map(samples, func(s Sample, _ int) CornerSet { return s.Left })
	rights := lo.Map(samples, func(s Sample, _ int) CornerSet { return *s.Right })

	leftInfo, _, err := solveMonoLeg(ctx, sc.s, sc.solver, sc.s.name+"/left", sc.size, lefts)
	if err != nil {
		return nil, errors.Wrap(err, "left camera")
	}
	rightInfo, _, err := solveMonoLeg(ctx, sc.s, sc.solver, sc.s.name+"/right", sc.size, rights)
	if err != nil {
		return nil, errors.Wrap(err, "right camera")
	}

	objectPoints := sc.s.board.ObjectPoints(true)
	sol, err := sc.solver.SolveStereo(ctx, StereoProblem{
		Model: sc.s.model,
		Size:  sc.size,
		ObjectPoints: lo.Map(samples, func(Sample, int) []r3.Vector {
			return objectPoints
		}),
		LeftPoints:  lo.Map(lefts, func(cs CornerSet, _ int) []r2.Point { return cs.Points }),
		RightPoints: lo.Map(rights, func(cs CornerSet, _ int) []r2.Point { return cs.Points }),
		LeftK:       leftInfo.K,
		LeftD:       leftInfo.D,
		RightK:      rightInfo.K,
		RightD:      rightInfo.D,
	})
	if err != nil {
		return nil, err
	}
	sc.logger.Infow("solved stereo calibration",
		"samples", len(samples), "reprojection_error", sol.ReprojectionError,
		"baseline", sol.T.Norm(), "model", sc.s.model)

	result := &StereoResult{Left: leftInfo, Right: rightInfo, R: sol.R, T: sol.T}
	if err := sc.rectify(result, sc.s.alpha); err != nil {
		return nil, err
	}
	out := *sc.result
	return &out, nil
}

// rectify computes the rectifying rotations and projections of both cameras and installs the
// result.
func (sc *StereoCalibrator) rectify(result *StereoResult, alpha float64) error {
	lk := mat.NewDense(3, 3, append([]float64(nil), result.Left.K[:]...))
	rk := mat.NewDense(3, 3, append([]float64(nil), result.Right.K[:]...))
	ld, err := result.Left.Distorter()
	if err != nil {
		return err
	}
	rd, err := result.Right.Distorter()
	if err != nil {
		return err
	}
	rect, err := transform.StereoRectify(lk, ld, rk, rd, result.Left.Width, result.Left.Height,
		mat.NewDense(3, 3, append([]float64(nil), result.R[:]...)), result.T, alpha)
	if err != nil {
		return err
	}
	next := *result
	next.Left.R = denseTo9(rect.R1)
	next.Left.P = denseTo12(rect.P1)
	next.Right.R = denseTo9(rect.R2)
	next.Right.P = denseTo12(rect.P2)
	return sc.install(&next)
}

func (sc *StereoCalibrator) install(result *StereoResult) error {
	left, err := newCalibratedCamera(result.Left)
	if err != nil {
		return errors.Wrap(err, "left camera")
	}
	right, err := newCalibratedCamera(result.Right)
	if err != nil {
		return errors.Wrap(err, "right camera")
	}
	sc.result = result
	sc.left, sc.right = left, right
	sc.state = StateCalibrated
	return nil
}

// SetAlpha recomputes the rectification for a new zoom factor in [0,1].
func (sc *StereoCalibrator) SetAlpha(alpha float64) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateCalibrated {
		return ErrNotCalibrated
	}
	if alpha < 0 || alpha > 1 {
		return errors.Errorf("alpha must be in [0,1], got %v", alpha)
	}
	if sc.result.T.Norm() == 0 {
		return errors.New("the loaded calibration has no rig extrinsics to rectify with")
	}
	return sc.rectify(sc.result, alpha)
}

// FromResult loads an existing rig calibration as is and switches to the calibrated state.
func (sc *StereoCalibrator) FromResult(result StereoResult) error {
	if result.Left.Width != result.Right.Width || result.Left.Height != result.Right.Height {
		return errors.New("left and right calibrations have different image sizes")
	}
	if result.Left.Width <= 0 || result.Left.Height <= 0 {
		return errors.Errorf("invalid calibration size %dx%d", result.Left.Width, result.Left.Height)
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if err := sc.install(&result); err != nil {
		return err
	}
	sc.size = image.Pt(result.Left.Width, result.Left.Height)
	return nil
}

// Result returns the current rig calibration.
func (sc *StereoCalibrator) Result() (*StereoResult, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateCalibrated {
		return nil, ErrNotCalibrated
	}
	out := *sc.result
	return &out, nil
}

func (sc *StereoCalibrator) calibratedPair(left, right *image.Gray) (Detection, Detection, bool, error) {
	if sc.state != StateCalibrated {
		return Detection{}, Detection{}, false, ErrNotCalibrated
	}
	ld, rd, err := sc.detectPair(left, right)
	if err != nil {
		return Detection{}, Detection{}, false, err
	}
	return ld, rd, pairFound(ld, rd), nil
}

// EpipolarErrorFromImages measures the mean vertical disagreement of the rectified corners. The
// second result is false when the board is not seen in both frames.
func (sc *StereoCalibrator) EpipolarErrorFromImages(left, right *image.Gray) (float64, bool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	ld, rd, ok, err := sc.calibratedPair(left, right)
	if err != nil || !ok {
		return 0, false, err
	}
	e, err := EpipolarError(sc.left.undistort(ld.Corners.Points), sc.right.undistort(rd.Corners.Points))
	if err != nil {
		return 0, false, err
	}
	return e, true, nil
}

// ChessboardSizeFromImages triangulates the board and returns the mean distance between adjacent
// corners, which should match the board's square size. The second result is false when the board
// is not seen in both frames.
func (sc *StereoCalibrator) ChessboardSizeFromImages(left, right *image.Gray) (float64, bool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	ld, rd, ok, err := sc.calibratedPair(left, right)
	if err != nil || !ok {
		return 0, false, err
	}
	model, err := sc.result.StereoModel()
	if err != nil {
		return 0, false, err
	}
	size, err := ChessboardSize(
		sc.left.undistort(ld.Corners.Points), sc.right.undistort(rd.Corners.Points), sc.s.board, model)
	if err != nil {
		return 0, false, err
	}
	return size, true, nil
}

// Snapshot captures the collected samples so the session can be resumed later.
func (sc *StereoCalibrator) Snapshot() *Snapshot {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return newSnapshot(sc.id, true, sc.s.board, sc.size, sc.tracker.Samples())
}

// RestoreSamples replaces the collected samples with the ones in a snapshot.
func (sc *StereoCalibrator) RestoreSamples(snap *Snapshot) error {
	if !snap.Stereo {
		return errors.New("cannot restore a mono snapshot into a stereo session")
	}
	if err := snap.checkBoard(sc.s.board); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.tracker = NewTracker(sc.s.diversity)
	for _, s := range snap.samples() {
		sc.tracker.Record(s)
	}
	sc.size = snap.Size()
	sc.last = nil
	return nil
}

// ArchiveContents returns what WriteArchive stores for this session.
func (sc *StereoCalibrator) ArchiveContents() (ArchiveContents, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateCalibrated {
		return ArchiveContents{}, ErrNotCalibrated
	}
	samples := lo.Filter(sc.tracker.Samples(), func(s Sample, _ int) bool { return len(s.Frames) == 2 })
	result := *sc.result
	return ArchiveContents{
		Left:     lo.Map(samples, func(s Sample, _ int) *image.Gray { return s.Frames[0] }),
		Right:    lo.Map(samples, func(s Sample, _ int) *image.Gray { return s.Frames[1] }),
		Stereo:   &result,
		Snapshot: newSnapshot(sc.id, true, sc.s.board, sc.size, sc.tracker.Samples()),
	}, nil
}
