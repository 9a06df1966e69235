package calibration

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/camcal/logging"
)

// CalibrateMonoFromImages calibrates a camera from a fixed set of frames, such as those of an
// archive. Every frame showing the whole board becomes a sample regardless of novelty.
func CalibrateMonoFromImages(
	ctx context.Context,
	cfg Config,
	images []*image.Gray,
	detector Detector,
	solver Solver,
	logger logging.Logger,
) (*MonoCalibrator, error) {
	mc, err := NewMonoCalibrator(cfg, detector, solver, logger)
	if err != nil {
		return nil, err
	}
	for i, img := range images {
		added, err := mc.collect(img)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		if !added {
			mc.logger.Debugw("board not found", "frame", i)
		}
	}
	if _, err := mc.Solve(ctx); err != nil {
		return nil, err
	}
	return mc, nil
}

// CalibrateStereoFromImages calibrates a camera pair from matched frame lists. The lists must
// have the same length; frame i of each forms a pair.
func CalibrateStereoFromImages(
	ctx context.Context,
	cfg Config,
	left, right []*image.Gray,
	detector Detector,
	solver Solver,
	logger logging.Logger,
) (*StereoCalibrator, error) {
	if len(left) != len(right) {
		return nil, errors.Errorf("got %d left frames and %d right frames", len(left), len(right))
	}
	sc, err := NewStereoCalibrator(cfg, detector, solver, logger)
	if err != nil {
		return nil, err
	}
	for i := range left {
		added, err := sc.collect(left[i], right[i])
		if err != nil {
			return nil, errors.Wrapf(err, "frame pair %d", i)
		}
		if !added {
			sc.logger.Debugw("board not found in both frames", "frame", i)
		}
	}
	if _, err := sc.Solve(ctx); err != nil {
		return nil, err
	}
	return sc, nil
}

// collect records a frame as a sample without any novelty check.
func (mc *MonoCalibrator) collect(img *image.Gray) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	det, err := detectFrame(img, mc.s.board, mc.detector, mc.refiner, mc.s.targetPixels)
	if err != nil || !det.Found {
		return false, err
	}
	size := img.Bounds().Size()
	if err := checkFrameSize(size, mc.size); err != nil {
		return false, err
	}
	params, err := ComputePoseParams(det.Corners, mc.s.board, size)
	if errors.Is(err, ErrCornerCountMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	mc.size = size
	mc.tracker.Record(Sample{Params: params, Left: det.Corners, Frames: []*image.Gray{cloneGray(img)}})
	return true, nil
}

func (sc *StereoCalibrator) collect(left, right *image.Gray) (bool, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	ld, rd, err := sc.detectPair(left, right)
	if err != nil || !pairFound(ld, rd) {
		return false, err
	}
	size := left.Bounds().Size()
	if err := checkFrameSize(size, sc.size); err != nil {
		return false, err
	}
	params, err := ComputePoseParams(ld.Corners, sc.s.board, size)
	if errors.Is(err, ErrCornerCountMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	sc.size = size
	rc := rd.Corners
	sc.tracker.Record(Sample{
		Params: params,
		Left:   ld.Corners,
		Right:  &rc,
		Frames: []*image.Gray{cloneGray(left), cloneGray(right)},
	})
	return true, nil
}
