package calibration

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
)

// State is the phase of a calibration session.
type State int

// Sessions start out acquiring samples and only become calibrated on an explicit solve or when a
// calibration is loaded.
const (
	StateAcquiring State = iota
	StateCalibrated
)

func (s State) String() string {
	if s == StateCalibrated {
		return "calibrated"
	}
	return "acquiring"
}

// calibratedCamera holds a camera's calibration with its undistortion data.
type calibratedCamera struct {
	info CameraInfo
	lens transform.LensModel
	rmap *transform.RectifyMap
}

func newCalibratedCamera(info CameraInfo) (*calibratedCamera, error) {
	lens, err := info.LensModel()
	if err != nil {
		return nil, err
	}
	rmap, err := lens.NewRectifyMap(info.Width, info.Height)
	if err != nil {
		return nil, err
	}
	return &calibratedCamera{info: info, lens: lens, rmap: rmap}, nil
}

func (cc *calibratedCamera) remap(img *image.Gray) (*image.Gray, error) {
	return cc.rmap.Remap(img)
}

func (cc *calibratedCamera) undistort(pts []r2.Point) []r2.Point {
	return cc.lens.UndistortPoints(pts)
}

// objectPointsFor returns the board points matching a detection. Partial views are looked up by
// id and are always in meters.
func objectPointsFor(board Board, cs CornerSet, scaled bool) []r3.Vector {
	if board.Pattern.PartialViews() {
		return board.ObjectPointsFor(cs.IDs)
	}
	return board.ObjectPoints(scaled)
}

// solveMonoLeg runs a single camera solve over the given detections. The result has an identity
// rectification and no projection yet.
func solveMonoLeg(
	ctx context.Context,
	s session,
	solver Solver,
	name string,
	size image.Point,
	detections []CornerSet,
) (CameraInfo, *MonoSolution, error) {
	if len(detections) == 0 {
		return CameraInfo{}, nil, ErrNoUsableSamples
	}
	if s.board.Pattern.PartialViews() && s.model == CameraModelFisheye {
		return CameraInfo{}, nil, newUnsupportedConfigurationError("fisheye calibration with a charuco board")
	}
	problem := MonoProblem{
		Model: s.model,
		Size:  size,
		ObjectPoints: lo.Map(detections, func(cs CornerSet, _ int) []r3.Vector {
			return objectPointsFor(s.board, cs, false)
		}),
		ImagePoints:  lo.Map(detections, func(cs CornerSet, _ int) []r2.Point { return cs.Points }),
		Flags:        s.flags,
		FisheyeFlags: s.fisheyeFlags,
	}
	sol, err := solver.SolveMono(ctx, problem)
	if err != nil {
		return CameraInfo{}, nil, err
	}

	d := append([]float64(nil), sol.D...)
	switch s.model {
	case CameraModelPinhole:
		if n := s.flags.DistortionCount(); len(d) > n {
			d = d[:n]
		}
	case CameraModelFisheye:
		if len(d) > 4 {
			d = d[:4]
		}
	}
	return CameraInfo{
		Name:            name,
		Width:           size.X,
		Height:          size.Y,
		Model:           s.model,
		DistortionModel: DistortionModelFor(s.model, len(d)),
		K:               sol.K,
		D:               d,
		R:               identity9,
	}, sol, nil
}

// monoProjection returns the projection of an undistorted mono camera for the zoom factor alpha:
// 0 keeps only valid pixels, 1 keeps every source pixel.
func monoProjection(info CameraInfo, alpha float64) ([12]float64, error) {
	k := mat.NewDense(3, 3, append([]float64(nil), info.K[:]...))
	var ncm *mat.Dense
	switch info.Model {
	case CameraModelFisheye:
		ncm = transform.FisheyeNewCameraMatrix(k, alpha)
	case CameraModelPinhole:
		d, err := info.Distorter()
		if err != nil {
			return [12]float64{}, err
		}
		ncm = transform.OptimalNewCameraMatrix(k, d, info.Width, info.Height, alpha)
	default:
		return [12]float64{}, errors.Errorf("unknown camera model %v", info.Model)
	}
	return denseTo12(ncm), nil
}

func cloneGray(img *image.Gray) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	for y := 0; y < out.Rect.Dy(); y++ {
		src := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y):]
		copy(out.Pix[y*out.Stride:(y+1)*out.Stride], src[:out.Stride])
	}
	return out
}

func checkFrameSize(size, want image.Point) error {
	if want != (image.Point{}) && size != want {
		return errors.Errorf("frame size %v does not match session frame size %v", size, want)
	}
	return nil
}
