//go:build !no_cgo

package native

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/logging"
)

// Solver estimates pinhole camera parameters with OpenCV's calibrateCamera. Stereo extrinsics
// come from the board poses of each camera solved with the intrinsics held fixed.
type Solver struct {
	logger logging.Logger
}

// NewSolver returns an OpenCV backed solver.
func NewSolver(logger logging.Logger) *Solver {
	return &Solver{logger: logger}
}

func toPoints3f(views [][]r3.Vector) gocv.Points3fVector {
	out := make([][]gocv.Point3f, len(views))
	for i, view := range views {
		out[i] = make([]gocv.Point3f, len(view))
		for j, p := range view {
			out[i][j] = gocv.Point3f{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
	}
	return gocv.NewPoints3fVectorFromPoints(out)
}

func toPoints2f(views [][]r2.Point) gocv.Points2fVector {
	out := make([][]gocv.Point2f, len(views))
	for i, view := range views {
		out[i] = make([]gocv.Point2f, len(view))
		for j, p := range view {
			out[i][j] = gocv.Point2f{X: float32(p.X), Y: float32(p.Y)}
		}
	}
	return gocv.NewPoints2fVectorFromPoints(out)
}

func matTo9(m gocv.Mat) [9]float64 {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = m.GetDoubleAt(r, c)
		}
	}
	return out
}

func vectors(m gocv.Mat) []r3.Vector {
	out := make([]r3.Vector, m.Rows())
	for i := range out {
		v := m.GetVecdAt(i, 0)
		out[i] = r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	}
	return out
}

type cameraGuess struct {
	k [9]float64
	d []float64
}

// calibrate runs calibrateCamera, seeding the camera matrix and distortion when guess is set.
func calibrate(
	objectPoints [][]r3.Vector,
	imagePoints [][]r2.Point,
	size image.Point,
	guess *cameraGuess,
	flags int,
) (*calibration.MonoSolution, error) {
	if len(objectPoints) != len(imagePoints) {
		return nil, errors.Errorf("%d object point views for %d image point views", len(objectPoints), len(imagePoints))
	}
	obj := toPoints3f(objectPoints)
	defer obj.Close()
	img := toPoints2f(imagePoints)
	defer img.Close()

	k := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer k.Close()
	nD := 5
	if guess != nil {
		nD = max(len(guess.d), 5)
	}
	d := gocv.NewMatWithSize(1, nD, gocv.MatTypeCV64F)
	defer d.Close()
	if guess != nil {
		for i, v := range guess.k {
			k.SetDoubleAt(i/3, i%3, v)
		}
		for i, v := range guess.d {
			d.SetDoubleAt(0, i, v)
		}
	}
	rvecs := gocv.NewMat()
	defer rvecs.Close()
	tvecs := gocv.NewMat()
	defer tvecs.Close()

	rms := gocv.CalibrateCamera(obj, img, size, &k, &d, &rvecs, &tvecs, gocv.CalibFlag(flags))

	sol := &calibration.MonoSolution{
		K:                 matTo9(k),
		D:                 make([]float64, d.Total()),
		Rotations:         vectors(rvecs),
		Translations:      vectors(tvecs),
		ReprojectionError: rms,
	}
	for i := range sol.D {
		sol.D[i] = d.GetDoubleAt(0, i)
	}
	return sol, nil
}

// SolveMono calibrates a pinhole camera. Fisheye calibration is not available through gocv.
func (s *Solver) SolveMono(ctx context.Context, problem calibration.MonoProblem) (*calibration.MonoSolution, error) {
	if problem.Model != calibration.CameraModelPinhole {
		return nil, errors.Wrapf(calibration.ErrUnsupportedConfiguration, "%v solve", problem.Model)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.logger.CDebugw(ctx, "calibrating camera", "views", len(problem.ImagePoints), "flags", problem.Flags.OpenCV())
	return calibrate(problem.ObjectPoints, problem.ImagePoints, problem.Size, nil, problem.Flags.OpenCV())
}

// SolveStereo recovers the board pose in each camera with the intrinsics held fixed and combines
// the per view poses into the rig rotation and translation.
func (s *Solver) SolveStereo(ctx context.Context, problem calibration.StereoProblem) (*calibration.StereoSolution, error) {
	if problem.Model != calibration.CameraModelPinhole {
		return nil, errors.Wrapf(calibration.ErrUnsupportedConfiguration, "%v stereo solve", problem.Model)
	}
	legs := []struct {
		points [][]r2.Point
		guess  *cameraGuess
	}{
		{problem.LeftPoints, &cameraGuess{problem.LeftK, problem.LeftD}},
		{problem.RightPoints, &cameraGuess{problem.RightK, problem.RightD}},
	}
	var poses [2]*calibration.MonoSolution
	for i, leg := range legs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sol, err := calibrate(problem.ObjectPoints, leg.points, problem.Size, leg.guess,
			calibration.FixedIntrinsicsOpenCV(len(leg.guess.d)))
		if err != nil {
			return nil, err
		}
		poses[i] = sol
	}

	out, err := calibration.StereoFromViewPoses(
		poses[0].Rotations, poses[0].Translations, poses[1].Rotations, poses[1].Translations)
	if err != nil {
		return nil, err
	}
	out.ReprojectionError = max(poses[0].ReprojectionError, poses[1].ReprojectionError)
	s.logger.CDebugw(ctx, "solved rig", "baseline", out.T.Norm(), "reprojection_error", out.ReprojectionError)
	return out, nil
}
