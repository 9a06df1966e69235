package fake

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"

	"go.viam.com/camcal/calibration"
)

// Solver returns fixed, plausible answers and records every problem it was given. The mono answer
// is an undistorted camera with focal length Focal centered in the frame, and the stereo answer is
// a pure translation of Baseline along -x.
type Solver struct {
	mu sync.Mutex

	Focal    float64
	Baseline float64

	SolveMonoFunc   func(ctx context.Context, problem calibration.MonoProblem) (*calibration.MonoSolution, error)
	SolveStereoFunc func(ctx context.Context, problem calibration.StereoProblem) (*calibration.StereoSolution, error)

	MonoProblems   []calibration.MonoProblem
	StereoProblems []calibration.StereoProblem
}

// NewSolver returns a solver answering with the given focal length and baseline.
func NewSolver(focal, baseline float64) *Solver {
	return &Solver{Focal: focal, Baseline: baseline}
}

// SolveMono records the problem and returns the fixed camera.
func (s *Solver) SolveMono(ctx context.Context, problem calibration.MonoProblem) (*calibration.MonoSolution, error) {
	s.mu.Lock()
	s.MonoProblems = append(s.MonoProblems, problem)
	s.mu.Unlock()
	if s.SolveMonoFunc != nil {
		return s.SolveMonoFunc(ctx, problem)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := problem.Flags.DistortionCount()
	if problem.Model == calibration.CameraModelFisheye {
		n = 4
	}
	views := len(problem.ImagePoints)
	return &calibration.MonoSolution{
		K: [9]float64{
			s.Focal, 0, float64(problem.Size.X) / 2,
			0, s.Focal, float64(problem.Size.Y) / 2,
			0, 0, 1,
		},
		D:                 make([]float64, n),
		Rotations:         make([]r3.Vector, views),
		Translations:      make([]r3.Vector, views),
		ReprojectionError: 0.1,
	}, nil
}

// SolveStereo records the problem and returns the fixed rig.
func (s *Solver) SolveStereo(ctx context.Context, problem calibration.StereoProblem) (*calibration.StereoSolution, error) {
	s.mu.Lock()
	s.StereoProblems = append(s.StereoProblems, problem)
	s.mu.Unlock()
	if s.SolveStereoFunc != nil {
		return s.SolveStereoFunc(ctx, problem)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &calibration.StereoSolution{
		R:                 [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1},
		T:                 r3.Vector{X: -s.Baseline},
		ReprojectionError: 0.1,
	}, nil
}
