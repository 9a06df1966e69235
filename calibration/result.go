package calibration

import (
	"fmt"
	"io"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
)

// CameraModel is the lens model solved for.
type CameraModel int

// The supported lens models.
const (
	CameraModelPinhole CameraModel = iota
	CameraModelFisheye
)

func (m CameraModel) String() string {
	switch m {
	case CameraModelPinhole:
		return "pinhole"
	case CameraModelFisheye:
		return "fisheye"
	default:
		return "unknown"
	}
}

// ParseCameraModel returns the camera model with the given name.
func ParseCameraModel(name string) (CameraModel, error) {
	switch strings.ToLower(name) {
	case "", "pinhole":
		return CameraModelPinhole, nil
	case "fisheye":
		return CameraModelFisheye, nil
	default:
		return 0, errors.Errorf("unknown camera model %q", name)
	}
}

// DistortionModelFor returns the camera_info distortion model tag for a solve result.
func DistortionModelFor(model CameraModel, nCoeffs int) transform.DistortionType {
	if model == CameraModelFisheye {
		return transform.EquidistantDistortionType
	}
	if nCoeffs > 5 {
		return transform.RationalPolynomialDistortionType
	}
	return transform.PlumbBobDistortionType
}

// CameraInfo is the calibration of one camera: intrinsics K, distortion D, rectification R and
// projection P, all row-major.
type CameraInfo struct {
	Name            string
	Width           int
	Height          int
	Model           CameraModel
	DistortionModel transform.DistortionType
	K               [9]float64
	D               []float64
	R               [9]float64
	P               [12]float64
}

// Intrinsics returns the pinhole intrinsics of the camera.
func (ci *CameraInfo) Intrinsics() *transform.PinholeCameraIntrinsics {
	return transform.NewPinholeCameraIntrinsicsFromK(ci.Width, ci.Height, ci.K)
}

// Distorter returns the distortion model of the camera.
func (ci *CameraInfo) Distorter() (transform.Distorter, error) {
	return transform.NewDistorter(ci.DistortionModel, ci.D)
}

// LensModel returns everything needed to undistort and rectify points of this camera.
func (ci *CameraInfo) LensModel() (transform.LensModel, error) {
	d, err := ci.Distorter()
	if err != nil {
		return transform.LensModel{}, err
	}
	return transform.LensModel{
		K:             mat.NewDense(3, 3, append([]float64(nil), ci.K[:]...)),
		Distortion:    d,
		Rectification: mat.NewDense(3, 3, append([]float64(nil), ci.R[:]...)),
		Projection:    mat.NewDense(3, 4, append([]float64(nil), ci.P[:]...)),
	}, nil
}

// Report writes the calibration matrices in a human readable form.
func (ci *CameraInfo) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w, "D = %v\nK = %v\nR = %v\nP = %v\n", ci.D, ci.K[:], ci.R[:], ci.P[:])
	return err
}

// StereoResult is the calibration of a stereo rig. R and T take points from the left camera
// frame to the right one.
type StereoResult struct {
	Left  CameraInfo
	Right CameraInfo
	R     [9]float64
	T     r3.Vector
}

// StereoModel returns the model used to triangulate rectified left pixels with disparity.
func (sr *StereoResult) StereoModel() (*transform.StereoCameraModel, error) {
	return transform.NewStereoCameraModel(
		mat.NewDense(3, 4, append([]float64(nil), sr.Left.P[:]...)),
		mat.NewDense(3, 4, append([]float64(nil), sr.Right.P[:]...)),
	)
}

// Report writes both cameras and the rig extrinsics in a human readable form.
func (sr *StereoResult) Report(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "\nLeft:"); err != nil {
		return err
	}
	if err := sr.Left.Report(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "\nRight:"); err != nil {
		return err
	}
	if err := sr.Right.Report(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "T = %v\nR = %v\n", []float64{sr.T.X, sr.T.Y, sr.T.Z}, sr.R[:])
	return err
}

func denseTo9(m mat.Matrix) [9]float64 {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[3*r+c] = m.At(r, c)
		}
	}
	return out
}

func denseTo12(m mat.Matrix) [12]float64 {
	var out [12]float64
	_, cols := m.Dims()
	for r := 0; r < 3; r++ {
		for c := 0; c < min(cols, 4); c++ {
			out[4*r+c] = m.At(r, c)
		}
	}
	return out
}

var identity9 = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
