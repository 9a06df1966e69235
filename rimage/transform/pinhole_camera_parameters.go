package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is wrapped by every intrinsics validation failure.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// PinholeCameraIntrinsics is the image size plus the focal lengths and principal point of a
// skew free camera matrix.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromK reads the intrinsics out of a row-major 3x3 camera matrix.
func NewPinholeCameraIntrinsicsFromK(width, height int, k [9]float64) *PinholeCameraIntrinsics {
	return &PinholeCameraIntrinsics{Width: width, Height: height, Fx: k[0], Fy: k[4], Ppx: k[2], Ppy: k[5]}
}

// CheckValid rejects a missing camera, an empty image and non-positive focal lengths. A principal
// point may sit anywhere in front of the image plane but not at negative coordinates.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	switch {
	case params == nil:
		return errors.Wrap(ErrNoIntrinsics, "intrinsics do not exist")
	case params.Width <= 0 || params.Height <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid size (%d,%d)", params.Width, params.Height)
	case params.Fx <= 0 || params.Fy <= 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid focal length (%v,%v)", params.Fx, params.Fy)
	case params.Ppx < 0 || params.Ppy < 0:
		return errors.Wrapf(ErrNoIntrinsics, "invalid principal point (%v,%v)", params.Ppx, params.Ppy)
	}
	return nil
}

// CameraMatrix returns K as a 3x3 matrix.
func (params *PinholeCameraIntrinsics) CameraMatrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		params.Fx, 0, params.Ppx,
		0, params.Fy, params.Ppy,
		0, 0, 1,
	})
}
