package calibration

import "github.com/pkg/errors"

var (
	// ErrNoUsableSamples is returned when a solve is requested before any sample was accepted.
	ErrNoUsableSamples = errors.New("no usable samples")
	// ErrCornerCountMismatch is returned when a detection does not fit the board geometry.
	ErrCornerCountMismatch = errors.New("corner count does not match board")
	// ErrUnsupportedConfiguration is returned for pattern and camera model combinations that
	// cannot be solved.
	ErrUnsupportedConfiguration = errors.New("unsupported calibration configuration")
	// ErrNotCalibrated is returned by operations that need a calibration result.
	ErrNotCalibrated = errors.New("camera is not calibrated")
	// ErrOSTTooLarge is returned when an oST parameter block would reach the legacy size limit.
	ErrOSTTooLarge = errors.Errorf("calibration info must be less than %d bytes", maxOSTBytes)
	// ErrSnapshotVersion is returned when reading a snapshot written by an unknown version.
	ErrSnapshotVersion = errors.New("unsupported snapshot version")
)

func newCornerCountMismatchError(got, want int) error {
	return errors.Wrapf(ErrCornerCountMismatch, "got %d corners, expected %d", got, want)
}

func newUnsupportedConfigurationError(msg string) error {
	return errors.Wrap(ErrUnsupportedConfiguration, msg)
}
