package calibration

import (
	"fmt"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/camcal/rimage"
)

// BoardConfig is the user facing description of a calibration target.
type BoardConfig struct {
	Pattern    string  `json:"pattern"`
	Cols       int     `json:"cols"`
	Rows       int     `json:"rows"`
	Dim        float64 `json:"dim"`
	MarkerSize float64 `json:"marker_size"`
	Dictionary string  `json:"aruco_dict"`
}

// Validate ensures the board description is usable.
func (bc *BoardConfig) Validate(path string) error {
	if bc.Pattern == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "pattern")
	}
	if bc.Cols == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "cols")
	}
	if bc.Rows == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "rows")
	}
	if bc.Dim == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "dim")
	}
	if _, err := bc.Board(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

// Board builds the board descriptor.
func (bc *BoardConfig) Board() (Board, error) {
	pattern, err := ParsePattern(bc.Pattern)
	if err != nil {
		return Board{}, err
	}
	if pattern != PatternChArUco {
		return NewBoard(pattern, bc.Cols, bc.Rows, bc.Dim)
	}
	if bc.MarkerSize == 0 {
		return Board{}, errors.New("charuco boards need a marker_size")
	}
	dict, err := ParseMarkerDictionary(bc.Dictionary)
	if err != nil {
		return Board{}, err
	}
	return NewChArUcoBoard(bc.Cols, bc.Rows, bc.Dim, bc.MarkerSize, dict)
}

// Config describes a calibration session.
type Config struct {
	Name               string       `json:"name"`
	Board              BoardConfig  `json:"board"`
	CameraModel        string       `json:"camera_model"`
	Flags              SolverFlags  `json:"flags"`
	FisheyeFlags       FisheyeFlags `json:"fisheye_flags"`
	MaxChessboardSpeed float64      `json:"max_chessboard_speed"`
	NoveltyThreshold   float64      `json:"novelty_threshold"`
	ReadySampleCount   int          `json:"ready_sample_count"`
	TargetPixels       int          `json:"target_pixels"`
	Alpha              float64      `json:"alpha"`
}

// DefaultConfig returns a session config for the given board with every other setting at its
// default.
func DefaultConfig(board BoardConfig) Config {
	return Config{
		Board:        board,
		CameraModel:  CameraModelPinhole.String(),
		Flags:        DefaultSolverFlags(),
		FisheyeFlags: DefaultFisheyeFlags(),
	}
}

// Validate ensures the session config is usable.
func (c *Config) Validate(path string) error {
	if err := c.Board.Validate(fmt.Sprintf("%s.%s", path, "board")); err != nil {
		return err
	}
	if _, err := ParseCameraModel(c.CameraModel); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if c.NoveltyThreshold < 0 {
		return utils.NewConfigValidationError(path, errors.New("novelty_threshold cannot be negative"))
	}
	if c.ReadySampleCount < 0 {
		return utils.NewConfigValidationError(path, errors.New("ready_sample_count cannot be negative"))
	}
	if c.TargetPixels < 0 {
		return utils.NewConfigValidationError(path, errors.New("target_pixels cannot be negative"))
	}
	if c.Alpha < 0 || c.Alpha > 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("alpha must be in [0,1], got %v", c.Alpha))
	}
	if c.Flags.KCoefficients < 0 || c.Flags.KCoefficients > 6 {
		return utils.NewConfigValidationError(path, errors.Errorf("k_coefficients must be in [0,6], got %d", c.Flags.KCoefficients))
	}
	if c.FisheyeFlags.KCoefficients < 0 || c.FisheyeFlags.KCoefficients > 4 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("fisheye k_coefficients must be in [0,4], got %d", c.FisheyeFlags.KCoefficients))
	}
	return nil
}

// session is a validated config with defaults filled in.
type session struct {
	name         string
	board        Board
	model        CameraModel
	flags        SolverFlags
	fisheyeFlags FisheyeFlags
	diversity    DiversityConfig
	targetPixels int
	alpha        float64
}

func newSession(cfg Config, stereo bool, defaultName string) (session, error) {
	if err := cfg.Validate("calibration"); err != nil {
		return session{}, err
	}
	board, err := cfg.Board.Board()
	if err != nil {
		return session{}, err
	}
	model, err := ParseCameraModel(cfg.CameraModel)
	if err != nil {
		return session{}, err
	}

	s := session{
		name:         cfg.Name,
		board:        board,
		model:        model,
		flags:        cfg.Flags,
		fisheyeFlags: cfg.FisheyeFlags,
		diversity:    DefaultDiversityConfig(stereo),
		targetPixels: cfg.TargetPixels,
		alpha:        cfg.Alpha,
	}
	if s.name == "" {
		s.name = defaultName
	}
	if s.targetPixels == 0 {
		s.targetPixels = rimage.VGAPixels
	}
	if cfg.NoveltyThreshold > 0 {
		s.diversity.NoveltyThreshold = cfg.NoveltyThreshold
	}
	if cfg.ReadySampleCount > 0 {
		s.diversity.ReadySampleCount = cfg.ReadySampleCount
	}
	s.diversity.MaxMotion = cfg.MaxChessboardSpeed
	return s, nil
}
