// Package cli contains the camcal command line application.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig       = "config"
	flagDebug        = "debug"
	flagLogFile      = "log-file"
	flagDebugSolve   = "debug-solve"
	flagPattern      = "pattern"
	flagCols         = "cols"
	flagRows         = "rows"
	flagSize         = "size"
	flagMarkerSize   = "marker-size"
	flagDictionary   = "aruco-dict"
	flagCameraModel  = "camera-model"
	flagName         = "name"
	flagAlpha        = "alpha"
	flagKCoeffs      = "k-coefficients"
	flagFixAspect    = "fix-aspect-ratio"
	flagFixPrincipal = "fix-principal-point"
	flagZeroTangent  = "zero-tangent-dist"
	flagMaxSpeed     = "max-chessboard-speed"
	flagReadySamples = "ready-samples"
	flagOutput       = "output"
	flagLeft         = "left"
	flagRight        = "right"
	flagStereo       = "stereo"
)

// sessionFlags describe the board and the solve; they override a config file.
var sessionFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  flagPattern,
		Usage: "calibration target: chessboard, circles, acircles or charuco",
	},
	&cli.IntFlag{
		Name:  flagCols,
		Usage: "inner corners (or circles) per row, or squares per row for charuco",
	},
	&cli.IntFlag{
		Name:  flagRows,
		Usage: "inner corners (or circles) per column, or squares per column for charuco",
	},
	&cli.Float64Flag{
		Name:  flagSize,
		Usage: "square size or circle spacing in meters",
	},
	&cli.Float64Flag{
		Name:  flagMarkerSize,
		Usage: "charuco marker size in meters",
	},
	&cli.StringFlag{
		Name:  flagDictionary,
		Usage: "charuco marker dictionary, e.g. 4x4_50",
	},
	&cli.StringFlag{
		Name:  flagCameraModel,
		Usage: "lens model: pinhole or fisheye",
	},
	&cli.StringFlag{
		Name:  flagName,
		Usage: "camera name written to the calibration",
	},
	&cli.Float64Flag{
		Name:  flagAlpha,
		Usage: "zoom of the rectified image, 0 keeps only valid pixels and 1 keeps every pixel",
	},
	&cli.IntFlag{
		Name:  flagKCoeffs,
		Usage: "number of radial distortion coefficients to estimate",
	},
	&cli.BoolFlag{
		Name:  flagFixAspect,
		Usage: "keep fx/fy fixed",
	},
	&cli.BoolFlag{
		Name:  flagFixPrincipal,
		Usage: "keep the principal point at the image center",
	},
	&cli.BoolFlag{
		Name:  flagZeroTangent,
		Usage: "assume no tangential distortion",
	},
	&cli.Float64Flag{
		Name:  flagMaxSpeed,
		Usage: "largest average corner motion in pixels for which a frame is sampled",
	},
	&cli.IntFlag{
		Name:  flagReadySamples,
		Usage: "number of samples after which coverage counts as sufficient",
	},
}

func withSessionFlags(flags ...cli.Flag) []cli.Flag {
	return append(append([]cli.Flag{}, sessionFlags...), flags...)
}

var outputFlag = &cli.StringFlag{
	Name:    flagOutput,
	Aliases: []string{"o"},
	Value:   "calibrationdata.tar.gz",
	Usage:   "write the calibration archive to `FILE`",
}

var app = &cli.App{
	Name:            "camcal",
	Usage:           "calibrate mono and stereo cameras from views of a calibration target",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load session configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.BoolFlag{
			Name:  flagDebugSolve,
			Usage: "log solver details at debug level without raising the overall log level",
		},
		&cli.StringFlag{
			Name:  flagLogFile,
			Usage: "also write logs to a rotated `FILE`",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "mono",
			Usage:     "calibrate a single camera from image files",
			ArgsUsage: "<image or glob>...",
			Flags:     withSessionFlags(outputFlag),
			Action:    MonoAction,
		},
		{
			Name:  "stereo",
			Usage: "calibrate a stereo pair from matching left and right image files",
			Flags: withSessionFlags(
				outputFlag,
				&cli.StringFlag{
					Name:     flagLeft,
					Required: true,
					Usage:    "glob of the left images",
				},
				&cli.StringFlag{
					Name:     flagRight,
					Required: true,
					Usage:    "glob of the right images",
				},
			),
			Action: StereoAction,
		},
		{
			Name:      "watch",
			Usage:     "sample frames as they are written to a directory and calibrate once coverage is sufficient",
			ArgsUsage: "<directory>",
			Flags: withSessionFlags(
				outputFlag,
				&cli.BoolFlag{
					Name:  flagStereo,
					Usage: "pair left* and right* files with the same suffix",
				},
			),
			Action: WatchAction,
		},
		{
			Name:      "from-archive",
			Usage:     "calibrate again from the frames of an existing archive",
			ArgsUsage: "<archive>",
			Flags:     withSessionFlags(outputFlag),
			Action:    FromArchiveAction,
		},
		{
			Name:      "evaluate",
			Usage:     "measure an existing calibration on new images",
			ArgsUsage: "<image or glob>...",
			Flags: withSessionFlags(
				&cli.StringFlag{
					Name:     flagLeft,
					Required: true,
					Usage:    "camera_info YAML of the camera, or of the left camera of a pair",
				},
				&cli.StringFlag{
					Name:  flagRight,
					Usage: "camera_info YAML of the right camera; the arguments are then a left and a right glob",
				},
			),
			Action: EvaluateAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
