package cli

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/calibration/native"
	"go.viam.com/camcal/config"
	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
)

// newBackends creates the detector and solver every command calibrates with.
var newBackends = func(logger logging.Logger) (calibration.Detector, calibration.Solver) {
	return native.NewDetector(logger), native.NewSolver(logger)
}

// runEnv is what every command needs: the loaded config, a logger and the backends.
type runEnv struct {
	cfg      *config.Config
	logger   logging.Logger
	detector calibration.Detector
	solver   calibration.Solver
	closer   io.Closer

	debugSolve bool
}

// solveContext marks ctx for debug logging of solver calls when --debug-solve is set.
func (env *runEnv) solveContext(ctx context.Context) context.Context {
	if !env.debugSolve {
		return ctx
	}
	return logging.EnableDebugMode(ctx, "solve")
}

func (env *runEnv) Close() error {
	utils.UncheckedError(env.logger.Sync())
	return env.closer.Close()
}

// setup loads the config file, if any, applies command line overrides and builds the logger.
func setup(c *cli.Context) (*runEnv, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config %s", path)
		}
		cfg = read
	}
	applySessionFlags(c, &cfg.Session)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if path := c.String(flagLogFile); path != "" {
		cfg.Log.File = &logging.FileAppenderConfig{Path: path}
	}

	root, closer, err := cfg.Log.NewLogger("camcal")
	if err != nil {
		return nil, err
	}
	config.InitLoggingSettings(root, c.Bool(flagDebug))
	config.UpdateFileConfigDebug(cfg.Debug)
	logger := cfg.Log.Sublogger(root, c.Command.Name)

	detector, solver := newBackends(cfg.Log.Sublogger(logger, "native"))
	return &runEnv{
		cfg:        cfg,
		logger:     logger,
		detector:   detector,
		solver:     solver,
		closer:     closer,
		debugSolve: c.Bool(flagDebugSolve),
	}, nil
}

func applySessionFlags(c *cli.Context, s *calibration.Config) {
	if c.IsSet(flagPattern) {
		s.Board.Pattern = c.String(flagPattern)
	}
	if c.IsSet(flagCols) {
		s.Board.Cols = c.Int(flagCols)
	}
	if c.IsSet(flagRows) {
		s.Board.Rows = c.Int(flagRows)
	}
	if c.IsSet(flagSize) {
		s.Board.Dim = c.Float64(flagSize)
	}
	if c.IsSet(flagMarkerSize) {
		s.Board.MarkerSize = c.Float64(flagMarkerSize)
	}
	if c.IsSet(flagDictionary) {
		s.Board.Dictionary = c.String(flagDictionary)
	}
	if c.IsSet(flagCameraModel) {
		s.CameraModel = c.String(flagCameraModel)
	}
	if c.IsSet(flagName) {
		s.Name = c.String(flagName)
	}
	if c.IsSet(flagAlpha) {
		s.Alpha = c.Float64(flagAlpha)
	}
	if c.IsSet(flagKCoeffs) {
		s.Flags.KCoefficients = c.Int(flagKCoeffs)
		s.FisheyeFlags.KCoefficients = min(c.Int(flagKCoeffs), 4)
	}
	if c.IsSet(flagFixAspect) {
		s.Flags.FixAspectRatio = c.Bool(flagFixAspect)
	}
	if c.IsSet(flagFixPrincipal) {
		s.Flags.FixPrincipalPoint = c.Bool(flagFixPrincipal)
		s.FisheyeFlags.FixPrincipalPoint = c.Bool(flagFixPrincipal)
	}
	if c.IsSet(flagZeroTangent) {
		s.Flags.ZeroTangentDist = c.Bool(flagZeroTangent)
	}
	if c.IsSet(flagMaxSpeed) {
		s.MaxChessboardSpeed = c.Float64(flagMaxSpeed)
	}
	if c.IsSet(flagReadySamples) {
		s.ReadySampleCount = c.Int(flagReadySamples)
	}
}

// expandImages resolves each argument as a glob and returns the matching files in name order.
func expandImages(patterns ...string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if len(matches) == 0 {
			return nil, errors.Errorf("no files match %q", pattern)
		}
		paths = append(paths, matches...)
	}
	paths = lo.Uniq(paths)
	sort.Strings(paths)
	return paths, nil
}

func readImages(paths []string) ([]*image.Gray, error) {
	imgs := make([]*image.Gray, len(paths))
	for i, path := range paths {
		img, err := rimage.ReadGrayFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		imgs[i] = img
	}
	return imgs, nil
}

// writeArchive stores the session in the archive file named by the output flag.
func writeArchive(c *cli.Context, env *runEnv, contents calibration.ArchiveContents) (err error) {
	path := c.String(flagOutput)
	//nolint:gosec
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating archive")
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	if err := calibration.WriteArchive(f, contents, nil); err != nil {
		return err
	}
	env.logger.Infow("wrote calibration archive", "path", path, "frames", len(contents.Left)+len(contents.Right))
	printf(c.App.Writer, "Wrote %s", path)
	return nil
}

func printf(w io.Writer, format string, a ...interface{}) {
	if w == nil {
		return
	}
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func warningf(w io.Writer, format string, a ...interface{}) {
	if w == nil {
		return
	}
	//nolint:errcheck
	fmt.Fprintf(w, "Warning: "+format+"\n", a...)
}
