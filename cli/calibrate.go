package cli

import (
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/camcal/calibration"
)

// MonoAction calibrates a single camera from the image files given as arguments.
func MonoAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("no images given")
	}
	paths, err := expandImages(c.Args().Slice()...)
	if err != nil {
		return err
	}
	imgs, err := readImages(paths)
	if err != nil {
		return err
	}
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(env.Close)
	return calibrateMono(c, env, imgs)
}

func calibrateMono(c *cli.Context, env *runEnv, imgs []*image.Gray) error {
	mc, err := calibration.CalibrateMonoFromImages(env.solveContext(c.Context), env.cfg.Session, imgs, env.detector, env.solver, env.logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", coverageTable(mc.Coverage()))
	info, err := mc.Result()
	if err != nil {
		return err
	}
	if err := printMono(c.App.Writer, info); err != nil {
		return err
	}
	contents, err := mc.ArchiveContents()
	if err != nil {
		return err
	}
	return writeArchive(c, env, contents)
}

// StereoAction calibrates a camera pair from matching left and right image files.
func StereoAction(c *cli.Context) error {
	left, err := expandImages(c.String(flagLeft))
	if err != nil {
		return err
	}
	right, err := expandImages(c.String(flagRight))
	if err != nil {
		return err
	}
	if len(left) != len(right) {
		return errors.Errorf("%d left images but %d right images", len(left), len(right))
	}
	leftImgs, err := readImages(left)
	if err != nil {
		return err
	}
	rightImgs, err := readImages(right)
	if err != nil {
		return err
	}
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(env.Close)
	return calibrateStereo(c, env, leftImgs, rightImgs)
}

func calibrateStereo(c *cli.Context, env *runEnv, left, right []*image.Gray) error {
	sc, err := calibration.CalibrateStereoFromImages(env.solveContext(c.Context), env.cfg.Session, left, right,
		env.detector, env.solver, env.logger)
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", coverageTable(sc.Coverage()))
	result, err := sc.Result()
	if err != nil {
		return err
	}
	if err := printStereo(c.App.Writer, result); err != nil {
		return err
	}
	contents, err := sc.ArchiveContents()
	if err != nil {
		return err
	}
	return writeArchive(c, env, contents)
}

// FromArchiveAction calibrates again from the frames stored in an archive, for instance with a
// different lens model or solver flags.
func FromArchiveAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one archive")
	}
	//nolint:gosec
	f, err := os.Open(c.Args().First())
	if err != nil {
		return err
	}
	archive, err := calibration.ReadArchive(f)
	utils.UncheckedError(f.Close())
	if err != nil {
		return err
	}
	if len(archive.Left) == 0 {
		return errors.Wrap(calibration.ErrNoUsableSamples, "archive has no frames")
	}

	env, err := setup(c)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(env.Close)
	env.logger.Infow("loaded archive", "left", len(archive.Left), "right", len(archive.Right))
	if len(archive.Right) > 0 {
		return calibrateStereo(c, env, archive.Left, archive.Right)
	}
	return calibrateMono(c, env, archive.Left)
}

func printMono(w io.Writer, info *calibration.CameraInfo) error {
	if w == nil {
		return nil
	}
	if err := info.Report(w); err != nil {
		return err
	}
	ost, err := info.OST()
	if err != nil {
		warningf(w, "%v", err)
		return nil
	}
	printf(w, "%s", ost)
	return nil
}

func printStereo(w io.Writer, result *calibration.StereoResult) error {
	if w == nil {
		return nil
	}
	if err := result.Report(w); err != nil {
		return err
	}
	ost, err := result.OST()
	if err != nil {
		warningf(w, "%v", err)
		return nil
	}
	printf(w, "%s", ost)
	return nil
}
