package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/camcal/calibration"
)

func readCameraInfo(path string) (*calibration.CameraInfo, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	info, err := calibration.ParseCameraInfoYAML(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return info, nil
}

// EvaluateAction loads a calibration and reports its quality metrics on each image: the
// straightness of the undistorted board rows for a single camera, or the epipolar error and the
// triangulated square size for a pair. A pair takes a glob of left images and a glob of right
// images, matched in name order.
func EvaluateAction(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return errors.New("no images given")
	}
	left, err := readCameraInfo(c.String(flagLeft))
	if err != nil {
		return err
	}
	var (
		right *calibration.CameraInfo
		paths []string
	)
	if c.IsSet(flagRight) {
		if right, err = readCameraInfo(c.String(flagRight)); err != nil {
			return err
		}
		if c.Args().Len() != 2 {
			return errors.New("stereo evaluation takes a glob of left images and a glob of right images")
		}
		lefts, err := expandImages(c.Args().Get(0))
		if err != nil {
			return err
		}
		rights, err := expandImages(c.Args().Get(1))
		if err != nil {
			return err
		}
		if len(lefts) != len(rights) {
			return errors.Errorf("%d left images but %d right images", len(lefts), len(rights))
		}
		for i := range lefts {
			paths = append(paths, lefts[i], rights[i])
		}
	} else if paths, err = expandImages(c.Args().Slice()...); err != nil {
		return err
	}

	env, err := setup(c)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(env.Close)

	if right == nil {
		return evaluateMono(c, env, *left, paths)
	}
	return evaluateStereo(c, env, calibration.StereoResult{Left: *left, Right: *right}, paths)
}

func evaluateMono(c *cli.Context, env *runEnv, info calibration.CameraInfo, paths []string) error {
	mc, err := calibration.NewMonoCalibrator(env.cfg.Session, env.detector, env.solver, env.logger)
	if err != nil {
		return err
	}
	if err := mc.FromResult(info); err != nil {
		return err
	}
	imgs, err := readImages(paths)
	if err != nil {
		return err
	}
	rows := make([]metricRow, len(imgs))
	for i, img := range imgs {
		e, ok, err := mc.LinearErrorFromImage(img)
		if err != nil {
			return errors.Wrapf(err, "evaluating %s", paths[i])
		}
		rows[i] = metricRow{name: filepath.Base(paths[i]), values: []float64{e}, found: ok}
		if ok {
			env.logger.Infow("linear error", "image", paths[i], "error", e)
		}
	}
	printf(c.App.Writer, "%s", metricsTable([]string{"Linear error (px)"}, rows))
	return nil
}

func evaluateStereo(c *cli.Context, env *runEnv, result calibration.StereoResult, paths []string) error {
	sc, err := calibration.NewStereoCalibrator(env.cfg.Session, env.detector, env.solver, env.logger)
	if err != nil {
		return err
	}
	if err := sc.FromResult(result); err != nil {
		return err
	}
	imgs, err := readImages(paths)
	if err != nil {
		return err
	}
	rows := make([]metricRow, 0, len(imgs)/2)
	for i := 0; i+1 < len(imgs); i += 2 {
		name := filepath.Base(paths[i]) + " + " + filepath.Base(paths[i+1])
		epipolar, ok, err := sc.EpipolarErrorFromImages(imgs[i], imgs[i+1])
		if err != nil {
			return errors.Wrapf(err, "evaluating %s", name)
		}
		if !ok {
			rows = append(rows, metricRow{name: name})
			continue
		}
		size, ok, err := sc.ChessboardSizeFromImages(imgs[i], imgs[i+1])
		if err != nil {
			return errors.Wrapf(err, "evaluating %s", name)
		}
		rows = append(rows, metricRow{name: name, values: []float64{epipolar, size}, found: ok})
		env.logger.Infow("stereo metrics", "pair", name, "epipolar_error", epipolar, "square_size", size)
	}
	printf(c.App.Writer, "%s", metricsTable([]string{"Epipolar error (px)", "Square size (m)"}, rows))
	return nil
}
