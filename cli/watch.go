package cli

import (
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"go.viam.com/camcal/calibration"
	"go.viam.com/camcal/rimage"
)

var watchedExtensions = []string{".png", ".jpg", ".jpeg"}

func isWatchedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range watchedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// WatchAction samples frames as they appear in a directory. It calibrates once the samples cover
// enough of the pose space, or with whatever was sampled when interrupted.
func WatchAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one directory")
	}
	dir := c.Args().First()
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return errors.Errorf("%s is not a directory", dir)
	}
	env, err := setup(c)
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(env.Close)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer utils.UncheckedErrorFunc(watcher.Close)
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watching %s", dir)
	}

	fw, err := newFrameWatcher(c, env)
	if err != nil {
		return err
	}
	env.logger.Infow("watching for frames", "dir", dir, "stereo", c.Bool(flagStereo))
	if err := fw.run(c.Context, watcher.Events, watcher.Errors); err != nil {
		return err
	}
	return fw.finish(c)
}

// frameWatcher feeds new image files to a calibrator. Stereo frames are paired by name: a file
// left<suffix> goes with right<suffix>.
type frameWatcher struct {
	env    *runEnv
	out    io.Writer
	mono   *calibration.MonoCalibrator
	stereo *calibration.StereoCalibrator

	// seen holds the files already fed to the calibrator.
	seen map[string]bool
}

func newFrameWatcher(c *cli.Context, env *runEnv) (*frameWatcher, error) {
	fw := &frameWatcher{env: env, out: c.App.Writer, seen: map[string]bool{}}
	var err error
	if c.Bool(flagStereo) {
		fw.stereo, err = calibration.NewStereoCalibrator(env.cfg.Session, env.detector, env.solver, env.logger)
	} else {
		fw.mono, err = calibration.NewMonoCalibrator(env.cfg.Session, env.detector, env.solver, env.logger)
	}
	return fw, err
}

func (fw *frameWatcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			fw.env.logger.Infow("stopped watching", "reason", ctx.Err())
			return nil
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			fw.env.logger.Warnw("watch error", "error", err)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !isWatchedImage(ev.Name) || fw.seen[ev.Name] {
				continue
			}
			ready, err := fw.handle(ev.Name)
			if err != nil {
				return err
			}
			if ready {
				fw.env.logger.Info("coverage is sufficient")
				return nil
			}
		}
	}
}

// readFrame returns nil when the file cannot be decoded yet, as happens while it is still being
// written; a later write event retries it.
func (fw *frameWatcher) readFrame(path string) *image.Gray {
	img, err := rimage.ReadGrayFile(path)
	if err != nil {
		fw.env.logger.Debugw("frame not readable yet", "path", path, "error", err)
		return nil
	}
	fw.seen[path] = true
	return img
}

func (fw *frameWatcher) handle(path string) (bool, error) {
	if fw.mono != nil {
		img := fw.readFrame(path)
		if img == nil {
			return false, nil
		}
		res, err := fw.mono.ProcessFrame(img)
		if err != nil {
			return false, errors.Wrapf(err, "processing %s", path)
		}
		return fw.report(path, res.Added, res.Coverage), nil
	}

	dir, base := filepath.Split(path)
	var leftPath, rightPath string
	switch {
	case strings.HasPrefix(base, "left"):
		leftPath, rightPath = path, filepath.Join(dir, "right"+strings.TrimPrefix(base, "left"))
	case strings.HasPrefix(base, "right"):
		leftPath, rightPath = filepath.Join(dir, "left"+strings.TrimPrefix(base, "right")), path
	default:
		fw.env.logger.Debugw("ignoring file that is neither left nor right", "path", path)
		fw.seen[path] = true
		return false, nil
	}
	if _, err := os.Stat(leftPath); err != nil {
		return false, nil
	}
	if _, err := os.Stat(rightPath); err != nil {
		return false, nil
	}
	left, right := fw.readFrame(leftPath), fw.readFrame(rightPath)
	if left == nil || right == nil {
		delete(fw.seen, leftPath)
		delete(fw.seen, rightPath)
		return false, nil
	}
	res, err := fw.stereo.ProcessFramePair(left, right)
	if err != nil {
		return false, errors.Wrapf(err, "processing %s and %s", leftPath, rightPath)
	}
	return fw.report(leftPath, res.Added, res.Coverage), nil
}

func (fw *frameWatcher) report(path string, added bool, cov calibration.CoverageState) bool {
	if added {
		printf(fw.out, "Sampled %s\n%s", filepath.Base(path), coverageTable(cov))
	}
	return cov.Ready
}

// finish solves with the collected samples and writes the archive.
func (fw *frameWatcher) finish(c *cli.Context) error {
	ctx := fw.env.solveContext(context.WithoutCancel(c.Context))
	if fw.mono != nil {
		if len(fw.mono.Samples()) == 0 {
			warningf(c.App.Writer, "no samples were collected")
			return nil
		}
		info, err := fw.mono.Solve(ctx)
		if err != nil {
			return err
		}
		if err := printMono(c.App.Writer, info); err != nil {
			return err
		}
		contents, err := fw.mono.ArchiveContents()
		if err != nil {
			return err
		}
		return writeArchive(c, fw.env, contents)
	}

	if len(fw.stereo.Samples()) == 0 {
		warningf(c.App.Writer, "no samples were collected")
		return nil
	}
	result, err := fw.stereo.Solve(ctx)
	if err != nil {
		return err
	}
	if err := printStereo(c.App.Writer, result); err != nil {
		return err
	}
	contents, err := fw.stereo.ArchiveContents()
	if err != nil {
		return err
	}
	return writeArchive(c, fw.env, contents)
}
