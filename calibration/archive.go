package calibration

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"image"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/camcal/rimage"
)

const (
	archiveOwner = "calibrator"
	snapshotFile = "snapshot.json"
)

// ArchiveContents is what a calibration archive holds: the sampled frames and the calibration in
// YAML and OST form, plus an optional snapshot of the samples. Exactly one of Mono and Stereo is
// set.
type ArchiveContents struct {
	Left     []*image.Gray
	Right    []*image.Gray
	Mono     *CameraInfo
	Stereo   *StereoResult
	Snapshot *Snapshot
}

type archiveWriter struct {
	tw  *tar.Writer
	clk clock.Clock
}

func (aw *archiveWriter) add(name string, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(data)),
		ModTime:  aw.clk.Now(),
		Uname:    archiveOwner,
		Gname:    archiveOwner,
	}
	if err := aw.tw.WriteHeader(hdr); err != nil {
		return errors.Wrapf(err, "writing header for %s", name)
	}
	_, err := aw.tw.Write(data)
	return errors.Wrapf(err, "writing %s", name)
}

func (aw *archiveWriter) addImages(prefix string, imgs []*image.Gray) error {
	for i, img := range imgs {
		var buf bytes.Buffer
		if err := rimage.EncodePNG(&buf, img); err != nil {
			return err
		}
		if err := aw.add(fmt.Sprintf("%s-%04d.png", prefix, i), buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// WriteArchive writes a gzipped tar with the sampled frames, the calibration YAML and the OST
// text. A mono archive holds left-NNNN.png, ost.yaml and ost.txt; a stereo archive holds
// left-NNNN.png, right-NNNN.png, left.yaml, right.yaml and ost.txt. A snapshot, when given, is
// stored as snapshot.json.
func WriteArchive(w io.Writer, contents ArchiveContents, clk clock.Clock) (err error) {
	if (contents.Mono == nil) == (contents.Stereo == nil) {
		return errors.New("an archive holds exactly one mono or stereo calibration")
	}
	if clk == nil {
		clk = clock.New()
	}
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)
	defer func() {
		err = multierr.Combine(err, tw.Close(), gz.Close())
	}()
	aw := &archiveWriter{tw: tw, clk: clk}

	if err := aw.addImages("left", contents.Left); err != nil {
		return err
	}
	if err := aw.addImages("right", contents.Right); err != nil {
		return err
	}

	var ost string
	if contents.Mono != nil {
		data, err := contents.Mono.YAML()
		if err != nil {
			return err
		}
		if err := aw.add("ost.yaml", data); err != nil {
			return err
		}
		if ost, err = contents.Mono.OST(); err != nil {
			return err
		}
	} else {
		for _, leg := range []struct {
			name string
			info *CameraInfo
		}{{"left.yaml", &contents.Stereo.Left}, {"right.yaml", &contents.Stereo.Right}} {
			data, err := leg.info.YAML()
			if err != nil {
				return err
			}
			if err := aw.add(leg.name, data); err != nil {
				return err
			}
		}
		if ost, err = contents.Stereo.OST(); err != nil {
			return err
		}
	}
	if err := aw.add("ost.txt", []byte(ost)); err != nil {
		return err
	}
	if contents.Snapshot == nil {
		return nil
	}
	var buf bytes.Buffer
	if err := contents.Snapshot.Write(&buf); err != nil {
		return err
	}
	return aw.add(snapshotFile, buf.Bytes())
}

// Archive is the content read back from a calibration archive. Frames are ordered by file name.
// Calibrations are set when the matching YAML files are present.
type Archive struct {
	Left  []*image.Gray
	Right []*image.Gray
	Mono  *CameraInfo
	// LeftInfo and RightInfo come from a stereo archive.
	LeftInfo  *CameraInfo
	RightInfo *CameraInfo
	Snapshot  *Snapshot
}

func isArchiveImage(name, prefix string) bool {
	return strings.HasPrefix(name, prefix) && strings.EqualFold(path.Ext(name), ".png")
}

// ReadArchive reads frames and calibrations from an archive written by WriteArchive. Both gzipped
// and plain tar streams are accepted. An archive with right frames must have as many left ones.
func ReadArchive(r io.Reader) (*Archive, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading archive")
	}
	var tr *tar.Reader
	if gz, err := gzip.NewReader(bytes.NewReader(data)); err == nil {
		tr = tar.NewReader(gz)
	} else {
		tr = tar.NewReader(bytes.NewReader(data))
	}

	left := map[string]*image.Gray{}
	right := map[string]*image.Gray{}
	out := &Archive{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading archive entry")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := path.Base(hdr.Name)
		switch {
		case isArchiveImage(name, "left"), isArchiveImage(name, "right"):
			img, err := rimage.DecodeGray(tr)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding %s", hdr.Name)
			}
			if strings.HasPrefix(name, "left") {
				left[name] = img
			} else {
				right[name] = img
			}
		case name == "ost.yaml" || name == "left.yaml" || name == "right.yaml":
			raw, err := io.ReadAll(tr)
			if err != nil {
				return nil, errors.Wrapf(err, "reading %s", hdr.Name)
			}
			info, err := ParseCameraInfoYAML(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing %s", hdr.Name)
			}
			switch name {
			case "ost.yaml":
				out.Mono = info
			case "left.yaml":
				out.LeftInfo = info
			default:
				out.RightInfo = info
			}
		case name == snapshotFile:
			snap, err := ReadSnapshot(tr)
			if err != nil {
				return nil, err
			}
			out.Snapshot = snap
		}
	}
	if len(right) > 0 && len(left) != len(right) {
		return nil, errors.Errorf("archive has %d left frames and %d right frames", len(left), len(right))
	}
	out.Left = sortedImages(left)
	out.Right = sortedImages(right)
	return out, nil
}

func sortedImages(byName map[string]*image.Gray) []*image.Gray {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*image.Gray, len(names))
	for i, name := range names {
		out[i] = byName[name]
	}
	return out
}
