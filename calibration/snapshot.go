package calibration

import (
	"encoding/json"
	"image"
	"io"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const snapshotVersion = 1

// SnapshotCorners is the serialized form of a CornerSet.
type SnapshotCorners struct {
	Points [][2]float64 `json:"points"`
	IDs    []int        `json:"ids,omitempty"`
}

func snapshotCornersFrom(cs CornerSet) SnapshotCorners {
	return SnapshotCorners{
		Points: lo.Map(cs.Points, func(p r2.Point, _ int) [2]float64 { return [2]float64{p.X, p.Y} }),
		IDs:    cs.IDs,
	}
}

func (sc SnapshotCorners) cornerSet() CornerSet {
	return CornerSet{
		Points: lo.Map(sc.Points, func(p [2]float64, _ int) r2.Point { return r2.Point{X: p[0], Y: p[1]} }),
		IDs:    sc.IDs,
	}
}

// SnapshotSample is the serialized form of a Sample. Frames are not kept.
type SnapshotSample struct {
	Params PoseParams       `json:"params"`
	Left   SnapshotCorners  `json:"left"`
	Right  *SnapshotCorners `json:"right,omitempty"`
}

// Snapshot is the resumable state of an acquiring session.
type Snapshot struct {
	Version   int              `json:"version"`
	SessionID uuid.UUID        `json:"session_id"`
	Stereo    bool             `json:"stereo"`
	Board     Board            `json:"board"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	Samples   []SnapshotSample `json:"samples"`
}

func newSnapshot(id uuid.UUID, stereo bool, board Board, size image.Point, samples []Sample) *Snapshot {
	return &Snapshot{
		Version:   snapshotVersion,
		SessionID: id,
		Stereo:    stereo,
		Board:     board,
		Width:     size.X,
		Height:    size.Y,
		Samples: lo.Map(samples, func(s Sample, _ int) SnapshotSample {
			out := SnapshotSample{Params: s.Params, Left: snapshotCornersFrom(s.Left)}
			if s.Right != nil {
				right := snapshotCornersFrom(*s.Right)
				out.Right = &right
			}
			return out
		}),
	}
}

// Size returns the frame size of the captured session.
func (s *Snapshot) Size() image.Point {
	return image.Pt(s.Width, s.Height)
}

func (s *Snapshot) checkBoard(board Board) error {
	if s.Board != board {
		return errors.Errorf("snapshot board %+v does not match session board %+v", s.Board, board)
	}
	return nil
}

func (s *Snapshot) samples() []Sample {
	return lo.Map(s.Samples, func(ss SnapshotSample, _ int) Sample {
		out := Sample{Params: ss.Params, Left: ss.Left.cornerSet()}
		if ss.Right != nil {
			right := ss.Right.cornerSet()
			out.Right = &right
		}
		return out
	})
}

// Write encodes the snapshot as JSON.
func (s *Snapshot) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(s), "encoding snapshot")
}

// ReadSnapshot decodes a snapshot written by Snapshot.Write.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, errors.Wrap(err, "decoding snapshot")
	}
	if snap.Version != snapshotVersion {
		return nil, errors.Wrapf(ErrSnapshotVersion, "got version %d", snap.Version)
	}
	if err := snap.Board.Validate(); err != nil {
		return nil, errors.Wrap(err, "snapshot board")
	}
	for i, s := range snap.Samples {
		if snap.Stereo && s.Right == nil {
			return nil, errors.Errorf("stereo snapshot sample %d has no right corners", i)
		}
	}
	return &snap, nil
}
