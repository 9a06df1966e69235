// Package calibration decides which calibration target views are worth keeping while a camera or
// stereo pair is being calibrated, tracks how well the kept views cover the space of target
// poses, and measures the quality of a calibration once it has been solved.
package calibration

import (
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Pattern is the kind of calibration target.
type Pattern int

// The supported calibration targets.
const (
	PatternChessboard Pattern = iota
	PatternCircles
	PatternACircles
	PatternChArUco
)

var patternNames = map[Pattern]string{
	PatternChessboard: "chessboard",
	PatternCircles:    "circles",
	PatternACircles:   "acircles",
	PatternChArUco:    "charuco",
}

func (p Pattern) String() string {
	if name, ok := patternNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePattern returns the pattern with the given name.
func ParsePattern(name string) (Pattern, error) {
	for p, n := range patternNames {
		if strings.EqualFold(n, name) {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown calibration pattern %q", name)
}

// MarshalText encodes the pattern name.
func (p Pattern) MarshalText() ([]byte, error) {
	if _, ok := patternNames[p]; !ok {
		return nil, errors.Errorf("unknown calibration pattern %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a pattern name.
func (p *Pattern) UnmarshalText(text []byte) error {
	parsed, err := ParsePattern(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PartialViews reports whether the detector may return a subset of the board's corners, each
// tagged with an id. Only marker boards can be partially seen.
func (p Pattern) PartialViews() bool {
	return p == PatternChArUco
}

// MarkerDictionary names a predefined ArUco marker dictionary.
type MarkerDictionary string

var markerDictionaries = []MarkerDictionary{
	"aruco_orig",
	"4x4_50", "4x4_100", "4x4_250", "4x4_1000",
	"5x5_50", "5x5_100", "5x5_250", "5x5_1000",
	"6x6_50", "6x6_100", "6x6_250", "6x6_1000",
	"7x7_50", "7x7_100", "7x7_250", "7x7_1000",
}

// ParseMarkerDictionary returns the dictionary with the given name.
func ParseMarkerDictionary(name string) (MarkerDictionary, error) {
	dict := MarkerDictionary(strings.ToLower(name))
	if !lo.Contains(markerDictionaries, dict) {
		return "", errors.Errorf("unknown aruco dictionary %q", name)
	}
	return dict, nil
}

// Board describes a calibration target. Cols and Rows count inner corners (or circles) for grid
// patterns and squares for ChArUco boards. Dim is the square size, or circle spacing, in meters.
type Board struct {
	Pattern    Pattern          `json:"pattern"`
	Cols       int              `json:"cols"`
	Rows       int              `json:"rows"`
	Dim        float64          `json:"dim"`
	MarkerSize float64          `json:"marker_size,omitempty"`
	Dictionary MarkerDictionary `json:"dictionary,omitempty"`
}

// NewBoard returns a grid board in the canonical orientation its detector reports.
func NewBoard(pattern Pattern, cols, rows int, dim float64) (Board, error) {
	if pattern == PatternChArUco {
		return Board{}, errors.New("charuco boards need a marker size and dictionary")
	}
	b := Board{Pattern: pattern, Cols: cols, Rows: rows, Dim: dim}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b.Canonical(), nil
}

// NewChArUcoBoard returns a ChArUco board of cols x rows squares.
func NewChArUcoBoard(cols, rows int, dim, markerSize float64, dict MarkerDictionary) (Board, error) {
	b := Board{
		Pattern:    PatternChArUco,
		Cols:       cols,
		Rows:       rows,
		Dim:        dim,
		MarkerSize: markerSize,
		Dictionary: dict,
	}
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Validate checks the board geometry.
func (b Board) Validate() error {
	if _, ok := patternNames[b.Pattern]; !ok {
		return errors.Errorf("unknown calibration pattern %d", int(b.Pattern))
	}
	if b.Cols < 2 || b.Rows < 2 {
		return errors.Errorf("board must be at least 2x2, got %dx%d", b.Cols, b.Rows)
	}
	if b.Dim <= 0 {
		return errors.Errorf("board square size must be positive, got %v", b.Dim)
	}
	if b.Pattern == PatternChArUco {
		if b.Cols < 3 || b.Rows < 3 {
			return errors.Errorf("charuco board must be at least 3x3 squares, got %dx%d", b.Cols, b.Rows)
		}
		if b.MarkerSize <= 0 || b.MarkerSize >= b.Dim {
			return errors.Errorf("marker size %v must be positive and smaller than the square size %v", b.MarkerSize, b.Dim)
		}
		if _, err := ParseMarkerDictionary(string(b.Dictionary)); err != nil {
			return err
		}
	}
	return nil
}

// Canonical returns the board with its dimensions ordered the way detectors report corners:
// chessboards have more columns than rows, asymmetric circle grids more rows than columns.
func (b Board) Canonical() Board {
	switch b.Pattern {
	case PatternChessboard:
		b.Cols, b.Rows = max(b.Cols, b.Rows), min(b.Cols, b.Rows)
	case PatternACircles:
		b.Cols, b.Rows = min(b.Cols, b.Rows), max(b.Cols, b.Rows)
	case PatternCircles, PatternChArUco:
	}
	return b
}

// Grid returns the columns and rows of the detected corner grid. A ChArUco board of n x m
// squares has (n-1) x (m-1) inner corners.
func (b Board) Grid() (cols, rows int) {
	if b.Pattern == PatternChArUco {
		return b.Cols - 1, b.Rows - 1
	}
	return b.Cols, b.Rows
}

// ExpectedCorners is the number of corners in a complete detection.
func (b Board) ExpectedCorners() int {
	cols, rows := b.Grid()
	return cols * rows
}

// ObjectPoints returns the planar target points of a complete detection in detector order.
// Unscaled points are in units of squares; scaled points are in meters.
func (b Board) ObjectPoints(scaled bool) []r3.Vector {
	if b.Pattern == PatternChArUco {
		return b.ObjectPointsFor(lo.Range(b.ExpectedCorners()))
	}
	cols, rows := b.Grid()
	pts := make([]r3.Vector, 0, cols*rows)
	for j := 0; j < cols*rows; j++ {
		row := float64(j / cols)
		col := float64(j % cols)
		if b.Pattern == PatternACircles {
			col = 2*col + float64((j/cols)%2)
		}
		p := r3.Vector{X: row, Y: col}
		if scaled {
			p = p.Mul(b.Dim)
		}
		pts = append(pts, p)
	}
	return pts
}

// ObjectPointsFor returns the positions, in meters, of the ChArUco inner corners with the given
// ids. Corner 0 is the inner corner nearest the board origin.
func (b Board) ObjectPointsFor(ids []int) []r3.Vector {
	cols, _ := b.Grid()
	return lo.Map(ids, func(id, _ int) r3.Vector {
		return r3.Vector{
			X: float64(id%cols+1) * b.Dim,
			Y: float64(id/cols+1) * b.Dim,
		}
	})
}
