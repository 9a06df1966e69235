package calibration

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/camcal/rimage"
	"go.viam.com/camcal/utils"
)

// CornerSet is one detection of a board in image space, in the detector's row-major order.
// IDs is set only for partial views and names the board corner each point belongs to.
type CornerSet struct {
	Points []r2.Point `json:"points"`
	IDs    []int      `json:"ids,omitempty"`
}

// Len returns the number of detected corners.
func (cs CornerSet) Len() int {
	return len(cs.Points)
}

// Scaled returns a copy of the corner set with points multiplied by (sx, sy).
func (cs CornerSet) Scaled(sx, sy float64) CornerSet {
	return CornerSet{
		Points: rimage.ScalePoints(cs.Points, sx, sy),
		IDs:    cs.IDs,
	}
}

// Quad holds the four outer corners of a detection.
type Quad struct {
	UpLeft    r2.Point
	UpRight   r2.Point
	DownRight r2.Point
	DownLeft  r2.Point
}

// ExtractOuterCorners returns the outer corners of a complete detection.
func ExtractOuterCorners(cs CornerSet, board Board) (Quad, error) {
	n := board.ExpectedCorners()
	if cs.Len() != n {
		return Quad{}, newCornerCountMismatchError(cs.Len(), n)
	}
	cols, _ := board.Grid()
	return Quad{
		UpLeft:    cs.Points[0],
		UpRight:   cs.Points[cols-1],
		DownRight: cs.Points[n-1],
		DownLeft:  cs.Points[n-cols],
	}, nil
}

// ExtractLargestVisibleRectangle returns the corners of the largest axis aligned rectangle of
// the board grid whose four corners were all detected. A rectangle's area is the number of grid
// corners it spans, and rectangles one row or column thin are never chosen. Rectangles are
// scanned with the left column, right column, bottom row and top row increasing in that order,
// and a later rectangle only replaces the best one when its area is strictly larger.
func ExtractLargestVisibleRectangle(cs CornerSet, board Board) (Quad, error) {
	if len(cs.IDs) != cs.Len() {
		return Quad{}, errors.Wrapf(ErrCornerCountMismatch, "%d ids for %d corners", len(cs.IDs), cs.Len())
	}
	xdim, ydim := board.Grid()
	position := make(map[int]r2.Point, len(cs.IDs))
	for i, id := range cs.IDs {
		position[id] = cs.Points[i]
	}
	visible := func(x, y int) bool {
		_, ok := position[y*xdim+x]
		return ok
	}

	bestArea := 0
	var x1Best, x2Best, y1Best, y2Best int
	for x1 := 0; x1 < xdim; x1++ {
		for x2 := x1 + 1; x2 < xdim; x2++ {
			for y1 := 0; y1 < ydim; y1++ {
				for y2 := y1 + 1; y2 < ydim; y2++ {
					area := (x2 - x1 + 1) * (y2 - y1 + 1)
					if area > bestArea && visible(x1, y1) && visible(x2, y1) && visible(x1, y2) && visible(x2, y2) {
						bestArea = area
						x1Best, x2Best, y1Best, y2Best = x1, x2, y1, y2
					}
				}
			}
		}
	}
	if bestArea == 0 {
		return Quad{}, errors.Wrap(ErrCornerCountMismatch, "no rectangle of visible corners")
	}

	// ChArUco ids grow upwards, so the highest row is the top of the image.
	return Quad{
		UpLeft:    position[y2Best*xdim+x1Best],
		UpRight:   position[y2Best*xdim+x2Best],
		DownRight: position[y1Best*xdim+x2Best],
		DownLeft:  position[y1Best*xdim+x1Best],
	}, nil
}

// outerQuad dispatches to the outer corner extractor for the board pattern.
func outerQuad(cs CornerSet, board Board) (Quad, error) {
	if board.Pattern.PartialViews() {
		return ExtractLargestVisibleRectangle(cs, board)
	}
	return ExtractOuterCorners(cs, board)
}

// Skew measures how far the angle at the upper right corner is from a right angle: 0 for a
// rectangle, 1 when the angle is off by half a radian or more.
func Skew(q Quad) float64 {
	ab := q.UpLeft.Sub(q.UpRight)
	cb := q.DownRight.Sub(q.UpRight)
	cos := ab.Dot(cb) / (ab.Norm() * cb.Norm())
	angle := math.Acos(utils.Clamp(cos, -1, 1))
	return math.Min(1, 2*math.Abs(math.Pi/2-angle))
}

// Area returns the area of a convex quadrilateral as half the cross product of its diagonals.
func Area(q Quad) float64 {
	a := q.UpRight.Sub(q.UpLeft)
	b := q.DownRight.Sub(q.UpRight)
	c := q.DownLeft.Sub(q.DownRight)
	p := b.Add(c)
	d := a.Add(b)
	return math.Abs(p.Cross(d)) / 2
}

// PoseParams describes where a board appears in the frame: center X, center Y, relative size
// and skew, each in [0,1].
type PoseParams [4]float64

// ParamNames are the display names of the pose parameters, in order.
var ParamNames = [4]string{"X", "Y", "Size", "Skew"}

// X is the horizontal board position.
func (p PoseParams) X() float64 { return p[0] }

// Y is the vertical board position.
func (p PoseParams) Y() float64 { return p[1] }

// Size is the square root of the fraction of the frame the board covers.
func (p PoseParams) Size() float64 { return p[2] }

// Skew is the board skew.
func (p PoseParams) Skew() float64 { return p[3] }

// L1 returns the sum of absolute differences between two parameter vectors.
func (p PoseParams) L1(other PoseParams) float64 {
	var d float64
	for i := range p {
		d += math.Abs(p[i] - other[i])
	}
	return d
}

// ComputePoseParams derives the pose parameters of a detection in a frame of the given size.
// The center is normalized after shrinking the frame by half the board size on every side, so a
// large board can still reach both ends of the range.
func ComputePoseParams(cs CornerSet, board Board, frameSize image.Point) (PoseParams, error) {
	if frameSize.X <= 0 || frameSize.Y <= 0 {
		return PoseParams{}, errors.Errorf("invalid frame size %v", frameSize)
	}
	q, err := outerQuad(cs, board)
	if err != nil {
		return PoseParams{}, err
	}
	area := Area(q)
	border := math.Sqrt(area)
	w, h := float64(frameSize.X), float64(frameSize.Y)

	center := rimage.Centroid(cs.Points)

	return PoseParams{
		utils.Clamp01((center.X - border/2) / (w - border)),
		utils.Clamp01((center.Y - border/2) / (h - border)),
		utils.Clamp01(math.Sqrt(area / (w * h))),
		Skew(q),
	}, nil
}
