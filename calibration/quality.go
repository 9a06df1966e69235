package calibration

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/utils"
)

// pointToLineDistance is the distance from p to the line through a and b.
func pointToLineDistance(p, a, b r2.Point) float64 {
	return math.Abs((b.X-a.X)*(a.Y-p.Y)-(a.X-p.X)*(b.Y-a.Y)) / b.Sub(a).Norm()
}

// LinearError measures how far undistorted corners are from lying on straight rows. For every
// board row with more than two detected corners, the distance of the inner corners to the line
// through the outermost two is collected; the result is their RMS. ids may be nil for complete
// detections. The second result is false when no row had enough corners.
func LinearError(undistorted []r2.Point, ids []int, board Board) (float64, bool) {
	cols, rows := board.Grid()
	if ids == nil {
		ids = lo.Range(len(undistorted))
	}
	if len(ids) != len(undistorted) {
		return 0, false
	}
	index := make(map[int]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	var distances []float64
	for row := 0; row < rows; row++ {
		inRow := lo.Filter(ids, func(id, _ int) bool {
			return id >= row*cols && id < (row+1)*cols
		})
		if len(inRow) <= 2 {
			continue
		}
		leftID, rightID := lo.Min(inRow), lo.Max(inRow)
		left, right := undistorted[index[leftID]], undistorted[index[rightID]]
		for _, id := range inRow {
			if id == leftID || id == rightID {
				continue
			}
			distances = append(distances, pointToLineDistance(undistorted[index[id]], left, right))
		}
	}
	return utils.RMS(distances)
}

// EpipolarError is the RMS vertical offset between matching rectified left and right corners.
func EpipolarError(left, right []r2.Point) (float64, error) {
	if len(left) != len(right) {
		return 0, errors.Wrapf(ErrCornerCountMismatch, "%d left and %d right corners", len(left), len(right))
	}
	diffs := make([]float64, len(left))
	for i := range left {
		diffs[i] = left[i].Y - right[i].Y
	}
	rms, ok := utils.RMS(diffs)
	if !ok {
		return 0, errors.New("no corners to compare")
	}
	return rms, nil
}

// ChessboardSize estimates the board square size by triangulating matching rectified corners
// and averaging the spacing along every row and column.
func ChessboardSize(left, right []r2.Point, board Board, model *transform.StereoCameraModel) (float64, error) {
	cols, rows := board.Grid()
	n := cols * rows
	if len(left) != n || len(right) != n {
		return 0, errors.Wrapf(ErrCornerCountMismatch, "%d left and %d right corners, expected %d", len(left), len(right), n)
	}
	pts := make([]r3.Vector, n)
	for i := range left {
		p, err := model.ProjectPixelTo3D(left[i].X, left[i].Y, left[i].X-right[i].X)
		if err != nil {
			return 0, err
		}
		pts[i] = p
	}

	lengths := make([]float64, 0, rows+cols)
	for r := 0; r < rows; r++ {
		lengths = append(lengths, pts[cols*r].Distance(pts[cols*r+cols-1])/float64(cols-1))
	}
	for c := 0; c < cols; c++ {
		lengths = append(lengths, pts[c].Distance(pts[c+cols*(rows-1)])/float64(rows-1))
	}
	mean, _ := utils.Mean(lengths)
	return mean, nil
}
