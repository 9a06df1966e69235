package rimage

import (
	"math"

	"github.com/golang/geo/r2"
)

// PointDistance is the euclidean distance between two points.
func PointDistance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// ScalePoints returns a copy of pts with x multiplied by sx and y by sy.
func ScalePoints(pts []r2.Point, sx, sy float64) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i] = r2.Point{X: p.X * sx, Y: p.Y * sy}
	}
	return out
}

// Centroid returns the mean of the points. An empty slice has a zero centroid.
func Centroid(pts []r2.Point) r2.Point {
	if len(pts) == 0 {
		return r2.Point{}
	}
	var sum r2.Point
	for _, p := range pts {
		sum = sum.Add(p)
	}
	return sum.Mul(1 / float64(len(pts)))
}

// MinAdjacentDistance is the shortest distance between horizontally or vertically adjacent
// points of a row-major grid with `cols` points per row. It returns +Inf when no pair exists.
func MinAdjacentDistance(pts []r2.Point, cols int) float64 {
	best := math.Inf(1)
	if cols <= 0 {
		return best
	}
	for i, p := range pts {
		if (i+1)%cols != 0 && i+1 < len(pts) {
			best = math.Min(best, PointDistance(p, pts[i+1]))
		}
		if i+cols < len(pts) {
			best = math.Min(best, PointDistance(p, pts[i+cols]))
		}
	}
	return best
}
