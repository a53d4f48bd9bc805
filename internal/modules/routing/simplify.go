// README: Douglas-Peucker route simplification.
package routing

import (
	"courier/internal/geo"
	"courier/internal/types"
)

// Simplify reduces a point sequence with the Douglas-Peucker algorithm.
// The first and last points always survive; a tolerance of zero (or a
// sequence of at most two points) returns the input unchanged.
func Simplify(points []types.Point, tolerance float64) []types.Point {
	if tolerance <= 0 || len(points) <= 2 {
		return points
	}

	keep := make([]bool, len(points))
	keep[0] = true
	keep[len(points)-1] = true
	markKept(points, 0, len(points)-1, tolerance, keep)

	out := make([]types.Point, 0, len(points))
	for i, p := range points {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func markKept(points []types.Point, start, end int, tolerance float64, keep []bool) {
	if end-start < 2 {
		return
	}

	maxDist := 0.0
	maxIndex := start
	for i := start + 1; i < end; i++ {
		d := geo.PointSegmentDistance(points[i], points[start], points[end])
		if d > maxDist {
			maxDist = d
			maxIndex = i
		}
	}

	if maxDist > tolerance {
		keep[maxIndex] = true
		markKept(points, start, maxIndex, tolerance, keep)
		markKept(points, maxIndex, end, tolerance, keep)
	}
}
