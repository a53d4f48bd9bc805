// Package geo contains pure geographic computation helpers.
package geo

import (
	"math"

	"courier/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(a, b types.Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// PointSegmentDistance returns the planar distance in degree units from p to
// the segment a-b. Degree space is good enough for route simplification at
// city scale; absolute accuracy does not matter, only relative deviation.
func PointSegmentDistance(p, a, b types.Point) float64 {
	dx := b.Lng - a.Lng
	dy := b.Lat - a.Lat

	lenSq := dx*dx + dy*dy
	t := -1.0
	if lenSq != 0 {
		t = ((p.Lng-a.Lng)*dx + (p.Lat-a.Lat)*dy) / lenSq
	}

	var cx, cy float64
	switch {
	case t < 0:
		cx, cy = a.Lng, a.Lat
	case t > 1:
		cx, cy = b.Lng, b.Lat
	default:
		cx, cy = a.Lng+t*dx, a.Lat+t*dy
	}

	ddx := p.Lng - cx
	ddy := p.Lat - cy
	return math.Sqrt(ddx*ddx + ddy*ddy)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
