// README: Traffic condition state and tuning constants.
package traffic

import "time"

const (
	// Coefficients are clamped to this band; 1.0 is free flow at base speed.
	MinCoefficient = 0.6
	MaxCoefficient = 3.0

	// maxDrift bounds the random per-tick perturbation (±0.2).
	maxDrift = 0.2
	// peakMainSurcharge is the extra load put on main roads during peak hours.
	peakMainSurcharge = 0.3

	// CongestedThreshold marks an edge as congested for reroute decisions.
	CongestedThreshold = 1.5
)

// Condition is the mutable traffic state of one edge.
type Condition struct {
	Coefficient float64
	UpdatedAt   time.Time
}

// Update is what subscribers receive after each recompute.
type Update struct {
	At   time.Time
	Peak bool
}

// IsPeakHour reports whether t falls in the morning or evening rush window.
func IsPeakHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h <= 9) || (h >= 17 && h <= 19)
}

// Describe maps a coefficient to the descriptor shown on route segments.
func Describe(coefficient float64) string {
	switch {
	case coefficient < 0.8:
		return "free-flowing"
	case coefficient < 1.2:
		return "normal"
	case coefficient < 1.8:
		return "congested"
	default:
		return "heavily congested"
	}
}
