// README: Route types, planning options, and planner errors.
package routing

import (
	"errors"
	"time"

	"courier/internal/types"
)

// DefaultCongestionExponent is applied to edge traffic coefficients when
// congestion avoidance is on. The exponent (rather than a plain multiply)
// biases the search away from congested edges without forbidding them.
const DefaultCongestionExponent = 2.0

var ErrNoRoute = errors.New("no route found")

type Options struct {
	AvoidCongestion bool
	// CongestionExponent overrides DefaultCongestionExponent when > 0.
	CongestionExponent float64
}

func (o Options) exponent() float64 {
	if o.CongestionExponent > 0 {
		return o.CongestionExponent
	}
	return DefaultCongestionExponent
}

type Segment struct {
	From       types.Point   `json:"from"`
	To         types.Point   `json:"to"`
	DistanceKm float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration"`
	Traffic    string        `json:"traffic"`
}

// Route is owned by the caller; the planner caches it internally and hands
// the same value back for repeated queries until traffic changes.
type Route struct {
	Points     []types.Point `json:"points"`
	Segments   []Segment     `json:"segments"`
	DistanceKm float64       `json:"distance_km"`
	Duration   time.Duration `json:"duration"`
}

// Adjustment is the outcome of a traffic-sensitive reroute check.
type Adjustment struct {
	Rerouted bool
	Route    *Route
}
