// README: Driver-order compatibility scoring.
package matching

import (
	"courier/internal/config"
	"courier/internal/geo"
	"courier/internal/modules/driver"
	"courier/internal/modules/order"
)

// feasible reports whether the driver can serve the order at all, and the
// driver's distance to the pickup. Cargo must fit the vehicle class, the
// driver must be within radius and have spare capacity.
func feasible(d *driver.Driver, o *order.Order, radiusKm float64, maxOrders int) (float64, bool) {
	if d.Status == driver.StatusOffline {
		return 0, false
	}
	if o.Cargo.Rank() > d.Vehicle.Rank() {
		return 0, false
	}
	if !d.HasCapacity(maxOrders) {
		return 0, false
	}
	distanceKm := geo.HaversineKm(d.Position, o.Pickup)
	if distanceKm > radiusKm {
		return 0, false
	}
	return distanceKm, true
}

// score rates a feasible driver-order pair on a 0-100 scale. Infeasible
// pairs score exactly 0, so a positive score always means "can assign".
//
// The score starts at a flat base and adds three weighted components:
// proximity to the pickup, rating above the acceptable floor, and spare
// capacity. Urgent orders add a flat bonus, plus extra for high-efficiency
// drivers, and reliable drivers get a final nudge.
func score(d *driver.Driver, o *order.Order, radiusKm float64, cfg config.MatchingConfig) float64 {
	distanceKm, ok := feasible(d, o, radiusKm, cfg.MaxOrdersPerDriver)
	if !ok {
		return 0
	}

	distanceScore := (1 - distanceKm/radiusKm) * 100
	ratingScore := (d.Rating - ratingFloor) * ratingPointsPerStar
	loadScore := (1 - float64(len(d.ActiveOrders))/float64(cfg.MaxOrdersPerDriver)) * 100

	s := baseScore +
		cfg.DistanceWeight*distanceScore +
		cfg.RatingWeight*ratingScore +
		cfg.LoadWeight*loadScore

	if o.Urgent {
		s += urgencyBonus
		if d.Efficiency > efficiencyThreshold {
			s += urgentEfficiencyBonus
		}
	}
	s += d.Reliability * reliabilityPoints

	if s < 0 {
		return 0
	}
	if s > maxScore {
		return maxScore
	}
	return s
}
