// README: Matching engine errors, request results, and statistics types.
package matching

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

const (
	// Scoring.
	baseScore             = 50.0
	maxScore              = 100.0
	ratingFloor           = 3.0
	ratingPointsPerStar   = 20.0
	urgencyBonus          = 20.0
	urgentEfficiencyBonus = 10.0
	efficiencyThreshold   = 0.8
	reliabilityPoints     = 10.0

	// Search radius scaling.
	urgentRadiusFactor = 1.5
	peakRadiusFactor   = 1.3

	// Wait estimation and ETA fallback.
	baseWaitMinutes      = 2.0
	fallbackMinutesPerKm = 2.0
	fallbackDeliveryPad  = 30 * time.Minute

	refundWindow = 5 * time.Minute

	// orderRetention is how long completed and cancelled orders stay
	// queryable before they are evicted from the arena.
	orderRetention = time.Hour

	etaWorkerCount = 4
	etaQueueSize   = 64
)

// AddResult is returned to the order creator: place in line and a rough
// wait estimate.
type AddResult struct {
	QueuePosition        int     `json:"queue_position"`
	EstimatedWaitMinutes float64 `json:"estimated_wait_minutes"`
}

type CancelResult struct {
	RefundEligible bool `json:"refund_eligible"`
}

// Statistics is a point-in-time snapshot of the dispatch system.
type Statistics struct {
	QueueLength      int     `json:"queue_length"`
	AvailableDrivers int     `json:"available_drivers"`
	BusyDrivers      int     `json:"busy_drivers"`
	OfflineDrivers   int     `json:"offline_drivers"`
	AvgWaitMinutes   float64 `json:"avg_wait_minutes"`
	MatchingRate     float64 `json:"matching_rate"`
	TotalMatched     int     `json:"total_matched"`
	TotalRejected    int     `json:"total_rejected"`
	TotalCompleted   int     `json:"total_completed"`
	TotalCancelled   int     `json:"total_cancelled"`
}
