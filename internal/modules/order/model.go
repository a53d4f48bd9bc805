// README: Order record, status machine, and completion payloads.
package order

import (
	"time"

	"courier/internal/types"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllowedTransitions is the full order status machine. Completed and
// cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusInTransit, StatusPending, StatusCancelled},
	StatusInTransit: {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Assignment records the matched driver and the score that won the match.
type Assignment struct {
	DriverID   types.ID  `json:"driver_id"`
	Score      float64   `json:"score"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Tracking carries the latest ETA picture for an assigned order. Degraded
// marks estimates produced by the straight-line fallback instead of a
// planned route.
type Tracking struct {
	CurrentLocation  types.Point `json:"current_location"`
	EstimatedPickup  time.Time   `json:"estimated_pickup"`
	EstimatedArrival time.Time   `json:"estimated_arrival"`
	DistanceKm       float64     `json:"distance_km"`
	Degraded         bool        `json:"degraded"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type Order struct {
	ID         types.ID        `json:"id"`
	Pickup     types.Point     `json:"pickup"`
	Delivery   types.Point     `json:"delivery"`
	Cargo      types.SizeClass `json:"cargo"`
	WeightKg   float64         `json:"weight_kg"`
	Urgent     bool            `json:"urgent"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	Assignment *Assignment     `json:"assignment,omitempty"`
	Tracking   *Tracking       `json:"tracking,omitempty"`
	// Rejections counts how many drivers turned the order down.
	Rejections int `json:"rejections"`
}

// CompletionData is the proof-of-delivery payload.
type CompletionData struct {
	Signature string  `json:"signature"`
	Comments  string  `json:"comments"`
	Rating    float64 `json:"rating"`
}
