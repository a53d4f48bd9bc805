// README: Driver record and status lifecycle.
package driver

import (
	"time"

	"courier/internal/types"
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
	StatusOffline   Status = "offline"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// Driver is a courier in the fleet. Rating is a 1-5 running average;
// Efficiency and Reliability are 0-1 behavioral scores used by matching.
type Driver struct {
	ID           types.ID        `json:"id"`
	Name         string          `json:"name"`
	Position     types.Point     `json:"position"`
	Vehicle      types.SizeClass `json:"vehicle"`
	Status       Status          `json:"status"`
	Rating       float64         `json:"rating"`
	Efficiency   float64         `json:"efficiency"`
	Reliability  float64         `json:"reliability"`
	ActiveOrders []types.ID      `json:"active_orders"`
	LastUpdate   time.Time       `json:"last_update"`
}

// HasCapacity reports whether the driver can take one more order.
func (d *Driver) HasCapacity(maxOrders int) bool {
	return len(d.ActiveOrders) < maxOrders
}
