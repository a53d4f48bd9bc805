// README: In-memory driver pool: registration, status transitions, order attachment, rating feedback.
package driver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"courier/internal/types"
)

var (
	ErrUnknownDriver = errors.New("unknown driver")
	ErrAtCapacity    = errors.New("driver at capacity")
)

// ratingMemory controls how strongly a new rating moves the running average.
const ratingMemory = 0.8

// Pool holds the fleet. All access goes through the mutex; Get and
// Available hand out copies so callers never see concurrent mutation.
type Pool struct {
	mu      sync.Mutex
	drivers map[types.ID]*Driver
	order   []types.ID
	now     func() time.Time
}

type Option func(*Pool)

func WithClock(now func() time.Time) Option {
	return func(p *Pool) { p.now = now }
}

func NewPool(opts ...Option) *Pool {
	p := &Pool{
		drivers: make(map[types.ID]*Driver),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Add(d Driver) error {
	if d.ID == "" {
		return errors.New("driver id is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.drivers[d.ID]; ok {
		return fmt.Errorf("driver %s already registered", d.ID)
	}
	if d.Status == "" {
		d.Status = StatusAvailable
	}
	d.LastUpdate = p.now()
	p.drivers[d.ID] = &d
	p.order = append(p.order, d.ID)
	return nil
}

func (p *Pool) Get(id types.ID) (Driver, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[id]
	if !ok {
		return Driver{}, false
	}
	return copyDriver(d), true
}

func (p *Pool) UpdatePosition(id types.ID, position types.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[id]
	if !ok {
		return fmt.Errorf("update position %s: %w", id, ErrUnknownDriver)
	}
	d.Position = position
	d.LastUpdate = p.now()
	return nil
}

// UpdateStatus sets the driver's status. Going offline detaches every
// active order and returns their IDs so the caller can requeue them.
func (p *Pool) UpdateStatus(id types.ID, status Status) ([]types.ID, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid driver status %q", status)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[id]
	if !ok {
		return nil, fmt.Errorf("update status %s: %w", id, ErrUnknownDriver)
	}

	var detached []types.ID
	if status == StatusOffline && len(d.ActiveOrders) > 0 {
		detached = d.ActiveOrders
		d.ActiveOrders = nil
	}
	if status == StatusAvailable && len(d.ActiveOrders) > 0 {
		// carrying orders means busy regardless of what was reported
		status = StatusBusy
	}
	d.Status = status
	d.LastUpdate = p.now()
	return detached, nil
}

// Available returns copies of every driver that could take another order,
// in registration order.
func (p *Pool) Available(maxOrders int) []Driver {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Driver
	for _, id := range p.order {
		d := p.drivers[id]
		if d.Status == StatusOffline {
			continue
		}
		if !d.HasCapacity(maxOrders) {
			continue
		}
		out = append(out, copyDriver(d))
	}
	return out
}

// Attach assigns an order to the driver and marks them busy.
func (p *Pool) Attach(driverID, orderID types.ID, maxOrders int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[driverID]
	if !ok {
		return fmt.Errorf("attach to %s: %w", driverID, ErrUnknownDriver)
	}
	if d.Status == StatusOffline {
		return fmt.Errorf("driver %s is offline", driverID)
	}
	if !d.HasCapacity(maxOrders) {
		return fmt.Errorf("attach to %s: %w", driverID, ErrAtCapacity)
	}
	d.ActiveOrders = append(d.ActiveOrders, orderID)
	d.Status = StatusBusy
	d.LastUpdate = p.now()
	return nil
}

// Detach removes an order from the driver; with no orders left a driver
// who is not offline becomes available again.
func (p *Pool) Detach(driverID, orderID types.ID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[driverID]
	if !ok {
		return fmt.Errorf("detach from %s: %w", driverID, ErrUnknownDriver)
	}
	for i, id := range d.ActiveOrders {
		if id == orderID {
			d.ActiveOrders = append(d.ActiveOrders[:i], d.ActiveOrders[i+1:]...)
			break
		}
	}
	if len(d.ActiveOrders) == 0 && d.Status != StatusOffline {
		d.Status = StatusAvailable
	}
	d.LastUpdate = p.now()
	return nil
}

// ApplyRating folds a delivery rating into the driver's running average.
func (p *Pool) ApplyRating(driverID types.ID, rating float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.drivers[driverID]
	if !ok {
		return fmt.Errorf("rate %s: %w", driverID, ErrUnknownDriver)
	}
	d.Rating = ratingMemory*d.Rating + (1-ratingMemory)*rating
	return nil
}

// Counts returns the fleet split by status.
func (p *Pool) Counts() (available, busy, offline int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, d := range p.drivers {
		switch d.Status {
		case StatusAvailable:
			available++
		case StatusBusy:
			busy++
		case StatusOffline:
			offline++
		}
	}
	return available, busy, offline
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.drivers)
}

func copyDriver(d *Driver) Driver {
	out := *d
	out.ActiveOrders = append([]types.ID(nil), d.ActiveOrders...)
	return out
}
