// README: Engine event envelope and in-process fan-out dispatcher.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	OrderAssigned       Type = "order_assigned"
	DriverAcceptedOrder Type = "driver_accepted_order"
	DriverRejectedOrder Type = "driver_rejected_order"
	OrderCompleted      Type = "order_completed"
	OrderCancelled      Type = "order_cancelled"
	TrafficUpdated      Type = "traffic_updated"
)

type Event struct {
	ID      string    `json:"id"`
	Type    Type      `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

func New(t Type, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    t,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

// Publisher is the engine-facing side of the event pipeline.
type Publisher interface {
	Publish(Event)
}

// Dispatcher fans events out to registered subscribers. Delivery is
// synchronous; subscribers must not block.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

func (d *Dispatcher) Subscribe(fn func(Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, fn)
}

func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	subs := d.subs
	d.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// Discard swallows events; handy default when no pipeline is wired.
type Discard struct{}

func (Discard) Publish(Event) {}
