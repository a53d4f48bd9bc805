// README: Traffic model; recomputes edge coefficients, invalidates cached routes, notifies subscribers.
package traffic

import (
	"math/rand"
	"sync"
	"time"

	"courier/internal/events"
	"courier/internal/modules/graph"
	"courier/internal/types"
)

// CacheInvalidator is the route planner's cache as seen from here. Every tick
// clears it wholesale; stale routes must never survive a traffic change.
type CacheInvalidator interface {
	InvalidateAll()
}

type Model struct {
	mu         sync.RWMutex
	graph      *graph.Store
	conditions map[types.ID]Condition
	rng        *rand.Rand
	now        func() time.Time

	cache CacheInvalidator
	bus   events.Publisher
	subs  []func(Update)
}

type Option func(*Model)

func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

func WithPublisher(bus events.Publisher) Option {
	return func(m *Model) { m.bus = bus }
}

// New seeds an initial coefficient for every edge from its road class:
// main roads start slightly loaded, secondary roads mostly clear, local
// streets anywhere in between.
func New(g *graph.Store, rng *rand.Rand, opts ...Option) *Model {
	m := &Model{
		graph:      g,
		conditions: make(map[types.ID]Condition),
		rng:        rng,
		now:        time.Now,
		bus:        events.Discard{},
	}
	for _, opt := range opts {
		opt(m)
	}

	at := m.now()
	g.EachEdge(func(e *graph.Edge) {
		var c float64
		switch e.Class {
		case graph.RoadMain:
			c = 0.9 + m.rng.Float64()*0.5
		case graph.RoadSecondary:
			c = 0.8 + m.rng.Float64()*0.4
		default:
			c = 0.7 + m.rng.Float64()*0.7
		}
		m.conditions[e.ID] = Condition{Coefficient: c, UpdatedAt: at}
	})
	return m
}

// SetInvalidator wires the planner cache in after construction; the planner
// itself is built on top of this model, so the reference arrives late.
func (m *Model) SetInvalidator(c CacheInvalidator) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = c
}

// Subscribe registers fn to run after every tick. Callbacks fire outside the
// model's lock.
func (m *Model) Subscribe(fn func(Update)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Coefficient returns the current multiplier for an edge, 1.0 when unknown.
func (m *Model) Coefficient(edgeID types.ID) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.conditions[edgeID]; ok {
		return c.Coefficient
	}
	return 1.0
}

func (m *Model) Condition(edgeID types.ID) (Condition, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conditions[edgeID]
	return c, ok
}

// CongestedFraction reports the share of edges above CongestedThreshold.
func (m *Model) CongestedFraction() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.conditions) == 0 {
		return 0
	}
	congested := 0
	for _, c := range m.conditions {
		if c.Coefficient > CongestedThreshold {
			congested++
		}
	}
	return float64(congested) / float64(len(m.conditions))
}

// Tick drifts every edge coefficient by a bounded random amount, pushes
// main roads harder during peak hours, clamps to the legal band, then clears
// the route cache and notifies subscribers.
func (m *Model) Tick() {
	m.mu.Lock()
	at := m.now()
	peak := IsPeakHour(at)

	m.graph.EachEdge(func(e *graph.Edge) {
		cond, ok := m.conditions[e.ID]
		if !ok {
			cond = Condition{Coefficient: 1.0}
		}
		change := m.rng.Float64()*2*maxDrift - maxDrift
		if peak && e.Class == graph.RoadMain {
			change += peakMainSurcharge
		}
		c := cond.Coefficient + change
		if c < MinCoefficient {
			c = MinCoefficient
		}
		if c > MaxCoefficient {
			c = MaxCoefficient
		}
		m.conditions[e.ID] = Condition{Coefficient: c, UpdatedAt: at}
	})

	cache := m.cache
	subs := make([]func(Update), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	if cache != nil {
		cache.InvalidateAll()
	}
	update := Update{At: at, Peak: peak}
	for _, fn := range subs {
		fn(update)
	}
	m.bus.Publish(events.New(events.TrafficUpdated, update))
}
