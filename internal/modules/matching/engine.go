// README: Dispatch engine: order intake, batch matching, acceptance flow, ETA workers, statistics.
package matching

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"courier/internal/config"
	"courier/internal/events"
	"courier/internal/geo"
	"courier/internal/modules/driver"
	"courier/internal/modules/order"
	"courier/internal/modules/routing"
	"courier/internal/modules/traffic"
	"courier/internal/types"
)

// RoutePlanner is the slice of the planner the engine needs for ETA work.
type RoutePlanner interface {
	PlanRoute(start, end types.Point, opts routing.Options) (*routing.Route, error)
}

type etaJob struct {
	orderID types.ID
}

// Engine owns the order arena and drives the matching loop. Drivers live
// in the pool; routes come from the planner; every state change goes out
// on the event bus.
type Engine struct {
	cfg     config.MatchingConfig
	pool    *driver.Pool
	queue   *order.Queue
	planner RoutePlanner
	bus     events.Publisher

	mu     sync.Mutex
	orders map[types.ID]*order.Order
	// epochs invalidates in-flight acceptance outcomes when an order is
	// cancelled or reassigned before the driver responds.
	epochs map[types.ID]int
	// terminalAt records when an order reached a terminal status, for
	// retention-based eviction.
	terminalAt    map[types.ID]time.Time
	currentRadius float64
	rng           *rand.Rand
	totalMatched  int
	totalRejected int
	completed     int
	cancelled     int

	now         func() time.Time
	acceptDelay func() time.Duration

	ticking atomic.Bool
	etaJobs chan etaJob
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithAcceptDelay overrides the simulated driver response delay.
func WithAcceptDelay(fn func() time.Duration) Option {
	return func(e *Engine) { e.acceptDelay = fn }
}

func New(cfg config.MatchingConfig, pool *driver.Pool, planner RoutePlanner, bus events.Publisher, opts ...Option) *Engine {
	if bus == nil {
		bus = events.Discard{}
	}
	e := &Engine{
		cfg:           cfg,
		pool:          pool,
		queue:         order.NewQueue(),
		planner:       planner,
		bus:           bus,
		orders:        make(map[types.ID]*order.Order),
		epochs:        make(map[types.ID]int),
		terminalAt:    make(map[types.ID]time.Time),
		currentRadius: cfg.RadiusKm,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		now:           time.Now,
		etaJobs:       make(chan etaJob, etaQueueSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.acceptDelay == nil {
		e.acceptDelay = func() time.Duration {
			e.mu.Lock()
			defer e.mu.Unlock()
			return time.Second + time.Duration(e.rng.Float64()*float64(2*time.Second))
		}
	}
	return e
}

// Run drives the matching loop and the ETA workers until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	for i := 0; i < etaWorkerCount; i++ {
		go e.etaWorker(ctx)
	}

	interval := time.Duration(e.cfg.TickSeconds) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// AddOrder validates and queues a new order.
func (e *Engine) AddOrder(o order.Order) (AddResult, error) {
	if o.ID == "" {
		return AddResult{}, fmt.Errorf("order id is empty: %w", ErrInvalidInput)
	}
	if !o.Cargo.Valid() {
		return AddResult{}, fmt.Errorf("cargo class %q: %w", o.Cargo, ErrInvalidInput)
	}
	if o.Pickup == o.Delivery {
		return AddResult{}, fmt.Errorf("pickup equals delivery: %w", ErrInvalidInput)
	}

	e.mu.Lock()
	if _, exists := e.orders[o.ID]; exists {
		e.mu.Unlock()
		return AddResult{}, fmt.Errorf("order %s already exists: %w", o.ID, ErrInvalidInput)
	}
	o.Status = order.StatusPending
	o.CreatedAt = e.now()
	o.Assignment = nil
	o.Tracking = nil
	e.orders[o.ID] = &o
	e.mu.Unlock()

	e.queue.Enqueue(o.ID, o.CreatedAt)
	return AddResult{
		QueuePosition:        e.queue.Position(o.ID),
		EstimatedWaitMinutes: e.estimateWaitMinutes(),
	}, nil
}

// estimateWaitMinutes blends a queue-length heuristic with the observed
// average wait, then scales by driver availability.
func (e *Engine) estimateWaitMinutes() float64 {
	queueLen := e.queue.Len()
	estimate := baseWaitMinutes + float64(queueLen)/10

	if avg := e.queue.AvgWaitMinutes(e.now()); avg > 0 {
		estimate = (estimate + avg) / 2
	}

	available := len(e.pool.Available(e.cfg.MaxOrdersPerDriver))
	if available == 0 {
		return estimate * 2
	}
	return estimate * 10 / float64(10+available)
}

// CancelOrder cancels a pending or assigned order. Refunds apply to any
// order cancelled before assignment, or within the refund window after it.
func (e *Engine) CancelOrder(id types.ID) (CancelResult, error) {
	e.mu.Lock()
	o, ok := e.orders[id]
	if !ok {
		e.mu.Unlock()
		return CancelResult{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if !order.CanTransition(o.Status, order.StatusCancelled) {
		e.mu.Unlock()
		return CancelResult{}, fmt.Errorf("cannot cancel order in status %s: %w", o.Status, ErrInvalidInput)
	}

	refund := true
	var detachFrom types.ID
	if o.Status == order.StatusAssigned && o.Assignment != nil {
		refund = e.now().Sub(o.Assignment.AssignedAt) <= refundWindow
		detachFrom = o.Assignment.DriverID
	}
	o.Status = order.StatusCancelled
	o.Assignment = nil
	e.epochs[id]++
	e.cancelled++
	e.terminalAt[id] = e.now()
	e.mu.Unlock()

	e.queue.Remove(id)
	if detachFrom != "" {
		if err := e.pool.Detach(detachFrom, id); err != nil {
			log.Printf("cancel order %s: detach: %v", id, err)
		}
	}
	e.bus.Publish(events.New(events.OrderCancelled, map[string]any{
		"order_id":        id,
		"refund_eligible": refund,
	}))
	return CancelResult{RefundEligible: refund}, nil
}

// CompleteOrder finishes an in-transit delivery and folds the customer
// rating back into the driver's average.
func (e *Engine) CompleteOrder(id types.ID, data order.CompletionData) (order.Order, error) {
	if data.Rating != 0 && (data.Rating < 1 || data.Rating > 5) {
		return order.Order{}, fmt.Errorf("rating %v out of range: %w", data.Rating, ErrInvalidInput)
	}

	e.mu.Lock()
	o, ok := e.orders[id]
	if !ok {
		e.mu.Unlock()
		return order.Order{}, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if !order.CanTransition(o.Status, order.StatusCompleted) {
		e.mu.Unlock()
		return order.Order{}, fmt.Errorf("cannot complete order in status %s: %w", o.Status, ErrInvalidInput)
	}
	driverID := o.Assignment.DriverID
	o.Status = order.StatusCompleted
	e.completed++
	e.terminalAt[id] = e.now()
	snapshot := copyOrder(o)
	e.mu.Unlock()

	if err := e.pool.Detach(driverID, id); err != nil {
		log.Printf("complete order %s: detach: %v", id, err)
	}
	if data.Rating != 0 {
		if err := e.pool.ApplyRating(driverID, data.Rating); err != nil {
			log.Printf("complete order %s: rating: %v", id, err)
		}
	}
	e.bus.Publish(events.New(events.OrderCompleted, map[string]any{
		"order_id":  id,
		"driver_id": driverID,
		"rating":    data.Rating,
		"signature": data.Signature,
	}))
	return snapshot, nil
}

// Order returns a copy of the order.
func (e *Engine) Order(id types.ID) (order.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return copyOrder(o), true
}

// UpdateDriverPosition moves a driver and refreshes ETAs for their active
// orders. Unknown drivers are logged and ignored.
func (e *Engine) UpdateDriverPosition(id types.ID, position types.Point) {
	if err := e.pool.UpdatePosition(id, position); err != nil {
		log.Printf("driver position update: %v", err)
		return
	}
	d, ok := e.pool.Get(id)
	if !ok {
		return
	}
	for _, orderID := range d.ActiveOrders {
		e.mu.Lock()
		if o, ok := e.orders[orderID]; ok && o.Tracking != nil {
			o.Tracking.CurrentLocation = position
			o.Tracking.UpdatedAt = e.now()
		}
		e.mu.Unlock()
		e.submitETA(orderID)
	}
}

// UpdateDriverStatus changes a driver's status. Orders detached by a
// driver going offline return to the head-end of the queue with their
// original timestamps.
func (e *Engine) UpdateDriverStatus(id types.ID, status driver.Status) {
	detached, err := e.pool.UpdateStatus(id, status)
	if err != nil {
		log.Printf("driver status update: %v", err)
		return
	}
	for _, orderID := range detached {
		e.mu.Lock()
		o, ok := e.orders[orderID]
		if !ok {
			e.mu.Unlock()
			continue
		}
		if !order.CanTransition(o.Status, order.StatusPending) {
			// in-transit deliveries cannot return to the queue
			log.Printf("driver %s went offline with order %s in status %s", id, orderID, o.Status)
			e.mu.Unlock()
			continue
		}
		o.Status = order.StatusPending
		o.Assignment = nil
		o.Tracking = nil
		e.epochs[orderID]++
		createdAt := o.CreatedAt
		e.mu.Unlock()
		e.queue.Enqueue(orderID, createdAt)
	}
}

// OnTrafficUpdate widens the search radius during peak hours.
func (e *Engine) OnTrafficUpdate(u traffic.Update) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if u.Peak {
		e.currentRadius = e.cfg.RadiusKm * peakRadiusFactor
	} else {
		e.currentRadius = e.cfg.RadiusKm
	}
}

// Statistics snapshots queue depth, fleet state, and match totals.
func (e *Engine) Statistics() Statistics {
	available, busy, offline := e.pool.Counts()
	queueLen := e.queue.Len()

	e.mu.Lock()
	matched, rejected := e.totalMatched, e.totalRejected
	completed, cancelled := e.completed, e.cancelled
	now := e.now()
	e.mu.Unlock()

	rate := 1.0
	if total := matched + rejected + queueLen; total > 0 {
		rate = float64(matched) / float64(total)
	}
	return Statistics{
		QueueLength:      queueLen,
		AvailableDrivers: available,
		BusyDrivers:      busy,
		OfflineDrivers:   offline,
		AvgWaitMinutes:   e.queue.AvgWaitMinutes(now),
		MatchingRate:     rate,
		TotalMatched:     matched,
		TotalRejected:    rejected,
		TotalCompleted:   completed,
		TotalCancelled:   cancelled,
	}
}

// Tick runs one matching round. Overlapping ticks are skipped rather than
// queued.
func (e *Engine) Tick() {
	if !e.ticking.CompareAndSwap(false, true) {
		return
	}
	defer e.ticking.Store(false)
	e.matchBatch()
	e.pruneTerminal()
}

// pruneTerminal evicts completed and cancelled orders whose retention
// window has passed, along with their epoch counters.
func (e *Engine) pruneTerminal() {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := e.now().Add(-orderRetention)
	for id, at := range e.terminalAt {
		if at.After(cutoff) {
			continue
		}
		delete(e.orders, id)
		delete(e.epochs, id)
		delete(e.terminalAt, id)
	}
}

// matchBatch scores the head of the queue against every driver with
// capacity and assigns greedily, urgent orders first.
func (e *Engine) matchBatch() {
	batch := e.queue.Peek(e.cfg.BatchSize)
	if len(batch) == 0 {
		return
	}

	e.mu.Lock()
	radius := e.currentRadius
	pending := make([]*order.Order, 0, len(batch))
	for _, id := range batch {
		if o, ok := e.orders[id]; ok && o.Status == order.StatusPending {
			pending = append(pending, o)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Urgent != pending[j].Urgent {
			return pending[i].Urgent
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	e.mu.Unlock()

	candidates := e.pool.Available(e.cfg.MaxOrdersPerDriver)
	// a driver takes at most one order per batch; the rest wait for the
	// next tick
	assigned := make(map[types.ID]bool)
	for _, o := range pending {
		effectiveRadius := radius
		if o.Urgent {
			effectiveRadius *= urgentRadiusFactor
		}

		bestIdx := -1
		bestScore := 0.0
		for i := range candidates {
			if assigned[candidates[i].ID] {
				continue
			}
			if s := score(&candidates[i], o, effectiveRadius, e.cfg); s > bestScore {
				bestScore = s
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			continue
		}
		if e.assign(o.ID, candidates[bestIdx].ID, bestScore) {
			assigned[candidates[bestIdx].ID] = true
		}
	}
}

// assign moves a pending order to a driver and schedules the driver's
// accept-or-reject response.
func (e *Engine) assign(orderID, driverID types.ID, matchScore float64) bool {
	e.mu.Lock()
	o, ok := e.orders[orderID]
	if !ok || !order.CanTransition(o.Status, order.StatusAssigned) {
		e.mu.Unlock()
		return false
	}
	if err := e.pool.Attach(driverID, orderID, e.cfg.MaxOrdersPerDriver); err != nil {
		log.Printf("assign %s to %s: %v", orderID, driverID, err)
		e.mu.Unlock()
		return false
	}
	o.Status = order.StatusAssigned
	o.Assignment = &order.Assignment{
		DriverID:   driverID,
		Score:      matchScore,
		AssignedAt: e.now(),
	}
	e.epochs[orderID]++
	epoch := e.epochs[orderID]
	e.totalMatched++
	e.mu.Unlock()

	e.queue.Remove(orderID)
	e.bus.Publish(events.New(events.OrderAssigned, map[string]any{
		"order_id":  orderID,
		"driver_id": driverID,
		"score":     matchScore,
	}))
	e.submitETA(orderID)

	time.AfterFunc(e.acceptDelay(), func() {
		e.resolveOutcome(orderID, driverID, epoch)
	})
	return true
}

// resolveOutcome simulates the driver's response. A stale epoch means the
// order was cancelled or reassigned while the response was in flight, and
// the outcome is discarded.
func (e *Engine) resolveOutcome(orderID, driverID types.ID, epoch int) {
	d, ok := e.pool.Get(driverID)
	if !ok {
		return
	}

	e.mu.Lock()
	o, exists := e.orders[orderID]
	if !exists || e.epochs[orderID] != epoch ||
		o.Status != order.StatusAssigned ||
		o.Assignment == nil || o.Assignment.DriverID != driverID {
		e.mu.Unlock()
		return
	}

	accepted := e.rng.Float64() <= d.Reliability
	var createdAt time.Time
	if accepted {
		o.Status = order.StatusInTransit
	} else {
		o.Status = order.StatusPending
		o.Assignment = nil
		o.Tracking = nil
		o.Rejections++
		e.epochs[orderID]++
		e.totalRejected++
		createdAt = o.CreatedAt
	}
	e.mu.Unlock()

	if accepted {
		e.bus.Publish(events.New(events.DriverAcceptedOrder, map[string]any{
			"order_id":  orderID,
			"driver_id": driverID,
		}))
		return
	}

	if err := e.pool.Detach(driverID, orderID); err != nil {
		log.Printf("reject %s by %s: detach: %v", orderID, driverID, err)
	}
	e.queue.RequeueAtHead(orderID, createdAt)
	e.bus.Publish(events.New(events.DriverRejectedOrder, map[string]any{
		"order_id":  orderID,
		"driver_id": driverID,
	}))
}

// submitETA queues a tracking refresh; a full queue drops the job rather
// than blocking dispatch.
func (e *Engine) submitETA(orderID types.ID) {
	select {
	case e.etaJobs <- etaJob{orderID: orderID}:
	default:
		log.Printf("eta queue full, dropping refresh for %s", orderID)
	}
}

func (e *Engine) etaWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-e.etaJobs:
			e.refreshETA(job.orderID)
		}
	}
}

// refreshETA plans driver->pickup and pickup->delivery and writes the
// tracking estimate. When no route exists the estimate degrades to a
// straight-line approximation.
func (e *Engine) refreshETA(orderID types.ID) {
	e.mu.Lock()
	o, ok := e.orders[orderID]
	if !ok || o.Assignment == nil {
		e.mu.Unlock()
		return
	}
	driverID := o.Assignment.DriverID
	pickup, delivery := o.Pickup, o.Delivery
	e.mu.Unlock()

	d, ok := e.pool.Get(driverID)
	if !ok {
		return
	}

	degraded := false
	pickupMinutes, pickupKm, err := e.legEstimate(d.Position, pickup)
	if err != nil {
		degraded = true
	}
	deliveryMinutes, deliveryKm, err := e.legEstimate(pickup, delivery)
	if err != nil {
		degraded = true
	}

	now := e.now()
	estimatedPickup := now.Add(time.Duration(pickupMinutes * float64(time.Minute)))
	estimatedArrival := estimatedPickup.Add(time.Duration(deliveryMinutes * float64(time.Minute)))
	if degraded {
		estimatedArrival = estimatedArrival.Add(fallbackDeliveryPad)
		log.Printf("eta for %s degraded to straight-line estimate", orderID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok = e.orders[orderID]
	if !ok || o.Assignment == nil || o.Assignment.DriverID != driverID {
		return
	}
	o.Tracking = &order.Tracking{
		CurrentLocation:  d.Position,
		EstimatedPickup:  estimatedPickup,
		EstimatedArrival: estimatedArrival,
		DistanceKm:       pickupKm + deliveryKm,
		Degraded:         degraded,
		UpdatedAt:        now,
	}
}

// legEstimate returns planned minutes and distance for one leg, falling
// back to haversine distance at a fixed pace when planning fails.
func (e *Engine) legEstimate(from, to types.Point) (minutes, distanceKm float64, err error) {
	if e.planner == nil {
		err = routing.ErrNoRoute
	} else {
		route, planErr := e.planner.PlanRoute(from, to, routing.Options{})
		if planErr == nil {
			return route.Duration.Minutes(), route.DistanceKm, nil
		}
		err = planErr
	}
	km := geo.HaversineKm(from, to)
	return km * fallbackMinutesPerKm, km, err
}

func copyOrder(o *order.Order) order.Order {
	out := *o
	if o.Assignment != nil {
		a := *o.Assignment
		out.Assignment = &a
	}
	if o.Tracking != nil {
		tr := *o.Tracking
		out.Tracking = &tr
	}
	return out
}
