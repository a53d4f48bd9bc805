package matching

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"courier/internal/config"
	"courier/internal/events"
	"courier/internal/modules/driver"
	"courier/internal/modules/order"
	"courier/internal/modules/routing"
	"courier/internal/modules/traffic"
	"courier/internal/types"
)

var testNow = time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

// pickupNearby is ~1.6 km from the origin, well inside the default radius.
var (
	origin       = types.Point{Lng: 0, Lat: 0}
	pickupNearby = types.Point{Lng: 0.01, Lat: 0.01}
	dropoff      = types.Point{Lng: 0.03, Lat: 0.03}
	// pickupFar is ~6 km out: beyond the 5 km radius, inside the peak one.
	pickupFar = types.Point{Lng: 0, Lat: 0.054}
)

type eventRecorder struct {
	ch chan events.Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ch: make(chan events.Event, 32)}
}

func (r *eventRecorder) Publish(ev events.Event) { r.ch <- ev }

func (r *eventRecorder) wait(t *testing.T, want events.Type) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.ch:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

type stubPlanner struct {
	route *routing.Route
	err   error
}

func (s stubPlanner) PlanRoute(start, end types.Point, opts routing.Options) (*routing.Route, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.route, nil
}

func testMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{
		TickSeconds:        3,
		BatchSize:          10,
		MaxOrdersPerDriver: 3,
		RadiusKm:           5,
		DistanceWeight:     0.5,
		RatingWeight:       0.3,
		LoadWeight:         0.2,
	}
}

func newTestEngine(t *testing.T, pool *driver.Pool, bus events.Publisher) *Engine {
	t.Helper()
	return New(testMatchingConfig(), pool, nil, bus,
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
		WithAcceptDelay(func() time.Duration { return 0 }),
	)
}

func addTestDriver(t *testing.T, pool *driver.Pool, id types.ID, reliability float64) {
	t.Helper()
	err := pool.Add(driver.Driver{
		ID:          id,
		Name:        "driver " + string(id),
		Position:    origin,
		Vehicle:     types.SizeMedium,
		Rating:      4.5,
		Efficiency:  0.9,
		Reliability: reliability,
	})
	if err != nil {
		t.Fatalf("Add driver: %v", err)
	}
}

func testOrder(id types.ID) order.Order {
	return order.Order{
		ID:       id,
		Pickup:   pickupNearby,
		Delivery: dropoff,
		Cargo:    types.SizeSmall,
		WeightKg: 2,
	}
}

func mustAdd(t *testing.T, e *Engine, o order.Order) AddResult {
	t.Helper()
	res, err := e.AddOrder(o)
	if err != nil {
		t.Fatalf("AddOrder(%s): %v", o.ID, err)
	}
	return res
}

func TestScore(t *testing.T) {
	cfg := testMatchingConfig()
	base := driver.Driver{
		ID:          "d1",
		Position:    origin,
		Vehicle:     types.SizeMedium,
		Status:      driver.StatusAvailable,
		Rating:      4.5,
		Efficiency:  0.9,
		Reliability: 0.9,
	}
	o := testOrder("o1")

	t.Run("feasible pair scores positive", func(t *testing.T) {
		d := base
		if s := score(&d, &o, cfg.RadiusKm, cfg); s <= 0 || s > maxScore {
			t.Errorf("score = %v, want in (0, %v]", s, maxScore)
		}
	})

	t.Run("oversized cargo scores zero", func(t *testing.T) {
		d := base
		big := o
		big.Cargo = types.SizeLarge
		if s := score(&d, &big, cfg.RadiusKm, cfg); s != 0 {
			t.Errorf("score = %v, want 0", s)
		}
	})

	t.Run("out of radius scores zero", func(t *testing.T) {
		d := base
		far := o
		far.Pickup = pickupFar
		if s := score(&d, &far, cfg.RadiusKm, cfg); s != 0 {
			t.Errorf("score = %v, want 0", s)
		}
	})

	t.Run("offline scores zero", func(t *testing.T) {
		d := base
		d.Status = driver.StatusOffline
		if s := score(&d, &o, cfg.RadiusKm, cfg); s != 0 {
			t.Errorf("score = %v, want 0", s)
		}
	})

	t.Run("full load scores zero", func(t *testing.T) {
		d := base
		d.ActiveOrders = []types.ID{"a", "b", "c"}
		if s := score(&d, &o, cfg.RadiusKm, cfg); s != 0 {
			t.Errorf("score = %v, want 0", s)
		}
	})

	t.Run("closer driver wins", func(t *testing.T) {
		// modest traits keep both scores under the cap so they stay comparable
		near, farther := base, base
		near.Rating, near.Reliability = 3.0, 0.0
		near.ActiveOrders = []types.ID{"a", "b"}
		farther = near
		farther.Position = types.Point{Lng: 0.03, Lat: 0.03}
		sNear := score(&near, &o, cfg.RadiusKm, cfg)
		sFar := score(&farther, &o, cfg.RadiusKm, cfg)
		if sNear <= sFar {
			t.Errorf("near %v <= far %v", sNear, sFar)
		}
	})

	t.Run("urgency raises score up to the cap", func(t *testing.T) {
		d := base
		d.Rating = 3.0
		d.Efficiency = 0.5
		urgent := o
		urgent.Urgent = true
		plain := score(&d, &o, cfg.RadiusKm, cfg)
		boosted := score(&d, &urgent, cfg.RadiusKm, cfg)
		if boosted <= plain && boosted != maxScore {
			t.Errorf("urgent %v not above plain %v", boosted, plain)
		}
		if boosted > maxScore {
			t.Errorf("score %v exceeds cap", boosted)
		}
	})
}

func TestAddOrder_Validation(t *testing.T) {
	e := newTestEngine(t, driver.NewPool(), events.Discard{})

	tests := []struct {
		name string
		o    order.Order
	}{
		{"empty id", order.Order{Pickup: origin, Delivery: dropoff, Cargo: types.SizeSmall}},
		{"bad cargo", order.Order{ID: "o1", Pickup: origin, Delivery: dropoff, Cargo: "gigantic"}},
		{"same endpoints", order.Order{ID: "o1", Pickup: origin, Delivery: origin, Cargo: types.SizeSmall}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.AddOrder(tt.o); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	mustAdd(t, e, testOrder("o1"))
	if _, err := e.AddOrder(testOrder("o1")); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("duplicate err = %v, want ErrInvalidInput", err)
	}
}

func TestAddOrder_QueuePositionAndWait(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	e := newTestEngine(t, pool, events.Discard{})

	first := mustAdd(t, e, testOrder("o1"))
	if first.QueuePosition != 1 {
		t.Errorf("QueuePosition = %d, want 1", first.QueuePosition)
	}
	if first.EstimatedWaitMinutes <= 0 {
		t.Errorf("EstimatedWaitMinutes = %v, want positive", first.EstimatedWaitMinutes)
	}

	second := mustAdd(t, e, testOrder("o2"))
	if second.QueuePosition != 2 {
		t.Errorf("QueuePosition = %d, want 2", second.QueuePosition)
	}
}

func TestEstimateWait_NoDriversDoubles(t *testing.T) {
	empty := newTestEngine(t, driver.NewPool(), events.Discard{})
	mustAdd(t, empty, testOrder("o1"))

	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	staffed := newTestEngine(t, pool, events.Discard{})
	mustAdd(t, staffed, testOrder("o1"))

	if empty.estimateWaitMinutes() <= staffed.estimateWaitMinutes() {
		t.Error("no-driver estimate must exceed the staffed one")
	}
}

func TestTick_AssignsAndDriverAccepts(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	mustAdd(t, e, testOrder("o1"))
	e.Tick()

	rec.wait(t, events.OrderAssigned)
	rec.wait(t, events.DriverAcceptedOrder)

	o, ok := e.Order("o1")
	if !ok {
		t.Fatal("order missing")
	}
	if o.Status != order.StatusInTransit {
		t.Errorf("Status = %s, want in_transit", o.Status)
	}
	if o.Assignment == nil || o.Assignment.DriverID != "d1" {
		t.Fatalf("Assignment = %+v", o.Assignment)
	}
	if o.Assignment.Score <= 0 {
		t.Errorf("Score = %v, want positive", o.Assignment.Score)
	}

	d, _ := pool.Get("d1")
	if d.Status != driver.StatusBusy || len(d.ActiveOrders) != 1 {
		t.Errorf("driver = %+v, want busy with one order", d)
	}
	if e.Statistics().QueueLength != 0 {
		t.Error("queue should be empty after assignment")
	}
}

func TestTick_InfeasibleOrderStaysPending(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0) // medium vehicle

	e := newTestEngine(t, pool, events.Discard{})
	big := testOrder("o1")
	big.Cargo = types.SizeLarge
	mustAdd(t, e, big)

	e.Tick()

	o, _ := e.Order("o1")
	if o.Status != order.StatusPending {
		t.Errorf("Status = %s, want pending", o.Status)
	}
	if e.Statistics().QueueLength != 1 {
		t.Error("order must remain queued")
	}
}

func TestTick_UrgentMatchedFirst(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()

	cfg := testMatchingConfig()
	cfg.MaxOrdersPerDriver = 1
	e := New(cfg, pool, nil, rec,
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
		WithAcceptDelay(func() time.Duration { return 0 }),
	)

	mustAdd(t, e, testOrder("normal"))
	urgent := testOrder("urgent")
	urgent.Urgent = true
	mustAdd(t, e, urgent)

	e.Tick()

	ev := rec.wait(t, events.OrderAssigned)
	payload := ev.Payload.(map[string]any)
	if payload["order_id"] != types.ID("urgent") {
		t.Errorf("assigned %v first, want the urgent order", payload["order_id"])
	}

	if o, _ := e.Order("normal"); o.Status != order.StatusPending {
		t.Errorf("normal order status = %s, want pending", o.Status)
	}
}

func TestTick_OneOrderPerDriverPerBatch(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	mustAdd(t, e, testOrder("o1"))
	mustAdd(t, e, testOrder("o2"))

	e.Tick()
	rec.wait(t, events.OrderAssigned)

	d, _ := pool.Get("d1")
	if len(d.ActiveOrders) != 1 {
		t.Fatalf("driver took %d orders in one batch, want 1", len(d.ActiveOrders))
	}
	if got := e.Statistics().QueueLength; got != 1 {
		t.Errorf("queue length = %d, want the second order held for the next tick", got)
	}

	// the leftover goes out on the following tick
	e.Tick()
	rec.wait(t, events.OrderAssigned)

	d, _ = pool.Get("d1")
	if len(d.ActiveOrders) != 2 {
		t.Errorf("driver active orders = %d after second tick, want 2", len(d.ActiveOrders))
	}
	if got := e.Statistics().QueueLength; got != 0 {
		t.Errorf("queue length = %d, want 0", got)
	}
}

func TestTick_EvictsTerminalOrdersAfterRetention(t *testing.T) {
	now := testNow
	e := New(testMatchingConfig(), driver.NewPool(), nil, events.Discard{},
		WithClock(func() time.Time { return now }),
		WithRand(rand.New(rand.NewSource(1))),
		WithAcceptDelay(func() time.Duration { return 0 }),
	)

	mustAdd(t, e, testOrder("o1"))
	if _, err := e.CancelOrder("o1"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	e.Tick()
	if _, ok := e.Order("o1"); !ok {
		t.Fatal("cancelled order must stay queryable inside the retention window")
	}

	now = now.Add(orderRetention + time.Minute)
	e.Tick()
	if _, ok := e.Order("o1"); ok {
		t.Error("cancelled order still present after the retention window")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.epochs) != 0 || len(e.terminalAt) != 0 {
		t.Errorf("eviction left bookkeeping behind: epochs=%d terminal=%d",
			len(e.epochs), len(e.terminalAt))
	}
}

func TestRejection_RequeuesAtHeadOnce(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 0.0) // always declines
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	mustAdd(t, e, testOrder("o1"))
	blocked := testOrder("o2")
	blocked.Cargo = types.SizeLarge // unmatchable, holds the queue tail
	mustAdd(t, e, blocked)
	e.Tick()

	rec.wait(t, events.DriverRejectedOrder)

	o, _ := e.Order("o1")
	if o.Status != order.StatusPending {
		t.Errorf("Status = %s, want pending after rejection", o.Status)
	}
	if o.Rejections != 1 {
		t.Errorf("Rejections = %d, want 1", o.Rejections)
	}
	if !o.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt changed: %v", o.CreatedAt)
	}
	if pos := e.queue.Position("o1"); pos != 1 {
		t.Errorf("queue position = %d, want head", pos)
	}

	d, _ := pool.Get("d1")
	if d.Status != driver.StatusAvailable || len(d.ActiveOrders) != 0 {
		t.Errorf("driver = %+v, want available and empty", d)
	}
	if got := e.Statistics().TotalRejected; got != 1 {
		t.Errorf("TotalRejected = %d, want 1", got)
	}
}

func TestCancelOrder(t *testing.T) {
	t.Run("queued order refunds", func(t *testing.T) {
		e := newTestEngine(t, driver.NewPool(), events.Discard{})
		mustAdd(t, e, testOrder("o1"))

		res, err := e.CancelOrder("o1")
		if err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		if !res.RefundEligible {
			t.Error("queued cancellation must refund")
		}
		if o, _ := e.Order("o1"); o.Status != order.StatusCancelled {
			t.Errorf("Status = %s, want cancelled", o.Status)
		}
		if e.Statistics().QueueLength != 0 {
			t.Error("cancelled order left in queue")
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		e := newTestEngine(t, driver.NewPool(), events.Discard{})
		if _, err := e.CancelOrder("ghost"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("assigned within refund window", func(t *testing.T) {
		pool := driver.NewPool()
		addTestDriver(t, pool, "d1", 1.0)
		rec := newEventRecorder()
		e := New(testMatchingConfig(), pool, nil, rec,
			WithClock(func() time.Time { return testNow }),
			WithRand(rand.New(rand.NewSource(1))),
			WithAcceptDelay(func() time.Duration { return time.Hour }),
		)
		mustAdd(t, e, testOrder("o1"))
		e.Tick()
		rec.wait(t, events.OrderAssigned)

		res, err := e.CancelOrder("o1")
		if err != nil {
			t.Fatalf("CancelOrder: %v", err)
		}
		if !res.RefundEligible {
			t.Error("cancellation inside the refund window must refund")
		}
		d, _ := pool.Get("d1")
		if len(d.ActiveOrders) != 0 || d.Status != driver.StatusAvailable {
			t.Errorf("driver = %+v, want released", d)
		}
	})

	t.Run("in transit cannot cancel", func(t *testing.T) {
		pool := driver.NewPool()
		addTestDriver(t, pool, "d1", 1.0)
		rec := newEventRecorder()
		e := newTestEngine(t, pool, rec)
		mustAdd(t, e, testOrder("o1"))
		e.Tick()
		rec.wait(t, events.DriverAcceptedOrder)

		if _, err := e.CancelOrder("o1"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})
}

func TestCancel_DiscardsInFlightResponse(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := New(testMatchingConfig(), pool, nil, rec,
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
		WithAcceptDelay(func() time.Duration { return time.Hour }),
	)
	mustAdd(t, e, testOrder("o1"))
	e.Tick()
	rec.wait(t, events.OrderAssigned)

	e.mu.Lock()
	staleEpoch := e.epochs["o1"]
	e.mu.Unlock()

	if _, err := e.CancelOrder("o1"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}

	// the driver's response arrives after the cancellation and must be
	// dropped on the stale epoch
	e.resolveOutcome("o1", "d1", staleEpoch)

	o, _ := e.Order("o1")
	if o.Status != order.StatusCancelled {
		t.Errorf("Status = %s, want cancelled", o.Status)
	}
	select {
	case ev := <-rec.ch:
		if ev.Type == events.DriverAcceptedOrder || ev.Type == events.DriverRejectedOrder {
			t.Errorf("stale response produced event %s", ev.Type)
		}
	default:
	}
}

func TestCompleteOrder(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	mustAdd(t, e, testOrder("o1"))
	e.Tick()
	rec.wait(t, events.DriverAcceptedOrder)

	if _, err := e.CompleteOrder("o1", order.CompletionData{Rating: 9}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("rating err = %v, want ErrInvalidInput", err)
	}

	done, err := e.CompleteOrder("o1", order.CompletionData{Signature: "sig", Rating: 5})
	if err != nil {
		t.Fatalf("CompleteOrder: %v", err)
	}
	if done.Status != order.StatusCompleted {
		t.Errorf("Status = %s, want completed", done.Status)
	}
	rec.wait(t, events.OrderCompleted)

	d, _ := pool.Get("d1")
	if d.Status != driver.StatusAvailable {
		t.Errorf("driver status = %s, want available", d.Status)
	}
	// 0.8*4.5 + 0.2*5
	if math.Abs(d.Rating-4.6) > 1e-9 {
		t.Errorf("driver rating = %v, want 4.6", d.Rating)
	}

	if _, err := e.CompleteOrder("o1", order.CompletionData{}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("double complete err = %v, want ErrInvalidInput", err)
	}
	if _, err := e.CompleteOrder("ghost", order.CompletionData{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDriverStatus_OfflineRequeuesAssigned(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := New(testMatchingConfig(), pool, nil, rec,
		WithClock(func() time.Time { return testNow }),
		WithRand(rand.New(rand.NewSource(1))),
		WithAcceptDelay(func() time.Duration { return time.Hour }),
	)
	mustAdd(t, e, testOrder("o1"))
	e.Tick()
	rec.wait(t, events.OrderAssigned)

	e.UpdateDriverStatus("d1", driver.StatusOffline)

	o, _ := e.Order("o1")
	if o.Status != order.StatusPending {
		t.Errorf("Status = %s, want pending after driver went offline", o.Status)
	}
	if o.Assignment != nil {
		t.Error("assignment must be cleared")
	}
	if !o.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt changed: %v", o.CreatedAt)
	}
	if e.Statistics().QueueLength != 1 {
		t.Error("order must be requeued")
	}
}

func TestUpdateDriver_UnknownIsNoOp(t *testing.T) {
	e := newTestEngine(t, driver.NewPool(), events.Discard{})
	// both must log and carry on without panicking
	e.UpdateDriverPosition("ghost", origin)
	e.UpdateDriverStatus("ghost", driver.StatusOffline)
}

func TestOnTrafficUpdate_PeakWidensRadius(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	far := testOrder("o1")
	far.Pickup = pickupFar
	mustAdd(t, e, far)

	e.Tick()
	if o, _ := e.Order("o1"); o.Status != order.StatusPending {
		t.Fatalf("order matched outside radius: %s", o.Status)
	}

	e.OnTrafficUpdate(traffic.Update{At: testNow, Peak: true})
	e.Tick()
	rec.wait(t, events.OrderAssigned)

	e.OnTrafficUpdate(traffic.Update{At: testNow, Peak: false})
	e.mu.Lock()
	radius := e.currentRadius
	e.mu.Unlock()
	if radius != testMatchingConfig().RadiusKm {
		t.Errorf("radius = %v, want reset after peak", radius)
	}
}

func TestRefreshETA(t *testing.T) {
	route := &routing.Route{
		DistanceKm: 3,
		Duration:   9 * time.Minute,
	}

	t.Run("planned route", func(t *testing.T) {
		pool := driver.NewPool()
		addTestDriver(t, pool, "d1", 1.0)
		rec := newEventRecorder()
		e := New(testMatchingConfig(), pool, stubPlanner{route: route}, rec,
			WithClock(func() time.Time { return testNow }),
			WithRand(rand.New(rand.NewSource(1))),
			WithAcceptDelay(func() time.Duration { return time.Hour }),
		)
		mustAdd(t, e, testOrder("o1"))
		e.Tick()
		rec.wait(t, events.OrderAssigned)

		e.refreshETA("o1")

		o, _ := e.Order("o1")
		if o.Tracking == nil {
			t.Fatal("tracking not set")
		}
		if o.Tracking.Degraded {
			t.Error("planned estimate marked degraded")
		}
		if got := o.Tracking.EstimatedPickup; !got.Equal(testNow.Add(9 * time.Minute)) {
			t.Errorf("EstimatedPickup = %v", got)
		}
		if got := o.Tracking.EstimatedArrival; !got.Equal(testNow.Add(18 * time.Minute)) {
			t.Errorf("EstimatedArrival = %v", got)
		}
		if o.Tracking.DistanceKm != 6 {
			t.Errorf("DistanceKm = %v, want 6", o.Tracking.DistanceKm)
		}
	})

	t.Run("fallback when planning fails", func(t *testing.T) {
		pool := driver.NewPool()
		addTestDriver(t, pool, "d1", 1.0)
		rec := newEventRecorder()
		e := New(testMatchingConfig(), pool, stubPlanner{err: routing.ErrNoRoute}, rec,
			WithClock(func() time.Time { return testNow }),
			WithRand(rand.New(rand.NewSource(1))),
			WithAcceptDelay(func() time.Duration { return time.Hour }),
		)
		mustAdd(t, e, testOrder("o1"))
		e.Tick()
		rec.wait(t, events.OrderAssigned)

		e.refreshETA("o1")

		o, _ := e.Order("o1")
		if o.Tracking == nil {
			t.Fatal("tracking not set")
		}
		if !o.Tracking.Degraded {
			t.Error("fallback estimate must be marked degraded")
		}
		if !o.Tracking.EstimatedArrival.After(o.Tracking.EstimatedPickup.Add(fallbackDeliveryPad)) {
			t.Error("degraded arrival must include the delivery pad")
		}
	})
}

func TestStatistics(t *testing.T) {
	pool := driver.NewPool()
	addTestDriver(t, pool, "d1", 1.0)
	rec := newEventRecorder()
	e := newTestEngine(t, pool, rec)

	stats := e.Statistics()
	if stats.MatchingRate != 1.0 {
		t.Errorf("idle MatchingRate = %v, want 1.0", stats.MatchingRate)
	}

	mustAdd(t, e, testOrder("o1"))
	stats = e.Statistics()
	if stats.QueueLength != 1 || stats.AvailableDrivers != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.MatchingRate != 0 {
		t.Errorf("MatchingRate = %v, want 0 with one queued and none matched", stats.MatchingRate)
	}

	e.Tick()
	rec.wait(t, events.DriverAcceptedOrder)

	stats = e.Statistics()
	if stats.TotalMatched != 1 || stats.QueueLength != 0 {
		t.Errorf("stats after match = %+v", stats)
	}
	if stats.MatchingRate != 1.0 {
		t.Errorf("MatchingRate = %v, want 1.0", stats.MatchingRate)
	}
	if stats.BusyDrivers != 1 {
		t.Errorf("BusyDrivers = %d, want 1", stats.BusyDrivers)
	}
}
