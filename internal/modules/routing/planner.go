// README: Route planner: endpoint snapping, A* planning, multi-stop ordering, traffic-sensitive rerouting.
package routing

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"courier/internal/config"
	"courier/internal/geo"
	"courier/internal/modules/graph"
	"courier/internal/modules/traffic"
	"courier/internal/types"
)

// Conditions is the traffic model as the planner sees it.
type Conditions interface {
	Coefficient(edgeID types.ID) float64
	CongestedFraction() float64
}

// rerouteProbabilityCap bounds how often the traffic check replans even when
// most of the network is congested.
const rerouteProbabilityCap = 0.2

type Planner struct {
	graph        *graph.Store
	conditions   Conditions
	baseSpeedKmh float64
	tolerance    float64
	cache        *routeCache

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewPlanner(g *graph.Store, conditions Conditions, cfg config.RoutingConfig, rng *rand.Rand) *Planner {
	speed := cfg.BaseSpeedKmh
	if speed <= 0 {
		speed = 40
	}
	return &Planner{
		graph:        g,
		conditions:   conditions,
		baseSpeedKmh: speed,
		tolerance:    cfg.SimplifyTolerance,
		cache:        newRouteCache(cfg.CacheSize),
		rng:          rng,
	}
}

// InvalidateAll drops every cached route. The traffic model calls this on
// each tick.
func (p *Planner) InvalidateAll() {
	p.cache.invalidateAll()
}

// PlanRoute snaps both endpoints to the road network and searches for the
// cheapest traffic-weighted path between them. Results are simplified and
// cached; repeated calls under unchanged traffic return the identical route.
func (p *Planner) PlanRoute(start, end types.Point, opts Options) (*Route, error) {
	key := cacheKey(start, end, opts)
	if r, ok := p.cache.get(key); ok {
		return r, nil
	}

	startNode := p.graph.NearestNode(start)
	endNode := p.graph.NearestNode(end)
	if startNode == nil || endNode == nil {
		return nil, fmt.Errorf("snap endpoints: %w", ErrNoRoute)
	}

	edgeIDs, ok := p.findPath(startNode.ID, endNode.ID, opts)
	if !ok {
		return nil, fmt.Errorf("%s -> %s: %w", startNode.ID, endNode.ID, ErrNoRoute)
	}

	route := p.buildRoute(startNode.ID, edgeIDs, start, end)
	p.cache.put(key, route)
	return route, nil
}

// buildRoute walks the edge sequence from the snapped start node, collecting
// per-segment distance, traffic-adjusted time, and a traffic descriptor.
func (p *Planner) buildRoute(startID types.ID, edgeIDs []types.ID, start, end types.Point) *Route {
	points := []types.Point{start}
	var segments []Segment
	var totalKm, totalMinutes float64

	at := startID
	for _, edgeID := range edgeIDs {
		edge, ok := p.graph.Edge(edgeID)
		if !ok {
			continue
		}
		next := edge.Target
		if next == at {
			next = edge.Source
		}
		fromNode, _ := p.graph.Node(at)
		toNode, ok := p.graph.Node(next)
		if fromNode == nil || !ok {
			continue
		}

		coefficient := p.conditions.Coefficient(edge.ID)
		minutes := edge.BaseMinutes * coefficient
		segments = append(segments, Segment{
			From:       fromNode.Position,
			To:         toNode.Position,
			DistanceKm: edge.DistanceKm,
			Duration:   minutesToDuration(minutes),
			Traffic:    traffic.Describe(coefficient),
		})
		points = append(points, toNode.Position)
		totalKm += edge.DistanceKm
		totalMinutes += minutes
		at = next
	}

	points = append(points, end)
	return &Route{
		Points:     Simplify(points, p.tolerance),
		Segments:   segments,
		DistanceKm: totalKm,
		Duration:   minutesToDuration(totalMinutes),
	}
}

// PlanMultiPointRoute plans through every given point. The first and last
// points are fixed; intermediate waypoints are visited in nearest-neighbor
// order. That ordering is not globally optimal, but it is cheap and stable,
// which matters more for dispatch-sized stop counts.
func (p *Planner) PlanMultiPointRoute(points []types.Point, opts Options) (*Route, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 points, got %d", len(points))
	}
	if len(points) == 2 {
		return p.PlanRoute(points[0], points[1], opts)
	}

	ordered := orderWaypoints(points[0], points[len(points)-1], points[1:len(points)-1])

	combined := &Route{Points: []types.Point{points[0]}}
	var totalMinutes float64
	for i := 0; i+1 < len(ordered); i++ {
		leg, err := p.PlanRoute(ordered[i], ordered[i+1], opts)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		// the leg starts where the previous one ended; drop the shared point
		if len(leg.Points) > 1 {
			combined.Points = append(combined.Points, leg.Points[1:]...)
		}
		combined.Segments = append(combined.Segments, leg.Segments...)
		combined.DistanceKm += leg.DistanceKm
		totalMinutes += leg.Duration.Minutes()
	}
	combined.Duration = minutesToDuration(totalMinutes)
	return combined, nil
}

// orderWaypoints fixes start and end and greedily chains each intermediate
// waypoint to its nearest unvisited successor.
func orderWaypoints(start, end types.Point, waypoints []types.Point) []types.Point {
	ordered := make([]types.Point, 0, len(waypoints)+2)
	ordered = append(ordered, start)

	visited := make([]bool, len(waypoints))
	current := start
	for range waypoints {
		best := -1
		bestDist := math.MaxFloat64
		for i, w := range waypoints {
			if visited[i] {
				continue
			}
			if d := geo.HaversineKm(current, w); d < bestDist {
				bestDist = d
				best = i
			}
		}
		visited[best] = true
		ordered = append(ordered, waypoints[best])
		current = waypoints[best]
	}
	return append(ordered, end)
}

// AdjustRouteForTraffic decides whether the active route should be replanned
// with congestion avoidance. The trigger looks at the congested fraction of
// the whole network rather than the route's own edges; that mirrors how
// dispatch treats congestion as a global condition, and a route-scoped check
// would be the more precise alternative.
func (p *Planner) AdjustRouteForTraffic(route *Route, current, destination types.Point, opts Options) (Adjustment, error) {
	ratio := p.conditions.CongestedFraction()
	probability := math.Min(rerouteProbabilityCap, ratio*0.5)

	p.rngMu.Lock()
	roll := p.rng.Float64()
	p.rngMu.Unlock()

	if roll >= probability {
		return Adjustment{Rerouted: false, Route: route}, nil
	}

	opts.AvoidCongestion = true
	newRoute, err := p.PlanRoute(current, destination, opts)
	if err != nil {
		// keep driving the old route rather than failing the adjustment
		return Adjustment{Rerouted: false, Route: route}, err
	}
	return Adjustment{Rerouted: true, Route: newRoute}, nil
}

func minutesToDuration(minutes float64) time.Duration {
	return time.Duration(minutes * float64(time.Minute))
}
