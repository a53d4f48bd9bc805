// README: A* search over the traffic-weighted road graph.
package routing

import (
	"container/heap"
	"math"

	"courier/internal/geo"
	"courier/internal/types"
)

// findPath runs A* from startID to endID and returns the edge IDs of the
// path in travel order. The heuristic divides straight-line distance by the
// unweighted base speed; traffic only scales edge costs up from there, so
// the estimate stays a lower bound on remaining travel time.
func (p *Planner) findPath(startID, endID types.ID, opts Options) ([]types.ID, bool) {
	if startID == endID {
		return nil, true
	}

	exponent := opts.exponent()

	gScore := map[types.ID]float64{startID: 0}
	cameFrom := map[types.ID]types.ID{}
	edgeUsed := map[types.ID]types.ID{}
	closed := map[types.ID]bool{}

	open := &nodeQueue{}
	heap.Init(open)
	heap.Push(open, &queueItem{node: startID, priority: p.heuristicMinutes(startID, endID)})

	for open.Len() > 0 {
		current := heap.Pop(open).(*queueItem).node
		if closed[current] {
			continue
		}
		if current == endID {
			return reconstruct(cameFrom, edgeUsed, startID, endID), true
		}
		closed[current] = true

		for _, arc := range p.graph.Neighbors(current) {
			if closed[arc.To] {
				continue
			}
			edge, ok := p.graph.Edge(arc.EdgeID)
			if !ok {
				continue
			}

			coefficient := p.conditions.Coefficient(edge.ID)
			minutes := edge.BaseMinutes * coefficient
			if opts.AvoidCongestion {
				// scale the real cost by coefficient^(exponent-1), which
				// makes the effective weight baseTime * coefficient^exponent
				minutes *= math.Pow(coefficient, exponent-1)
			}

			tentative := gScore[current] + minutes
			if known, seen := gScore[arc.To]; seen && tentative >= known {
				continue
			}
			gScore[arc.To] = tentative
			cameFrom[arc.To] = current
			edgeUsed[arc.To] = arc.EdgeID
			heap.Push(open, &queueItem{
				node:     arc.To,
				priority: tentative + p.heuristicMinutes(arc.To, endID),
			})
		}
	}
	return nil, false
}

func (p *Planner) heuristicMinutes(fromID, toID types.ID) float64 {
	from, ok := p.graph.Node(fromID)
	if !ok {
		return 0
	}
	to, ok := p.graph.Node(toID)
	if !ok {
		return 0
	}
	return geo.HaversineKm(from.Position, to.Position) / p.baseSpeedKmh * 60
}

func reconstruct(cameFrom, edgeUsed map[types.ID]types.ID, startID, endID types.ID) []types.ID {
	var edges []types.ID
	for at := endID; at != startID; at = cameFrom[at] {
		edges = append(edges, edgeUsed[at])
	}
	// reverse into travel order
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}
	return edges
}

type queueItem struct {
	node     types.ID
	priority float64
	index    int
}

type nodeQueue []*queueItem

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].priority < q[j].priority }
func (q nodeQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *nodeQueue) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
