// README: In-memory road graph with adjacency and nearest-node lookups.
package graph

import (
	"courier/internal/geo"
	"courier/internal/types"
)

// Store holds the road network. It is built once at startup and read-only
// afterwards, so lookups need no locking.
type Store struct {
	nodes map[types.ID]*Node
	edges map[types.ID]*Edge
	adj   map[types.ID][]Arc

	// insertion order, so NearestNode ties break deterministically
	nodeOrder []types.ID
	edgeOrder []types.ID
}

func NewStore() *Store {
	return &Store{
		nodes: make(map[types.ID]*Node),
		edges: make(map[types.ID]*Edge),
		adj:   make(map[types.ID][]Arc),
	}
}

func (s *Store) AddNode(n Node) {
	if _, ok := s.nodes[n.ID]; ok {
		return
	}
	s.nodes[n.ID] = &n
	s.nodeOrder = append(s.nodeOrder, n.ID)
}

// AddEdge registers a bidirectional road; both endpoints must exist.
func (s *Store) AddEdge(e Edge) {
	if _, ok := s.edges[e.ID]; ok {
		return
	}
	if _, ok := s.nodes[e.Source]; !ok {
		return
	}
	if _, ok := s.nodes[e.Target]; !ok {
		return
	}
	s.edges[e.ID] = &e
	s.edgeOrder = append(s.edgeOrder, e.ID)
	s.adj[e.Source] = append(s.adj[e.Source], Arc{EdgeID: e.ID, To: e.Target})
	s.adj[e.Target] = append(s.adj[e.Target], Arc{EdgeID: e.ID, To: e.Source})
}

func (s *Store) Node(id types.ID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

func (s *Store) Edge(id types.ID) (*Edge, bool) {
	e, ok := s.edges[id]
	return e, ok
}

func (s *Store) Neighbors(id types.ID) []Arc {
	return s.adj[id]
}

// NearestNode returns the node closest to p, or nil when the graph is empty.
// A linear scan is fine: the node count is bounded and fixed at build time.
func (s *Store) NearestNode(p types.Point) *Node {
	var nearest *Node
	best := -1.0
	for _, id := range s.nodeOrder {
		n := s.nodes[id]
		d := geo.HaversineKm(p, n.Position)
		if best < 0 || d < best {
			best = d
			nearest = n
		}
	}
	return nearest
}

func (s *Store) NodeCount() int { return len(s.nodeOrder) }
func (s *Store) EdgeCount() int { return len(s.edgeOrder) }

// EachEdge visits every edge in insertion order.
func (s *Store) EachEdge(fn func(*Edge)) {
	for _, id := range s.edgeOrder {
		fn(s.edges[id])
	}
}
