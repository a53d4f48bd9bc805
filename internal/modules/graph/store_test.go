package graph

import (
	"testing"

	"courier/internal/types"
)

func buildTriangle() *Store {
	s := NewStore()
	s.AddNode(Node{ID: "a", Position: types.Point{Lng: 0, Lat: 0}})
	s.AddNode(Node{ID: "b", Position: types.Point{Lng: 0.01, Lat: 0}})
	s.AddNode(Node{ID: "c", Position: types.Point{Lng: 0, Lat: 0.01}})
	s.AddEdge(Edge{ID: "ab", Source: "a", Target: "b", DistanceKm: 1.1, BaseMinutes: 1.7, Class: RoadMain})
	s.AddEdge(Edge{ID: "bc", Source: "b", Target: "c", DistanceKm: 1.6, BaseMinutes: 2.4, Class: RoadLocal})
	return s
}

func TestNeighbors_Bidirectional(t *testing.T) {
	s := buildTriangle()

	arcs := s.Neighbors("b")
	if len(arcs) != 2 {
		t.Fatalf("expected 2 arcs from b, got %d", len(arcs))
	}
	seen := map[types.ID]bool{}
	for _, a := range arcs {
		seen[a.To] = true
	}
	if !seen["a"] || !seen["c"] {
		t.Errorf("arcs from b should reach a and c, got %v", arcs)
	}

	// reverse direction exists too
	back := s.Neighbors("a")
	if len(back) != 1 || back[0].To != "b" || back[0].EdgeID != "ab" {
		t.Errorf("unexpected arcs from a: %v", back)
	}
}

func TestAddEdge_UnknownEndpointIgnored(t *testing.T) {
	s := buildTriangle()
	s.AddEdge(Edge{ID: "xz", Source: "x", Target: "a"})
	if _, ok := s.Edge("xz"); ok {
		t.Error("edge with unknown endpoint should not be registered")
	}
	if s.EdgeCount() != 2 {
		t.Errorf("edge count = %d, want 2", s.EdgeCount())
	}
}

func TestNearestNode(t *testing.T) {
	s := buildTriangle()

	n := s.NearestNode(types.Point{Lng: 0.009, Lat: 0.001})
	if n == nil || n.ID != "b" {
		t.Fatalf("nearest to (0.009,0.001) = %v, want b", n)
	}

	n = s.NearestNode(types.Point{Lng: -0.3, Lat: -0.3})
	if n == nil || n.ID != "a" {
		t.Fatalf("nearest to far southwest = %v, want a", n)
	}
}

func TestNearestNode_EmptyGraph(t *testing.T) {
	s := NewStore()
	if n := s.NearestNode(types.Point{}); n != nil {
		t.Errorf("empty graph should return nil, got %v", n)
	}
}

func TestBuildGrid(t *testing.T) {
	center := types.Point{Lng: 116.4074, Lat: 39.9042}
	s := BuildGrid(6, center, 40)

	if got := s.NodeCount(); got != 36 {
		t.Errorf("node count = %d, want 36", got)
	}
	// 2 * size * (size-1) edges in a grid
	if got := s.EdgeCount(); got != 60 {
		t.Errorf("edge count = %d, want 60", got)
	}

	classes := map[RoadClass]int{}
	s.EachEdge(func(e *Edge) {
		classes[e.Class]++
		if e.DistanceKm <= 0 || e.BaseMinutes <= 0 {
			t.Errorf("edge %s has non-positive distance/time", e.ID)
		}
	})
	if classes[RoadMain] == 0 || classes[RoadSecondary] == 0 || classes[RoadLocal] == 0 {
		t.Errorf("expected all road classes present, got %v", classes)
	}

	// corner nodes have 2 neighbors, interior nodes 4
	if got := len(s.Neighbors(gridNodeID(0, 0))); got != 2 {
		t.Errorf("corner degree = %d, want 2", got)
	}
	if got := len(s.Neighbors(gridNodeID(2, 2))); got != 4 {
		t.Errorf("interior degree = %d, want 4", got)
	}
}

func TestBuildGrid_Degenerate(t *testing.T) {
	if s := BuildGrid(1, types.Point{}, 40); s.NodeCount() != 0 {
		t.Error("size 1 grid should be empty")
	}
	if s := BuildGrid(5, types.Point{}, 0); s.NodeCount() != 0 {
		t.Error("zero base speed should yield empty graph")
	}
}
