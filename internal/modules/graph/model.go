// README: Road-network node and edge definitions.
package graph

import "courier/internal/types"

type RoadClass string

const (
	RoadMain      RoadClass = "main"
	RoadSecondary RoadClass = "secondary"
	RoadLocal     RoadClass = "local"
)

// Node is a fixed geo-point in the road network. Immutable once added.
type Node struct {
	ID       types.ID
	Position types.Point
}

// Edge is a bidirectional road between two nodes. Only its traffic
// coefficient ever changes, and that lives in the traffic model, not here.
type Edge struct {
	ID          types.ID
	Source      types.ID
	Target      types.ID
	DistanceKm  float64
	BaseMinutes float64
	Class       RoadClass
}

// Arc is one directed hop in an adjacency list.
type Arc struct {
	EdgeID types.ID
	To     types.ID
}
