// README: Synthetic grid road network, standing in for collaborator-supplied map data.
package graph

import (
	"fmt"

	"courier/internal/types"
)

const (
	// gridSpacingDeg is the lat/lng distance between adjacent grid nodes,
	// roughly 500 m.
	gridSpacingDeg = 0.005
	// kmPerDegree converts grid spacing to kilometres at city latitudes.
	kmPerDegree = 111.32
)

// BuildGrid synthesizes a size×size grid network centred on center. Every
// fifth row/column is a main road, every third a secondary one, the rest
// local streets. Base traversal time comes from edge length at baseSpeedKmh.
func BuildGrid(size int, center types.Point, baseSpeedKmh float64) *Store {
	s := NewStore()
	if size < 2 || baseSpeedKmh <= 0 {
		return s
	}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			s.AddNode(Node{
				ID: gridNodeID(i, j),
				Position: types.Point{
					Lng: center.Lng - (float64(size)/2-float64(j))*gridSpacingDeg,
					Lat: center.Lat - (float64(size)/2-float64(i))*gridSpacingDeg,
				},
			})
		}
	}

	distanceKm := gridSpacingDeg * kmPerDegree
	baseMinutes := distanceKm / baseSpeedKmh * 60

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			if i > 0 {
				s.AddEdge(Edge{
					ID:          types.ID(fmt.Sprintf("e_%d_%d_h", i, j)),
					Source:      gridNodeID(i-1, j),
					Target:      gridNodeID(i, j),
					DistanceKm:  distanceKm,
					BaseMinutes: baseMinutes,
					Class:       gridRoadClass(i, j),
				})
			}
			if j > 0 {
				s.AddEdge(Edge{
					ID:          types.ID(fmt.Sprintf("e_%d_%d_v", i, j)),
					Source:      gridNodeID(i, j-1),
					Target:      gridNodeID(i, j),
					DistanceKm:  distanceKm,
					BaseMinutes: baseMinutes,
					Class:       gridRoadClass(i, j),
				})
			}
		}
	}
	return s
}

func gridNodeID(i, j int) types.ID {
	return types.ID(fmt.Sprintf("n_%d_%d", i, j))
}

func gridRoadClass(i, j int) RoadClass {
	switch {
	case i%5 == 0 || j%5 == 0:
		return RoadMain
	case i%3 == 0 || j%3 == 0:
		return RoadSecondary
	default:
		return RoadLocal
	}
}
