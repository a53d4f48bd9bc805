// README: Shared identifier, coordinate, and size-class value types.
package types

type ID string

// Point is a WGS84 coordinate. Lng comes first to match the
// [lng, lat] ordering used by the UI layer.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// SizeClass grades both cargo and vehicle capacity.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// Rank orders size classes so capacity checks reduce to an integer compare.
// Unknown classes rank lowest.
func (c SizeClass) Rank() int {
	switch c {
	case SizeSmall:
		return 1
	case SizeMedium:
		return 2
	case SizeLarge:
		return 3
	}
	return 0
}

func (c SizeClass) Valid() bool {
	return c == SizeSmall || c == SizeMedium || c == SizeLarge
}
