// pkg/core/placement.go
package core

// Placement asks the renderer to create a visual for an asset.
type Placement struct {
	AssetID   string
	Name      string
	AssetFile string
	// Offset is the local tangent-plane offset from the device.
	Offset Vec3
	// Translation is the device translation plus Offset, in virtual space.
	Translation Vec3
	Visual      VisualParams
}

// Move asks the renderer to reposition an existing visual.
type Move struct {
	AssetID     string
	Offset      Vec3
	Translation Vec3
}

// Effects is the outcome of one location update, in the order the
// commands were issued: removals, then moves, then placements.
type Effects struct {
	// Accepted is set when the sample passed the accuracy gate.
	Accepted bool

	ToRemove     []string
	ToReposition []Move
	ToAdd        []Placement
}

// Empty reports whether the update produced no commands.
func (e Effects) Empty() bool {
	return len(e.ToRemove) == 0 && len(e.ToReposition) == 0 && len(e.ToAdd) == 0
}

// PlacedEntity is the runtime record for an asset currently in the scene.
// Handle is the renderer's reference, used only to issue move and remove commands.
type PlacedEntity struct {
	AssetID      string
	Name         string
	Coordinate   Coordinate
	DistanceAway float64
	Offset       Vec3
	Translation  Vec3
	Handle       any
}
