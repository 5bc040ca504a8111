// pkg/core/asset.go
package core

// VisualParams are passed through to the renderer untouched.
type VisualParams struct {
	Scale Vec3    `json:"scale"`
	Yaw   float64 `json:"yaw"` // radians about the vertical axis
}

// PlaceableAsset is a static catalog entry anchored to a real-world coordinate.
type PlaceableAsset struct {
	ID            string
	Name          string
	ThumbnailFile string
	AssetFile     string // model file name in the model library

	Coordinate Coordinate

	// ApproachingDistance is the distance in meters under which the asset is placed.
	ApproachingDistance float64
	// DistanceAway is the distance in meters at or beyond which a placed asset is removed.
	DistanceAway float64

	Visual VisualParams
}
