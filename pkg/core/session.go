// pkg/core/session.go
package core

import "time"

// Session is one run of the placement engine against a catalog.
type Session struct {
	ID          uint
	UUID        string
	Name        string
	CatalogName string
	AssetCount  int
	Tag         string
	StartTime   time.Time
	EndTime     time.Time
}

// Duration is the session length, measured to now while it is still running.
func (s Session) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// SampleRecord journals a device sample and what the gate decided.
type SampleRecord struct {
	Time     time.Time
	Tick     uint
	Sample   DeviceSample
	Accepted bool
	State    string
	Placed   int
}

// PlacementEvent kinds.
const (
	PlacementPlaced  = "placed"
	PlacementMoved   = "moved"
	PlacementRemoved = "removed"
)

// PlacementEvent journals one renderer command.
type PlacementEvent struct {
	Time        time.Time
	Tick        uint
	Kind        string
	AssetID     string
	AssetName   string
	Coordinate  Coordinate
	Offset      Vec3
	Translation Vec3
	Visual      VisualParams
}

// UploadMetadata describes an exported session file.
type UploadMetadata struct {
	SessionName string
	CatalogName string
	StartTime   time.Time
	Duration    float64 // seconds
	Tag         string
}
