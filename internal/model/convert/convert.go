package convert

import (
	"encoding/json"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// SessionToCore converts a GORM Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:          s.ID,
		UUID:        s.UUID,
		Name:        s.Name,
		CatalogName: s.CatalogName,
		AssetCount:  s.AssetCount,
		Tag:         s.Tag,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
	}
}

// DeviceSampleToCore converts a GORM DeviceSample back to a journal record.
func DeviceSampleToCore(s model.DeviceSample) core.SampleRecord {
	return core.SampleRecord{
		Time: s.Time,
		Tick: s.Tick,
		Sample: core.DeviceSample{
			Coordinate:         geo.CoordinateFrom3857(s.Position, s.AltitudeValid),
			HorizontalAccuracy: s.HorizontalAccuracy,
			VerticalAccuracy:   s.VerticalAccuracy,
			Floor:              s.Floor,
			Timestamp:          s.Time,
		},
		Accepted: s.Accepted,
		State:    s.State,
		Placed:   s.Placed,
	}
}

// PlacementEventToCore converts a GORM PlacementEvent back to a journal record.
// Catalog assets always carry an altitude, so the position altitude is restored.
func PlacementEventToCore(e model.PlacementEvent) core.PlacementEvent {
	var visual core.VisualParams
	if len(e.Visual) > 0 {
		_ = json.Unmarshal(e.Visual, &visual)
	}
	return core.PlacementEvent{
		Time:        e.Time,
		Tick:        e.Tick,
		Kind:        e.Kind,
		AssetID:     e.AssetID,
		AssetName:   e.AssetName,
		Coordinate:  geo.CoordinateFrom3857(e.Position, true),
		Offset:      core.Vec3{X: e.OffsetX, Y: e.OffsetY, Z: e.OffsetZ},
		Translation: core.Vec3{X: e.TranslationX, Y: e.TranslationY, Z: e.TranslationZ},
		Visual:      visual,
	}
}
