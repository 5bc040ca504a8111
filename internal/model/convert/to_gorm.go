// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/model"
	"github.com/OCAP2/geoanchor/pkg/core"
	"gorm.io/datatypes"
)

// visualToJSON converts visual parameters to datatypes.JSON for DB storage.
func visualToJSON(v core.VisualParams) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
// core.Session.ID maps to the GORM primary key.
func CoreToSession(s core.Session) model.Session {
	out := model.Session{
		UUID:        s.UUID,
		Name:        s.Name,
		CatalogName: s.CatalogName,
		AssetCount:  s.AssetCount,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Tag:         s.Tag,
	}
	out.ID = s.ID
	return out
}

// CoreToDeviceSample converts a journaled sample. The session id is stamped by the writer.
func CoreToDeviceSample(r core.SampleRecord) model.DeviceSample {
	return model.DeviceSample{
		Time:               r.Time,
		Tick:               r.Tick,
		Position:           geo.Point3857(r.Sample.Coordinate),
		AltitudeValid:      r.Sample.AltitudeValid,
		HorizontalAccuracy: r.Sample.HorizontalAccuracy,
		VerticalAccuracy:   r.Sample.VerticalAccuracy,
		Floor:              r.Sample.Floor,
		Accepted:           r.Accepted,
		State:              r.State,
		Placed:             r.Placed,
	}
}

// CoreToPlacementEvent converts a journaled renderer command.
func CoreToPlacementEvent(e core.PlacementEvent) model.PlacementEvent {
	return model.PlacementEvent{
		Time:         e.Time,
		Tick:         e.Tick,
		Kind:         e.Kind,
		AssetID:      e.AssetID,
		AssetName:    e.AssetName,
		Position:     geo.Point3857(e.Coordinate),
		OffsetX:      e.Offset.X,
		OffsetY:      e.Offset.Y,
		OffsetZ:      e.Offset.Z,
		TranslationX: e.Translation.X,
		TranslationY: e.Translation.Y,
		TranslationZ: e.Translation.Z,
		Visual:       visualToJSON(e.Visual),
	}
}
