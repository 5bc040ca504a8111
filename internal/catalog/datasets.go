package catalog

import (
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/google/uuid"
)

// Place is a bare geographic position, as returned by a places API.
type Place struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
}

// Coordinate returns the place as a coordinate with a valid altitude.
func (p Place) Coordinate() core.Coordinate {
	return core.NewCoordinate(p.Latitude, p.Longitude).WithAltitude(p.Altitude)
}

// PlaceFromJSON reads latitude, longitude and altitude from a decoded JSON
// object. Missing or non-numeric keys read as 0.
func PlaceFromJSON(m map[string]any) Place {
	num := func(key string) float64 {
		if v, ok := m[key].(float64); ok {
			return v
		}
		return 0
	}
	return Place{
		Latitude:  num("latitude"),
		Longitude: num("longitude"),
		Altitude:  num("altitude"),
	}
}

// AssetFromPlace builds an asset at place with the defaults used for
// place-sourced content: 1/100 scale, placed within 5 m, removed at 10 m.
func AssetFromPlace(name, thumbnailFile, assetFile string, place Place) core.PlaceableAsset {
	return core.PlaceableAsset{
		ID:                  uuid.NewString(),
		Name:                name,
		ThumbnailFile:       thumbnailFile,
		AssetFile:           assetFile,
		Coordinate:          place.Coordinate(),
		ApproachingDistance: 5,
		DistanceAway:        10,
		Visual: core.VisualParams{
			Scale: core.Vec3{X: 0.01, Y: 0.01, Z: 0.01},
		},
	}
}

func toyAsset(name, thumbnail, file string, lat, lon float64) core.PlaceableAsset {
	return core.PlaceableAsset{
		ID:                  uuid.NewString(),
		Name:                name,
		ThumbnailFile:       thumbnail,
		AssetFile:           file,
		Coordinate:          core.NewCoordinate(lat, lon).WithAltitude(3.5),
		ApproachingDistance: 10,
		DistanceAway:        20,
		Visual: core.VisualParams{
			Scale: core.Vec3{X: 1, Y: 1, Z: 1},
		},
	}
}

// TokyoStation is the demo dataset around the Marunouchi side of Tokyo station.
func TokyoStation() *Catalog {
	return &Catalog{
		Name: "tokyo-station",
		Assets: []core.PlaceableAsset{
			toyAsset("Drummer", "drummer128", "toy_drummer", 35.68157, 139.76561),
			toyAsset("Robot", "robot128", "toy_robot_vintage", 35.68138, 139.76543),
			toyAsset("Plane", "plane128", "toy_biplane", 35.68132, 139.76547),
		},
	}
}

// Parker office places.
var (
	ParkerOfficeDesk            = Place{Latitude: 39.51996788283484, Longitude: -104.79974943077401, Altitude: 1804}
	ParkerOfficeDeskDebug       = Place{Latitude: 39.519965, Longitude: -104.799824, Altitude: 1801}
	ParkerOfficeAcrossTheStreet = Place{Latitude: 39.52033, Longitude: -104.80062, Altitude: 1803}
	ParkerOfficeCattyCorner     = Place{Latitude: 39.52030, Longitude: -104.79962, Altitude: 1803}
)

// ParkerOffice is the demo dataset built from the Parker office places.
func ParkerOffice() *Catalog {
	return &Catalog{
		Name: "parker-office",
		Assets: []core.PlaceableAsset{
			AssetFromPlace("Desk", "drummer128", "toy_drummer", ParkerOfficeDesk),
			AssetFromPlace("Desk (debug)", "robot128", "toy_robot_vintage", ParkerOfficeDeskDebug),
			AssetFromPlace("Across the street", "plane128", "toy_biplane", ParkerOfficeAcrossTheStreet),
			AssetFromPlace("Catty corner", "robot128", "toy_robot_vintage", ParkerOfficeCattyCorner),
		},
	}
}

// Builtin returns a demo dataset by name.
func Builtin(name string) (*Catalog, bool) {
	switch name {
	case "tokyo-station":
		return TokyoStation(), true
	case "parker-office":
		return ParkerOffice(), true
	}
	return nil, false
}
