package geo

import (
	"math"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// EarthRadiusMeters is the WGS-84 mean earth radius.
const EarthRadiusMeters = 6371008.8

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// Distance returns the great-circle surface distance in meters between a
// and b using the haversine formula. Altitude is ignored.
func Distance(a, b core.Coordinate) float64 {
	φ1, φ2 := radians(a.Latitude), radians(b.Latitude)
	Δφ := radians(b.Latitude - a.Latitude)
	Δλ := radians(b.Longitude - a.Longitude)

	h := math.Sin(Δφ/2)*math.Sin(Δφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	// rounding can push h a hair outside [0,1]
	h = math.Min(1, math.Max(0, h))
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(h))
}

// LocalOffset returns target relative to base in meters on the local
// tangent plane: X east, Y up, Z south.
//
// East and south are two separate great-circle cuts through base, one along
// base's parallel and one along base's meridian. Up is the altitude
// difference when both altitudes are valid, otherwise 0.
func LocalOffset(base, target core.Coordinate) core.Vec3 {
	east := Distance(base, core.NewCoordinate(base.Latitude, target.Longitude))
	if target.Longitude < base.Longitude {
		east = -east
	}
	// the haversine arc is always the short one, so crossing the
	// antimeridian reverses the direction implied by the raw longitudes
	if math.Abs(base.Longitude-target.Longitude) > 180 {
		east = -east
	}

	south := Distance(base, core.NewCoordinate(target.Latitude, base.Longitude))
	if target.Latitude > base.Latitude {
		south = -south
	}

	var up float64
	if base.AltitudeValid && target.AltitudeValid {
		up = target.Altitude - base.Altitude
	}

	return core.Vec3{X: east, Y: up, Z: south}
}
