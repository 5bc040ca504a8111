package geo

import (
	"errors"
	"strconv"
	"strings"

	"github.com/OCAP2/geoanchor/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Journal positions are stored as EPSG:3857 points so SQLite (no spatial
// extension) and PostGIS read the same WKB.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// CoordinateFromString parses "long,lat" or "long,lat,alt" into a coordinate.
// The altitude is valid only when present.
func CoordinateFromString(coords string) (core.Coordinate, error) {
	coordsSplit := strings.Split(strings.TrimSpace(coords), ",")
	if len(coordsSplit) < 2 || len(coordsSplit) > 3 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	// parse the longitude
	long, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	// parse the latitude
	lat, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	c := core.NewCoordinate(lat, long)
	if !c.InRange() {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	// parse the altitude
	if len(coordsSplit) > 2 {
		alt, err := strconv.ParseFloat(strings.TrimSpace(coordsSplit[2]), 64)
		if err != nil {
			return core.Coordinate{}, ErrInvalidCoordinates
		}
		c = c.WithAltitude(alt)
	}
	return c, nil
}

// Point3857 converts a WGS84 coordinate to a Web Mercator point.
// Z carries the altitude, or 0 when the altitude is invalid.
func Point3857(c core.Coordinate) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(c.Longitude, c.Latitude, 0)

	var z float64
	if c.AltitudeValid {
		z = c.Altitude
	}
	return geom.NewPoint(
		geom.Coordinates{
			XY:   geom.XY{X: x, Y: y},
			Z:    z,
			Type: geom.CoordinatesType(geom.DimXYZ),
		},
	)
}

// CoordinateFrom3857 is the inverse of Point3857. The altitude is restored
// only when altitudeValid is set, since Point3857 writes 0 for a missing one.
func CoordinateFrom3857(p geom.Point, altitudeValid bool) core.Coordinate {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Coordinate{}
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ := f(coords.XY.X, coords.XY.Y, 0)

	c := core.NewCoordinate(lat, lon)
	if altitudeValid {
		c = c.WithAltitude(coords.Z)
	}
	return c
}
