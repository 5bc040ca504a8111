package geo

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// ParseRoute parses a JSON array of positions into coordinates.
// Input format: "[[lon1,lat1],[lon2,lat2,alt2],...]"
func ParseRoute(input string) ([]core.Coordinate, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse route JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("route must have at least 2 points, got %d", len(coords))
	}

	route := make([]core.Coordinate, len(coords))
	for i, coord := range coords {
		if len(coord) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		c := core.NewCoordinate(coord[1], coord[0])
		if !c.InRange() {
			return nil, fmt.Errorf("coordinate %d: %w", i, ErrInvalidCoordinates)
		}
		if len(coord) > 2 {
			c = c.WithAltitude(coord[2])
		}
		route[i] = c
	}

	return route, nil
}

// Interpolate returns the coordinate at fraction f of the way from a to b,
// linear in degrees. Longitude takes the short way across the antimeridian.
// Altitude is interpolated only when both ends carry one.
func Interpolate(a, b core.Coordinate, f float64) core.Coordinate {
	dLon := b.Longitude - a.Longitude
	if dLon > 180 {
		dLon -= 360
	} else if dLon < -180 {
		dLon += 360
	}
	lon := a.Longitude + dLon*f
	if lon > 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}

	c := core.NewCoordinate(a.Latitude+(b.Latitude-a.Latitude)*f, lon)
	if a.AltitudeValid && b.AltitudeValid {
		c = c.WithAltitude(a.Altitude + (b.Altitude-a.Altitude)*f)
	}
	return c
}
