// pkg/core/coordinate.go
package core

// Coordinate is a geographic position in degrees with an optional altitude.
// Altitude is only meaningful when AltitudeValid is set.
type Coordinate struct {
	Latitude      float64 // degrees, -90..90
	Longitude     float64 // degrees, -180..180
	Altitude      float64 // meters above mean sea level
	AltitudeValid bool
}

// NewCoordinate returns a coordinate without altitude.
func NewCoordinate(latitude, longitude float64) Coordinate {
	return Coordinate{Latitude: latitude, Longitude: longitude}
}

// WithAltitude returns a copy of c carrying a valid altitude.
func (c Coordinate) WithAltitude(altitude float64) Coordinate {
	c.Altitude = altitude
	c.AltitudeValid = true
	return c
}

// InRange reports whether latitude and longitude are inside their valid ranges.
func (c Coordinate) InRange() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

// Vec3 is a local tangent-plane vector in meters.
// X points east, Y up and Z south, so north is -Z.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}
