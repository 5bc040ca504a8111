// pkg/core/sample.go
package core

import "time"

// DeviceSample is one fix delivered by the location provider.
type DeviceSample struct {
	Coordinate

	// HorizontalAccuracy is the radius of uncertainty in meters.
	// A negative value means latitude and longitude are invalid.
	HorizontalAccuracy float64
	// VerticalAccuracy is the altitude uncertainty in meters.
	// Zero or negative means the altitude is invalid.
	VerticalAccuracy float64

	// Floor is the logical building floor, nil when unknown.
	Floor     *int
	Timestamp time.Time
}

// NewDeviceSample builds a sample, marking the altitude valid only when the
// vertical accuracy is positive.
func NewDeviceSample(lat, lon, alt, horizontalAccuracy, verticalAccuracy float64, ts time.Time) DeviceSample {
	c := NewCoordinate(lat, lon)
	if verticalAccuracy > 0 {
		c = c.WithAltitude(alt)
	}
	return DeviceSample{
		Coordinate:         c,
		HorizontalAccuracy: horizontalAccuracy,
		VerticalAccuracy:   verticalAccuracy,
		Timestamp:          ts,
	}
}

// HasFix reports whether latitude and longitude can be trusted.
func (s DeviceSample) HasFix() bool {
	return s.HorizontalAccuracy >= 0
}
