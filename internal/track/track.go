// Package track supplies device samples: recorded track files, simulated
// walks along a route and the location feed distance filter.
package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ErrEmptyTrack is returned for a track file without samples.
var ErrEmptyTrack = errors.New("track has no samples")

// sampleJSON is one recorded fix. Altitude is only valid with a positive
// verticalAccuracy.
type sampleJSON struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	HorizontalAccuracy float64   `json:"horizontalAccuracy"`
	VerticalAccuracy   float64   `json:"verticalAccuracy"`
	Floor              *int      `json:"floor,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

// Load reads a JSON array of recorded samples.
func Load(path string) ([]core.DeviceSample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track: %w", err)
	}
	return Parse(data)
}

// Parse decodes a JSON array of recorded samples.
func Parse(data []byte) ([]core.DeviceSample, error) {
	var raw []sampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyTrack
	}

	out := make([]core.DeviceSample, len(raw))
	for i, r := range raw {
		s := core.NewDeviceSample(r.Latitude, r.Longitude, r.Altitude,
			r.HorizontalAccuracy, r.VerticalAccuracy, r.Timestamp)
		s.Floor = r.Floor
		if s.HasFix() && !s.InRange() {
			return nil, fmt.Errorf("sample %d: %w", i, geo.ErrInvalidCoordinates)
		}
		out[i] = s
	}
	return out, nil
}

// Save writes samples in the format read by Load.
func Save(path string, samples []core.DeviceSample) error {
	raw := make([]sampleJSON, len(samples))
	for i, s := range samples {
		raw[i] = sampleJSON{
			Latitude:           s.Latitude,
			Longitude:          s.Longitude,
			Altitude:           s.Altitude,
			HorizontalAccuracy: s.HorizontalAccuracy,
			VerticalAccuracy:   s.VerticalAccuracy,
			Floor:              s.Floor,
			Timestamp:          s.Timestamp,
		}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// SimulateOptions control Simulate.
type SimulateOptions struct {
	// Step is the walking distance between samples in meters.
	Step float64
	// Interval is the time between samples.
	Interval           time.Duration
	Start              time.Time
	HorizontalAccuracy float64
	VerticalAccuracy   float64
}

// DefaultSimulateOptions walk at about 1.4 m/s with a good fix.
func DefaultSimulateOptions() SimulateOptions {
	return SimulateOptions{
		Step:               1.4,
		Interval:           time.Second,
		HorizontalAccuracy: 3,
		VerticalAccuracy:   2,
	}
}

// Simulate walks route emitting a sample every opts.Step meters, always
// including the final point.
func Simulate(route []core.Coordinate, opts SimulateOptions) ([]core.DeviceSample, error) {
	if len(route) < 2 {
		return nil, fmt.Errorf("route needs at least 2 points, got %d", len(route))
	}
	if opts.Step <= 0 {
		return nil, fmt.Errorf("step must be positive, got %.2f", opts.Step)
	}

	var out []core.DeviceSample
	emit := func(c core.Coordinate) {
		ts := opts.Start.Add(time.Duration(len(out)) * opts.Interval)
		// a point without altitude has no vertical fix
		vAcc := opts.VerticalAccuracy
		if !c.AltitudeValid {
			vAcc = 0
		}
		out = append(out, core.NewDeviceSample(c.Latitude, c.Longitude, c.Altitude,
			opts.HorizontalAccuracy, vAcc, ts))
	}

	emit(route[0])
	carry := 0.0 // distance walked since the last sample
	for i := 1; i < len(route); i++ {
		a, b := route[i-1], route[i]
		seg := geo.Distance(a, b)
		if seg == 0 {
			continue
		}
		pos := opts.Step - carry
		for ; pos <= seg; pos += opts.Step {
			emit(geo.Interpolate(a, b, pos/seg))
		}
		carry = seg - (pos - opts.Step)
	}

	last := route[len(route)-1]
	if prev := out[len(out)-1]; geo.Distance(prev.Coordinate, last) > 1e-6 {
		emit(last)
	}
	return out, nil
}

// DistanceFilter drops samples that moved less than Min meters from the
// last delivered one. A zero Min passes everything. Samples without a fix
// are always dropped.
type DistanceFilter struct {
	Min  float64
	last *core.Coordinate
}

// NewDistanceFilter returns a filter with the given threshold in meters.
func NewDistanceFilter(min float64) *DistanceFilter {
	return &DistanceFilter{Min: math.Max(0, min)}
}

// Allow reports whether s should be delivered and records it if so.
func (f *DistanceFilter) Allow(s core.DeviceSample) bool {
	if !s.HasFix() {
		return false
	}
	if f.last != nil && f.Min > 0 && geo.Distance(*f.last, s.Coordinate) < f.Min {
		return false
	}
	c := s.Coordinate
	f.last = &c
	return true
}

// Filter applies a fresh filter to samples.
func Filter(samples []core.DeviceSample, min float64) []core.DeviceSample {
	f := NewDistanceFilter(min)
	out := make([]core.DeviceSample, 0, len(samples))
	for _, s := range samples {
		if f.Allow(s) {
			out = append(out, s)
		}
	}
	return out
}
