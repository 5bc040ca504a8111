package main

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/OCAP2/geoanchor/internal/catalog"
	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/track"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// approachMeters is how far south of the first asset a demo walk starts.
const approachMeters = 60

// loadSamples picks the location feed: a recorded track file, an explicit
// route, or a walk past every asset of the catalog.
func loadSamples(trackFile, route string, cat *catalog.Catalog, cfg config.TrackConfig, start time.Time) ([]core.DeviceSample, error) {
	if trackFile != "" {
		return track.Load(trackFile)
	}

	var points []core.Coordinate
	if route != "" {
		var err error
		points, err = geo.ParseRoute(route)
		if err != nil {
			return nil, fmt.Errorf("invalid route: %w", err)
		}
	} else {
		if cat == nil {
			return nil, fmt.Errorf("no catalog loaded")
		}
		points = demoRoute(cat)
		if len(points) < 2 {
			return nil, fmt.Errorf("catalog %q has no assets to walk past", cat.Name)
		}
	}

	opts := track.DefaultSimulateOptions()
	if cfg.Step > 0 {
		opts.Step = cfg.Step
	}
	if cfg.Interval > 0 {
		opts.Interval = cfg.Interval
	}
	if cfg.HorizontalAccuracy != 0 {
		opts.HorizontalAccuracy = cfg.HorizontalAccuracy
	}
	if cfg.VerticalAccuracy != 0 {
		opts.VerticalAccuracy = cfg.VerticalAccuracy
	}
	opts.Start = start
	return track.Simulate(points, opts)
}

// demoRoute starts south of the first asset and visits every asset in
// catalog order.
func demoRoute(cat *catalog.Catalog) []core.Coordinate {
	if cat.Len() == 0 {
		return nil
	}
	first := cat.Assets[0].Coordinate
	metersPerDegree := geo.EarthRadiusMeters * math.Pi / 180
	start := core.NewCoordinate(first.Latitude-approachMeters/metersPerDegree, first.Longitude)

	route := []core.Coordinate{start}
	for _, a := range cat.Assets {
		route = append(route, core.NewCoordinate(a.Coordinate.Latitude, a.Coordinate.Longitude))
	}
	return route
}

// sampleArgs formats a sample as :SAMPLE: arguments.
func sampleArgs(s core.DeviceSample) []string {
	pos := fmt.Sprintf("%.8f,%.8f", s.Longitude, s.Latitude)
	if s.AltitudeValid {
		pos += "," + strconv.FormatFloat(s.Altitude, 'f', 2, 64)
	}
	args := []string{
		pos,
		strconv.FormatFloat(s.HorizontalAccuracy, 'f', -1, 64),
		strconv.FormatFloat(s.VerticalAccuracy, 'f', -1, 64),
		"",
	}
	if !s.Timestamp.IsZero() {
		args[3] = s.Timestamp.Format(time.RFC3339Nano)
	}
	if s.Floor != nil {
		args = append(args, strconv.Itoa(*s.Floor))
	}
	return args
}
