package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/internal/util"
	"github.com/OCAP2/geoanchor/pkg/core"
)

// ParseSample parses a location fix.
// Args: ["lon,lat[,alt]", horizontalAccuracy, verticalAccuracy, timestamp?, floor?]
//
// A negative horizontal accuracy marks the fix invalid; the coordinate is
// then not checked and the sample is returned without a fix. The altitude
// is only valid when present and the vertical accuracy is positive. An
// empty or missing timestamp means now.
func (p *Parser) ParseSample(data []string) (core.DeviceSample, error) {
	var result core.DeviceSample

	if len(data) < 3 {
		return result, fmt.Errorf("insufficient data fields: got %d, need at least 3", len(data))
	}
	util.CleanArgs(data)

	// [1] horizontalAccuracy
	hAcc, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return result, fmt.Errorf("error parsing horizontalAccuracy: %w", err)
	}
	result.HorizontalAccuracy = hAcc

	// [2] verticalAccuracy
	vAcc, err := strconv.ParseFloat(data[2], 64)
	if err != nil {
		return result, fmt.Errorf("error parsing verticalAccuracy: %w", err)
	}
	result.VerticalAccuracy = vAcc

	// [3] timestamp
	result.Timestamp = time.Now()
	if len(data) > 3 && data[3] != "" {
		ts, err := time.Parse(time.RFC3339Nano, data[3])
		if err != nil {
			return result, fmt.Errorf("error parsing timestamp: %w", err)
		}
		result.Timestamp = ts
	}

	// [4] floor
	if len(data) > 4 && data[4] != "" {
		floor, err := parseIntFromFloat(data[4])
		if err != nil {
			return result, fmt.Errorf("error parsing floor: %w", err)
		}
		f := int(floor)
		result.Floor = &f
	}

	if !result.HasFix() {
		p.logger.Debug("Sample without fix", "horizontalAccuracy", hAcc)
		return result, nil
	}

	// [0] position
	coord, err := geo.CoordinateFromString(data[0])
	if err != nil {
		return result, fmt.Errorf("error parsing position %q: %w", data[0], err)
	}
	if vAcc <= 0 {
		coord.AltitudeValid = false
		coord.Altitude = 0
	}
	result.Coordinate = coord

	return result, nil
}
