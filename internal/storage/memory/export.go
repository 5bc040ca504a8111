// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/geoanchor/pkg/core"
)

// SessionExport is the root JSON structure of an exported session
type SessionExport struct {
	SessionName string          `json:"sessionName"`
	UUID        string          `json:"uuid"`
	CatalogName string          `json:"catalogName"`
	AssetCount  int             `json:"assetCount"`
	Tag         string          `json:"tag,omitempty"`
	StartTime   time.Time       `json:"startTime"`
	EndTime     time.Time       `json:"endTime"`
	Duration    float64         `json:"duration"` // seconds
	Samples     []SampleJSON    `json:"samples"`
	Placements  []PlacementJSON `json:"placements"`
}

// SampleJSON is one journaled device sample
type SampleJSON struct {
	Tick               uint      `json:"tick"`
	Time               time.Time `json:"time"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           *float64  `json:"altitude,omitempty"`
	HorizontalAccuracy float64   `json:"horizontalAccuracy"`
	VerticalAccuracy   float64   `json:"verticalAccuracy"`
	Floor              *int      `json:"floor,omitempty"`
	Accepted           bool      `json:"accepted"`
	State              string    `json:"state"`
	Placed             int       `json:"placed"`
}

// PlacementJSON is one journaled renderer command.
// Offset and Translation are [x, y, z] in meters.
type PlacementJSON struct {
	Tick        uint       `json:"tick"`
	Time        time.Time  `json:"time"`
	Kind        string     `json:"kind"`
	AssetID     string     `json:"assetId"`
	AssetName   string     `json:"assetName,omitempty"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Altitude    *float64   `json:"altitude,omitempty"`
	Offset      [3]float64 `json:"offset"`
	Translation [3]float64 `json:"translation"`
	Scale       [3]float64 `json:"scale"`
	Yaw         float64    `json:"yaw"`
}

func altitudePtr(c core.Coordinate) *float64 {
	if !c.AltitudeValid {
		return nil
	}
	alt := c.Altitude
	return &alt
}

func vec(v core.Vec3) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// exportFileName builds "<session>_<start>.json[.gz]" with a filesystem-safe session name
func exportFileName(session *core.Session, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_").Replace(session.Name)
	if name == "" {
		name = "session"
	}
	timestamp := session.StartTime.Format("20060102_150405")

	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes the session journal to a (optionally gzipped) JSON file.
// Callers hold b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.session, b.cfg.CompressOutput))

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExport = core.UploadMetadata{
		SessionName: b.session.Name,
		CatalogName: b.session.CatalogName,
		StartTime:   b.session.StartTime,
		Duration:    export.Duration,
		Tag:         b.session.Tag,
	}
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		SessionName: b.session.Name,
		UUID:        b.session.UUID,
		CatalogName: b.session.CatalogName,
		AssetCount:  b.session.AssetCount,
		Tag:         b.session.Tag,
		StartTime:   b.session.StartTime,
		EndTime:     b.session.EndTime,
		Duration:    b.session.Duration().Seconds(),
		Samples:     make([]SampleJSON, 0, len(b.samples)),
		Placements:  make([]PlacementJSON, 0, len(b.placements)),
	}

	for _, r := range b.samples {
		export.Samples = append(export.Samples, SampleJSON{
			Tick:               r.Tick,
			Time:               r.Time,
			Latitude:           r.Sample.Latitude,
			Longitude:          r.Sample.Longitude,
			Altitude:           altitudePtr(r.Sample.Coordinate),
			HorizontalAccuracy: r.Sample.HorizontalAccuracy,
			VerticalAccuracy:   r.Sample.VerticalAccuracy,
			Floor:              r.Sample.Floor,
			Accepted:           r.Accepted,
			State:              r.State,
			Placed:             r.Placed,
		})
	}

	for _, e := range b.placements {
		export.Placements = append(export.Placements, PlacementJSON{
			Tick:        e.Tick,
			Time:        e.Time,
			Kind:        e.Kind,
			AssetID:     e.AssetID,
			AssetName:   e.AssetName,
			Latitude:    e.Coordinate.Latitude,
			Longitude:   e.Coordinate.Longitude,
			Altitude:    altitudePtr(e.Coordinate),
			Offset:      vec(e.Offset),
			Translation: vec(e.Translation),
			Scale:       vec(e.Visual.Scale),
			Yaw:         e.Visual.Yaw,
		})
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
