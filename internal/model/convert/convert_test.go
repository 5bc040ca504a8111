package convert

import (
	"testing"
	"time"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestSessionRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	original := core.Session{
		ID:          7,
		UUID:        "5d0c3c3e-0000-4000-8000-000000000001",
		Name:        "walk",
		CatalogName: "tokyo-station",
		AssetCount:  3,
		Tag:         "demo",
		StartTime:   now,
		EndTime:     now.Add(time.Minute),
	}

	gormObj := CoreToSession(original)
	assert.Equal(t, uint(7), gormObj.ID)
	assert.Equal(t, "demo", gormObj.Tag)

	assert.Equal(t, original, SessionToCore(gormObj))
}

func TestDeviceSampleRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	floor := 2
	sample := core.NewDeviceSample(35.68157, 139.76561, 3.5, 4.0, 2.0, now)
	sample.Floor = &floor
	original := core.SampleRecord{
		Time:     now,
		Tick:     12,
		Sample:   sample,
		Accepted: true,
		State:    "active",
		Placed:   2,
	}

	gormObj := CoreToDeviceSample(original)
	assert.True(t, gormObj.AltitudeValid)
	require.NotNil(t, gormObj.Floor)
	assert.Equal(t, 2, *gormObj.Floor)

	back := DeviceSampleToCore(gormObj)
	assert.Equal(t, original.Tick, back.Tick)
	assert.Equal(t, original.Accepted, back.Accepted)
	assert.Equal(t, original.State, back.State)
	assert.Equal(t, original.Placed, back.Placed)
	assert.InDelta(t, 35.68157, back.Sample.Latitude, 1e-7)
	assert.InDelta(t, 139.76561, back.Sample.Longitude, 1e-7)
	assert.True(t, back.Sample.AltitudeValid)
	assert.InDelta(t, 3.5, back.Sample.Altitude, 1e-9)
	assert.Equal(t, 4.0, back.Sample.HorizontalAccuracy)
}

func TestDeviceSample_NoAltitude(t *testing.T) {
	sample := core.NewDeviceSample(35.0, 139.0, 100, 3.0, 0, time.Time{})
	gormObj := CoreToDeviceSample(core.SampleRecord{Sample: sample})
	assert.False(t, gormObj.AltitudeValid)

	back := DeviceSampleToCore(gormObj)
	assert.False(t, back.Sample.AltitudeValid)
	assert.Zero(t, back.Sample.Altitude)
}

func TestPlacementEventRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	original := core.PlacementEvent{
		Time:        now,
		Tick:        3,
		Kind:        core.PlacementPlaced,
		AssetID:     "drummer",
		AssetName:   "Drummer",
		Coordinate:  core.NewCoordinate(35.68157, 139.76561).WithAltitude(3.5),
		Offset:      core.Vec3{X: 1.5, Y: 2, Z: -8},
		Translation: core.Vec3{X: 1.6, Y: 2, Z: -7.9},
		Visual:      core.VisualParams{Scale: core.Vec3{X: 0.01, Y: 0.01, Z: 0.01}, Yaw: 1.57},
	}

	gormObj := CoreToPlacementEvent(original)
	assert.JSONEq(t, `{"scale":{"x":0.01,"y":0.01,"z":0.01},"yaw":1.57}`, string(gormObj.Visual))
	assert.Equal(t, -8.0, gormObj.OffsetZ)

	back := PlacementEventToCore(gormObj)
	assert.Equal(t, original.Kind, back.Kind)
	assert.Equal(t, original.AssetID, back.AssetID)
	assert.Equal(t, original.Offset, back.Offset)
	assert.Equal(t, original.Translation, back.Translation)
	assert.Equal(t, original.Visual, back.Visual)
	assert.InDelta(t, original.Coordinate.Latitude, back.Coordinate.Latitude, 1e-7)
	assert.InDelta(t, 3.5, back.Coordinate.Altitude, 1e-9)
}

func TestVisualToJSON_Empty(t *testing.T) {
	assert.Equal(t, datatypes.JSON(`{"scale":{"x":0,"y":0,"z":0},"yaw":0}`), visualToJSON(core.VisualParams{}))
}
