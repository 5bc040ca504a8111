package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "name": "test",
  "assets": [
    {
      "id": "drummer",
      "name": "Drummer",
      "assetFile": "toy_drummer",
      "scale": [1, 2, 3],
      "yaw": 1.5,
      "approachingDistance": 10,
      "distanceAway": 20,
      "latitude": 35.68157,
      "longitude": 139.76561,
      "altitude": 3.5
    },
    {
      "name": "Robot",
      "assetFile": "toy_robot_vintage",
      "scale": [0.5],
      "approachingDistance": 5,
      "distanceAway": 5,
      "latitude": 35.68138,
      "longitude": 139.76543
    }
  ]
}`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Name)
	require.Equal(t, 2, c.Len())

	d := c.Assets[0]
	assert.Equal(t, "drummer", d.ID)
	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, d.Visual.Scale)
	assert.Equal(t, 1.5, d.Visual.Yaw)
	assert.True(t, d.Coordinate.AltitudeValid)
	assert.Equal(t, 3.5, d.Coordinate.Altitude)

	r := c.Assets[1]
	_, err = uuid.Parse(r.ID)
	assert.NoError(t, err, "missing id should be replaced by a uuid")
	assert.Equal(t, core.Vec3{X: 0.5, Y: 0.5, Z: 0.5}, r.Visual.Scale)
	assert.False(t, r.Coordinate.AltitudeValid)

	got, ok := c.ByID("drummer")
	assert.True(t, ok)
	assert.Equal(t, "Drummer", got.Name)
	_, ok = c.ByID("nope")
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		asset string
	}{
		{"away below approaching", `{"id":"a","assetFile":"f","approachingDistance":10,"distanceAway":5}`},
		{"zero approaching", `{"id":"a","assetFile":"f","approachingDistance":0,"distanceAway":5}`},
		{"no asset file", `{"id":"a","approachingDistance":1,"distanceAway":5}`},
		{"latitude out of range", `{"id":"a","assetFile":"f","approachingDistance":1,"distanceAway":5,"latitude":91}`},
		{"bad scale", `{"id":"a","assetFile":"f","approachingDistance":1,"distanceAway":5,"scale":[1,2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(`{"name":"x","assets":[` + tt.asset + `]}`))
			assert.ErrorIs(t, err, ErrInvalidAsset)
		})
	}

	_, err := Parse([]byte(`{`))
	assert.Error(t, err)
}

func TestValidate_DuplicateIDs(t *testing.T) {
	a := toyAsset("A", "", "a", 1, 1)
	b := toyAsset("B", "", "b", 1, 1)
	b.ID = a.ID

	err := (&Catalog{Assets: []core.PlaceableAsset{a, b}}).Validate()
	assert.ErrorIs(t, err, ErrInvalidAsset)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestLoadAndMarshal(t *testing.T) {
	original := TokyoStation()
	data, err := original.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestBuiltinDatasets(t *testing.T) {
	for _, name := range []string{"tokyo-station", "parker-office"} {
		c, ok := Builtin(name)
		require.True(t, ok, name)
		assert.NoError(t, c.Validate(), name)
		assert.NotZero(t, c.Len(), name)
	}

	_, ok := Builtin("atlantis")
	assert.False(t, ok)

	for _, a := range TokyoStation().Assets {
		assert.Equal(t, 10.0, a.ApproachingDistance)
		assert.Equal(t, 20.0, a.DistanceAway)
	}
}

func TestAssetFromPlace(t *testing.T) {
	a := AssetFromPlace("Desk", "thumb", "model", ParkerOfficeDesk)

	assert.Equal(t, 5.0, a.ApproachingDistance)
	assert.Equal(t, 10.0, a.DistanceAway)
	assert.Equal(t, core.Vec3{X: 0.01, Y: 0.01, Z: 0.01}, a.Visual.Scale)
	assert.Equal(t, 1804.0, a.Coordinate.Altitude)
	assert.True(t, a.Coordinate.AltitudeValid)
}

func TestPlaceFromJSON(t *testing.T) {
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"latitude":39.5,"longitude":"oops","title":"desk"}`), &m))

	p := PlaceFromJSON(m)
	assert.Equal(t, Place{Latitude: 39.5}, p)
}
