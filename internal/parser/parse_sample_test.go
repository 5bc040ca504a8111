package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/geoanchor/internal/geo"
	"github.com/OCAP2/geoanchor/pkg/core"
)

func TestParseSample(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		check   func(t *testing.T, s core.DeviceSample)
		wantErr bool
	}{
		{
			name: "full sample",
			input: []string{
				`"139.76561,35.68157,3.5"`, // 0: position
				"3.2",                      // 1: horizontalAccuracy
				"1.5",                      // 2: verticalAccuracy
				"2024-05-01T10:00:00Z",     // 3: timestamp
				"2.00",                     // 4: floor
			},
			check: func(t *testing.T, s core.DeviceSample) {
				assert.Equal(t, 35.68157, s.Latitude)
				assert.Equal(t, 139.76561, s.Longitude)
				assert.True(t, s.AltitudeValid)
				assert.Equal(t, 3.5, s.Altitude)
				assert.Equal(t, 3.2, s.HorizontalAccuracy)
				assert.Equal(t, 1.5, s.VerticalAccuracy)
				assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), s.Timestamp)
				require.NotNil(t, s.Floor)
				assert.Equal(t, 2, *s.Floor)
			},
		},
		{
			name:  "minimal sample",
			input: []string{"139.76561,35.68157", "4", "4"},
			check: func(t *testing.T, s core.DeviceSample) {
				assert.False(t, s.AltitudeValid)
				assert.Nil(t, s.Floor)
				assert.WithinDuration(t, time.Now(), s.Timestamp, time.Minute)
			},
		},
		{
			name:  "zero vertical accuracy drops altitude",
			input: []string{"139.76561,35.68157,3.5", "4", "0"},
			check: func(t *testing.T, s core.DeviceSample) {
				assert.False(t, s.AltitudeValid)
				assert.Zero(t, s.Altitude)
			},
		},
		{
			name:  "invalid fix skips position",
			input: []string{"garbage", "-1", "0"},
			check: func(t *testing.T, s core.DeviceSample) {
				assert.False(t, s.HasFix())
			},
		},
		{name: "too few fields", input: []string{"1,2", "3"}, wantErr: true},
		{name: "bad horizontal accuracy", input: []string{"1,2", "x", "3"}, wantErr: true},
		{name: "bad vertical accuracy", input: []string{"1,2", "3", "x"}, wantErr: true},
		{name: "bad timestamp", input: []string{"1,2", "3", "3", "yesterday"}, wantErr: true},
		{name: "bad floor", input: []string{"1,2", "3", "3", "", "1.5"}, wantErr: true},
		{name: "bad position", input: []string{"1", "3", "3"}, wantErr: true},
		{name: "out of range", input: []string{"181,0", "3", "3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseSample(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestParseSample_InvalidPositionWrapsSentinel(t *testing.T) {
	_, err := newTestParser().ParseSample([]string{"0,95", "3", "3"})
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)
}

func TestParsePose(t *testing.T) {
	p := newTestParser()

	v, err := p.ParsePose([]string{`"0.5,1.6,-2"`})
	require.NoError(t, err)
	assert.Equal(t, core.Vec3{X: 0.5, Y: 1.6, Z: -2}, v)

	_, err = p.ParsePose(nil)
	assert.Error(t, err)
	_, err = p.ParsePose([]string{"1,2"})
	assert.Error(t, err)
}
