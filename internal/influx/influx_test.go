package influx

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/geoanchor/internal/config"
	"github.com/OCAP2/geoanchor/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() *core.Session {
	return &core.Session{UUID: "sess-1", Name: "walk", CatalogName: "tokyo-station"}
}

func testRecord() core.SampleRecord {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	return core.SampleRecord{
		Time:     ts,
		Tick:     4,
		Sample:   core.NewDeviceSample(35.68157, 139.76561, 3.5, 4.0, 2.0, ts),
		Accepted: true,
		State:    "active",
		Placed:   2,
	}
}

func lines(data string) []string {
	var out []string
	for _, l := range strings.Split(data, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(config.InfluxConfig{Enabled: false}, zerolog.Nop())
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
	assert.False(t, m.IsValid())
	assert.Error(t, m.WritePoint(TickPoint(testSession(), testRecord(), core.Effects{})))
	assert.NoError(t, m.Close())
}

func TestURL(t *testing.T) {
	m := NewManager(config.InfluxConfig{Protocol: "https", Host: "influx", Port: "8086"}, zerolog.Nop())
	assert.Equal(t, "https://influx:8086", m.URL())
}

func TestTickPoint(t *testing.T) {
	effects := core.Effects{
		Accepted:     true,
		ToAdd:        []core.Placement{{AssetID: "a"}, {AssetID: "b"}},
		ToReposition: []core.Move{{AssetID: "c"}},
	}
	p := TickPoint(testSession(), testRecord(), effects)

	assert.Equal(t, MeasurementTick, p.Name())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "sess-1", tags["session"])
	assert.Equal(t, "active", tags["state"])

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, int64(2), fields["added"])
	assert.Equal(t, int64(1), fields["moved"])
	assert.Equal(t, int64(0), fields["removed"])
	assert.Equal(t, true, fields["accepted"])
	assert.Contains(t, fields, "latitude")
}

func TestTickPoint_NoFix(t *testing.T) {
	r := testRecord()
	r.Sample.HorizontalAccuracy = -1
	p := TickPoint(testSession(), r, core.Effects{})

	for _, f := range p.FieldList() {
		assert.NotEqual(t, "latitude", f.Key)
	}
}

func TestPlacementPoint(t *testing.T) {
	p := PlacementPoint(testSession(), core.PlacementEvent{
		Tick:    2,
		Kind:    core.PlacementRemoved,
		AssetID: "robot",
		Offset:  core.Vec3{X: 1, Y: 2, Z: 3},
	})
	assert.Equal(t, MeasurementPlacement, p.Name())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, "removed", tags["kind"])
	assert.Equal(t, "robot", tags["asset"])
}

func TestConnect_UnreachableWritesBackup(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(config.InfluxConfig{
		Enabled:   true,
		Protocol:  "http",
		Host:      "127.0.0.1",
		Port:      "1",
		Org:       "geoanchor",
		Bucket:    "placement",
		BackupDir: dir,
	}, zerolog.Nop())

	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid())

	require.NoError(t, m.WritePoint(TickPoint(testSession(), testRecord(), core.Effects{})))
	require.NoError(t, m.WritePoint(PlacementPoint(testSession(), core.PlacementEvent{Kind: core.PlacementPlaced, AssetID: "drummer"})))
	require.NoError(t, m.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".lp.gz"))

	f, err := os.Open(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	got := lines(string(data))
	require.Len(t, got, 2)
	assert.True(t, strings.HasPrefix(got[0], "tick,"))
	assert.True(t, strings.HasPrefix(got[1], "placement,"))
}

func TestConnect_WritesToServer(t *testing.T) {
	var mu sync.Mutex
	var written []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/orgs":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"orgs":[{"id":"0000000000000001","name":"geoanchor"}]}`))
		case "/api/v2/buckets":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"buckets":[{"id":"0000000000000002","name":"placement","orgID":"0000000000000001","retentionRules":[]}]}`))
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			written = append(written, lines(string(body))...)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	m := NewManager(config.InfluxConfig{
		Enabled:  true,
		Protocol: "http",
		Host:     u.Hostname(),
		Port:     u.Port(),
		Token:    "token",
		Org:      "geoanchor",
		Bucket:   "placement",
	}, zerolog.Nop())

	require.NoError(t, m.Connect(context.Background()))
	assert.True(t, m.IsValid())

	require.NoError(t, m.WritePoint(TickPoint(testSession(), testRecord(), core.Effects{})))
	require.NoError(t, m.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, written, 1)
	assert.True(t, strings.HasPrefix(written[0], "tick,"))
}
