package monitor

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/OCAP2/geoanchor/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe(Report{
		Status: tracker.Status{
			State:    "active",
			Ticks:    10,
			Accepted: 7,
			Skipped:  3,
			Placed:   []tracker.PlacedStatus{{ID: "a"}, {ID: "b"}},
		},
		PendingWrites: 4,
		QueuedEvents:  6,
	})

	assert.Equal(t, 10.0, testutil.ToFloat64(c.Ticks))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.Accepted))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Skipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Placed))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.PendingWrites))
	assert.Equal(t, 6.0, testutil.ToFloat64(c.QueuedEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Active))
}

func TestCollector_ReRegisterReusesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.Ticks.Set(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(second.Ticks))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	c.Observe(Report{})
}

func TestCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.Observe(Report{Status: tracker.Status{Ticks: 3}})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "geoanchor_ticks 3")
}

func TestWriteStatus_MetricsOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	svc := NewService(Dependencies{
		Tracker: staticStatus{tracker.Status{Ticks: 8}},
		Metrics: c,
	})
	require.NoError(t, svc.WriteStatus())
	assert.Equal(t, 8.0, testutil.ToFloat64(c.Ticks))
}
