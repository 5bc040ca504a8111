package monitor

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector mirrors the status report as Prometheus gauges.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks         prometheus.Gauge
	Accepted      prometheus.Gauge
	Skipped       prometheus.Gauge
	Placed        prometheus.Gauge
	PendingWrites prometheus.Gauge
	QueuedEvents  prometheus.Gauge
	Active        prometheus.Gauge
}

// NewCollector registers the gauges against reg, the default registerer when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{gatherer: gatherer}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&c.Ticks, "geoanchor_ticks", "Location samples processed in this run."},
		{&c.Accepted, "geoanchor_samples_accepted", "Samples that passed the accuracy gate."},
		{&c.Skipped, "geoanchor_samples_skipped", "Samples dropped by the accuracy gate."},
		{&c.Placed, "geoanchor_placed_entities", "Entities currently placed in the scene."},
		{&c.PendingWrites, "geoanchor_storage_pending_writes", "Journal rows waiting for the next batch write."},
		{&c.QueuedEvents, "geoanchor_dispatch_queued_events", "Host commands waiting in a dispatcher queue."},
		{&c.Active, "geoanchor_scene_active", "1 once the scene has been set up."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}
	return c, nil
}

// Observe updates every gauge from a report.
func (c *Collector) Observe(r Report) {
	if c == nil {
		return
	}
	c.Ticks.Set(float64(r.Ticks))
	c.Accepted.Set(float64(r.Accepted))
	c.Skipped.Set(float64(r.Skipped))
	c.Placed.Set(float64(len(r.Placed)))
	c.PendingWrites.Set(float64(r.PendingWrites))
	c.QueuedEvents.Set(float64(r.QueuedEvents))
	active := 0.0
	if r.State == "active" {
		active = 1
	}
	c.Active.Set(active)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
