package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/OCAP2/geoanchor/internal/placement"
	"github.com/OCAP2/geoanchor/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/geoanchor/internal/tracker"

type metrics struct {
	samples    metric.Int64Counter
	placements metric.Int64Counter
	fatals     metric.Int64Counter
}

// newMetrics uses the global meter provider, a no-op when OTel is off.
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	out.samples, err = m.Int64Counter(
		"tracker.samples",
		metric.WithDescription("Device samples processed, by gate decision"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating samples counter: %w", err)
	}

	out.placements, err = m.Int64Counter(
		"tracker.placements",
		metric.WithDescription("Renderer commands issued, by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating placements counter: %w", err)
	}

	out.fatals, err = m.Int64Counter(
		"tracker.fatal",
		metric.WithDescription("Fatal placement errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating fatal counter: %w", err)
	}
	return out, nil
}

func (m *metrics) record(r core.SampleRecord, events []core.PlacementEvent) {
	ctx := context.Background()
	m.samples.Add(ctx, 1, metric.WithAttributes(attribute.Bool("accepted", r.Accepted)))
	for _, e := range events {
		m.placements.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", e.Kind)))
	}
}

func (m *metrics) fatal(err error) {
	reason := "halted"
	if errors.Is(err, placement.ErrVisualUnavailable) {
		reason = "visual_unavailable"
	}
	m.fatals.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
}
