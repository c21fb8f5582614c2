package worker

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/OCAP2/combatsim/internal/worker"

type metrics struct {
	ticks     metric.Int64Counter
	effects   metric.Int64Counter
	completed metric.Int64Counter
	frames    metric.Int64Histogram
}

// newMetrics binds the run instruments to the global meter provider. An instrument
// that fails to register records nothing.
func newMetrics() *metrics {
	m := otel.Meter(instrumentationName)
	out := &metrics{}

	var err error
	if out.ticks, err = m.Int64Counter("engagement.ticks",
		metric.WithDescription("Total frames simulated"),
	); err != nil {
		out.ticks = noop.Int64Counter{}
	}
	if out.effects, err = m.Int64Counter("engagement.effects",
		metric.WithDescription("Total effects applied, by kind"),
	); err != nil {
		out.effects = noop.Int64Counter{}
	}
	if out.completed, err = m.Int64Counter("engagement.completed",
		metric.WithDescription("Total finished engagements, by end reason"),
	); err != nil {
		out.completed = noop.Int64Counter{}
	}
	if out.frames, err = m.Int64Histogram("engagement.frames",
		metric.WithDescription("Frames an engagement ran for"),
		metric.WithUnit("{frame}"),
	); err != nil {
		out.frames = noop.Int64Histogram{}
	}
	return out
}
