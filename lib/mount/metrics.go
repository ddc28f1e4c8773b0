package mount

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for mount operations.
type Metrics struct {
	umountAttempts metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	umountAttempts, err := meter.Int64Counter(
		"debian_builder_umount_attempts_total",
		metric.WithDescription("Total number of umount attempts"),
	)
	if err != nil {
		return nil, err
	}
	return &Metrics{umountAttempts: umountAttempts}, nil
}

func (m *manager) recordUmountAttempt(ctx context.Context, ok bool) {
	if m.metrics == nil {
		return
	}
	status := "failed"
	if ok {
		status = "success"
	}
	m.metrics.umountAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)))
}
