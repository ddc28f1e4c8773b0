package builder

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Metrics holds the metrics instruments for builds.
type Metrics struct {
	stageDuration metric.Float64Histogram
	buildDuration metric.Float64Histogram
	tracer        trace.Tracer
}

func newMetrics(meter metric.Meter, tracer trace.Tracer) (*Metrics, error) {
	stageDuration, err := meter.Float64Histogram(
		"debian_builder_stage_duration_seconds",
		metric.WithDescription("Time spent in a build stage"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	buildDuration, err := meter.Float64Histogram(
		"debian_builder_build_duration_seconds",
		metric.WithDescription("Time to build an image"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		stageDuration: stageDuration,
		buildDuration: buildDuration,
		tracer:        tracer,
	}, nil
}

func status(err error) string {
	if err != nil {
		return "failed"
	}
	return "success"
}

func (m *manager) recordStage(ctx context.Context, stage string, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.stageDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status(err)),
		))
}

func (m *manager) recordBuild(ctx context.Context, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	m.metrics.buildDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", status(err))))
}
