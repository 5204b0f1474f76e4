// Package observe records engine metrics through the OpenTelemetry API.
//
// A package-level default ([DefaultMetrics]) uses the global meter
// provider, which is a no-op unless the host installs one. Tests should
// build their own with [NewMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "git.lost.host/meutraa/tapsync"

type Metrics struct {
	// Judgements counts note judgements. Attributes: outcome, variant.
	Judgements metric.Int64Counter

	// OutputLatency records measured device output latency in seconds.
	OutputLatency metric.Float64Histogram

	// UserOffset records calibrated user offsets in seconds.
	UserOffset metric.Float64Histogram

	// CalibrationFailures counts soft calibration failures. Attribute: kind.
	CalibrationFailures metric.Int64Counter

	// Rounds counts finished rounds. Attribute: result.
	Rounds metric.Int64Counter
}

var latencyBuckets = []float64{
	0, 0.01, 0.02, 0.04, 0.06, 0.08, 0.1, 0.15, 0.2, 0.3, 0.5,
}

var offsetBuckets = []float64{
	-0.3, -0.2, -0.1, -0.05, -0.02, 0, 0.02, 0.05, 0.1, 0.2, 0.3,
}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Judgements, err = m.Int64Counter("tapsync.judgements",
		metric.WithDescription("Note judgements by outcome and variant."),
	); err != nil {
		return nil, err
	}
	if met.OutputLatency, err = m.Float64Histogram("tapsync.calibration.output_latency",
		metric.WithDescription("Measured audio output latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UserOffset, err = m.Float64Histogram("tapsync.calibration.user_offset",
		metric.WithDescription("Calibrated player tap offset."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(offsetBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CalibrationFailures, err = m.Int64Counter("tapsync.calibration.failures",
		metric.WithDescription("Calibrations that fell back to a default, by kind."),
	); err != nil {
		return nil, err
	}
	if met.Rounds, err = m.Int64Counter("tapsync.rounds",
		metric.WithDescription("Rounds finished, by result."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on the global
// meter provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordJudgement(ctx context.Context, outcome, variant string) {
	m.Judgements.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("variant", variant),
	))
}

func (m *Metrics) RecordOutputLatency(ctx context.Context, seconds float64) {
	m.OutputLatency.Record(ctx, seconds)
}

func (m *Metrics) RecordUserOffset(ctx context.Context, seconds float64) {
	m.UserOffset.Record(ctx, seconds)
}

func (m *Metrics) RecordCalibrationFailure(ctx context.Context, kind string) {
	m.CalibrationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) RecordRound(ctx context.Context, result string) {
	m.Rounds.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
