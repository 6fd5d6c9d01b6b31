package security

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "bckey/internal/errors"
)

const (
	TracerName = "bckey/security"
	MeterName  = "bckey/security"
)

// Metrics holds the fingerprint deriver's instruments.
type Metrics struct {
	Duration metric.Float64Histogram
	Failures metric.Int64Counter
}

// InitializeMetrics creates the fingerprint instruments on meter.
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	duration, err := meter.Float64Histogram(
		"bckey_fingerprint_duration_seconds",
		metric.WithDescription("Machine fingerprint derivation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint duration histogram: %w", err)
	}

	failures, err := meter.Int64Counter(
		"bckey_fingerprint_failures_total",
		metric.WithDescription("Total number of failed machine fingerprint derivations, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint failures counter: %w", err)
	}

	return &Metrics{Duration: duration, Failures: failures}, nil
}

func (m *Metrics) record(ctx context.Context, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.Duration.Record(ctx, duration.Seconds())
	if err != nil {
		m.Failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", apperrors.Reason(err)),
		))
	}
}
