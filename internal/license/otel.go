package license

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "bckey/internal/errors"
)

const (
	TracerName = "bckey/license"
	MeterName  = "bckey/license"
)

// Metrics holds the license decoder's OpenTelemetry instruments.
type Metrics struct {
	DecodeAttempts metric.Int64Counter
	DecodeSuccess  metric.Int64Counter
	DecodeFailures metric.Int64Counter
	DecodeDuration metric.Float64Histogram
	RateLimitHits  metric.Int64Counter
}

// InitializeMetrics creates the decoder instruments on meter.
func InitializeMetrics(meter metric.Meter) (*Metrics, error) {
	metrics := &Metrics{}

	var err error

	metrics.DecodeAttempts, err = meter.Int64Counter(
		"bckey_decode_attempts_total",
		metric.WithDescription("Total number of license key decode attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode attempts counter: %w", err)
	}

	metrics.DecodeSuccess, err = meter.Int64Counter(
		"bckey_decode_success_total",
		metric.WithDescription("Total number of license keys decoded successfully"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode success counter: %w", err)
	}

	metrics.DecodeFailures, err = meter.Int64Counter(
		"bckey_decode_failures_total",
		metric.WithDescription("Total number of rejected license keys, by reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode failures counter: %w", err)
	}

	metrics.DecodeDuration, err = meter.Float64Histogram(
		"bckey_decode_duration_seconds",
		metric.WithDescription("License key decode duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decode duration histogram: %w", err)
	}

	metrics.RateLimitHits, err = meter.Int64Counter(
		"bckey_decode_rate_limited_total",
		metric.WithDescription("Total number of decode attempts rejected by the rate limiter"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit counter: %w", err)
	}

	return metrics, nil
}

// recordDecode records the outcome of one decode attempt.
func (m *Metrics) recordDecode(ctx context.Context, record *Record, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.DecodeAttempts.Add(ctx, 1)
	m.DecodeDuration.Record(ctx, duration.Seconds())

	if err != nil {
		m.DecodeFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("reason", apperrors.Reason(err)),
		))
		return
	}

	m.DecodeSuccess.Add(ctx, 1, metric.WithAttributes(
		attribute.String("license_type", record.Type.String()),
	))
}

func (m *Metrics) recordRateLimited(ctx context.Context) {
	if m == nil {
		return
	}
	m.RateLimitHits.Add(ctx, 1)
}
