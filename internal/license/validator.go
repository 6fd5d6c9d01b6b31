package license

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "bckey/internal/errors"
	"bckey/internal/infrastructure"
)

// Validator decodes license keys with logging, tracing, metrics and an
// optional attempt rate limit. The zero options produce a Validator that
// logs to the global logger and traces to the global tracer provider.
type Validator struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	limiter *rate.Limiter
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLogger sets the logger used for audit records.
func WithLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger != nil {
			v.logger = logger.With(slog.String("component", "license"))
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(metrics *Metrics) ValidatorOption {
	return func(v *Validator) {
		v.metrics = metrics
	}
}

// WithTracer sets the tracer used for validation spans.
func WithTracer(tracer trace.Tracer) ValidatorOption {
	return func(v *Validator) {
		if tracer != nil {
			v.tracer = tracer
		}
	}
}

// WithRateLimit caps validation attempts at rps per second with the given
// burst. Attempts over the limit fail with ErrRateLimited without being
// decoded. A non-positive rps disables the limit.
func WithRateLimit(rps float64, burst int) ValidatorOption {
	return func(v *Validator) {
		if rps <= 0 {
			v.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		logger: infrastructure.GetLogger().With(slog.String("component", "license")),
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate decodes key and records the attempt.
func (v *Validator) Validate(ctx context.Context, key string) (*Record, error) {
	ctx, span := v.tracer.Start(ctx, "license.validate",
		trace.WithAttributes(attribute.String("license.key_masked", MaskLicenseKey(key))),
	)
	defer span.End()

	if v.limiter != nil && !v.limiter.Allow() {
		err := apperrors.NewRateLimitError()
		v.metrics.recordRateLimited(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		v.audit(ctx, slog.LevelWarn, key, nil, 0, err)
		return nil, err
	}

	start := time.Now()
	record, err := Decode(key)
	duration := time.Since(start)

	v.metrics.recordDecode(ctx, record, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Reason(err))
		v.audit(ctx, slog.LevelWarn, key, nil, duration, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("license.type", record.Type.String()),
		attribute.Int64("license.id", int64(record.ID)),
	)
	span.SetStatus(codes.Ok, "")
	v.audit(ctx, slog.LevelInfo, key, record, duration, nil)
	return record, nil
}

// Result is the outcome of one key in a batch.
type Result struct {
	Key    string
	Record *Record
	Err    error
}

// ValidateAll validates keys using at most workers goroutines (unbounded when
// workers <= 0). Results are in input order. A failing key does not stop the
// batch; keys not yet started when ctx is cancelled report ctx.Err().
func (v *Validator) ValidateAll(ctx context.Context, keys []string, workers int) []Result {
	results := make([]Result, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, key := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Key: key, Err: err}
				return nil
			}
			record, err := v.Validate(gctx, key)
			results[i] = Result{Key: key, Record: record, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (v *Validator) audit(ctx context.Context, level slog.Level, key string, record *Record, duration time.Duration, err error) {
	attrs := []slog.Attr{
		slog.String("action", "license_validation"),
		slog.String("license_key_masked", MaskLicenseKey(key)),
		slog.String("license_key_hash", hashLicenseKey(key)),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs,
			slog.String("result", "rejected"),
			slog.String("reason", apperrors.Reason(err)),
			slog.String("error", err.Error()),
		)
		v.logger.LogAttrs(ctx, level, "License key rejected", attrs...)
		return
	}

	attrs = append(attrs,
		slog.String("result", "accepted"),
		slog.String("license_type", record.Type.String()),
		slog.Uint64("license_id", uint64(record.ID)),
		slog.Int("count", int(record.Count)),
		slog.Int("eval_period", int(record.EvalPeriod)),
	)
	v.logger.LogAttrs(ctx, level, "License key accepted", attrs...)
}
