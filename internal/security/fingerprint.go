package security

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "bckey/internal/errors"
	"bckey/internal/infrastructure"
)

const (
	// FingerprintLen is the length of a fingerprint in hex characters.
	FingerprintLen = 2 * AddrLen
	// FingerprintBufferSize is the smallest destination FingerprintInto
	// accepts: the hex digits plus a NUL terminator.
	FingerprintBufferSize = FingerprintLen + 1
)

// FingerprintDeriver renders a machine fingerprint from a network hardware
// address. Every call queries the host; nothing is cached.
type FingerprintDeriver struct {
	source  InterfaceSource
	policy  SelectionPolicy
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

// DeriverOption configures a FingerprintDeriver.
type DeriverOption func(*FingerprintDeriver)

// WithInterfaceSource replaces the platform interface source.
func WithInterfaceSource(source InterfaceSource) DeriverOption {
	return func(d *FingerprintDeriver) {
		if source != nil {
			d.source = source
		}
	}
}

// WithSelectionPolicy replaces the interface selection policy.
func WithSelectionPolicy(policy SelectionPolicy) DeriverOption {
	return func(d *FingerprintDeriver) {
		d.policy = policy
	}
}

// WithPreferredPrefixes uses the standard policy with the given prefixes.
func WithPreferredPrefixes(prefixes []string) DeriverOption {
	return WithSelectionPolicy(NewSelectionPolicy(prefixes))
}

// WithLogger sets the deriver's logger.
func WithLogger(logger *slog.Logger) DeriverOption {
	return func(d *FingerprintDeriver) {
		if logger != nil {
			d.logger = logger.With(slog.String("component", "fingerprint"))
		}
	}
}

// WithMetrics enables metric recording.
func WithMetrics(metrics *Metrics) DeriverOption {
	return func(d *FingerprintDeriver) {
		d.metrics = metrics
	}
}

// WithTracer sets the tracer used for derivation spans.
func WithTracer(tracer trace.Tracer) DeriverOption {
	return func(d *FingerprintDeriver) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// NewFingerprintDeriver creates a deriver using the platform interface source
// and the default selection policy.
func NewFingerprintDeriver(opts ...DeriverOption) *FingerprintDeriver {
	d := &FingerprintDeriver{
		source: DefaultInterfaceSource(),
		policy: DefaultSelectionPolicy(),
		logger: infrastructure.GetLogger().With(slog.String("component", "fingerprint")),
		tracer: otel.Tracer(TracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fingerprint returns the machine fingerprint as 12 lowercase hex characters.
func (d *FingerprintDeriver) Fingerprint(ctx context.Context) (string, error) {
	var buf [FingerprintBufferSize]byte
	n, err := d.FingerprintInto(ctx, buf[:])
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// FingerprintInto writes the fingerprint and a NUL terminator to dst and
// returns the number of hex characters written. A dst shorter than
// FingerprintBufferSize fails with ErrBufferTooSmall before the host is
// queried.
func (d *FingerprintDeriver) FingerprintInto(ctx context.Context, dst []byte) (int, error) {
	ctx, span := d.tracer.Start(ctx, "machine.fingerprint")
	defer span.End()

	start := time.Now()
	sel, err := d.derive(ctx, dst)
	duration := time.Since(start)

	d.metrics.record(ctx, duration, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Reason(err))
		d.logger.WarnContext(ctx, "Machine fingerprint unavailable",
			slog.String("reason", apperrors.Reason(err)),
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return 0, err
	}

	span.SetAttributes(
		attribute.String("fingerprint.interface", sel.Interface.Name),
		attribute.String("fingerprint.rule", sel.Rule),
	)
	span.SetStatus(codes.Ok, "")
	d.logger.DebugContext(ctx, "Machine fingerprint derived",
		slog.String("interface", sel.Interface.Name),
		slog.String("rule", sel.Rule),
		slog.Duration("duration", duration),
	)
	return FingerprintLen, nil
}

func (d *FingerprintDeriver) derive(ctx context.Context, dst []byte) (Selection, error) {
	if len(dst) < FingerprintBufferSize {
		return Selection{}, apperrors.NewBufferError(len(dst), FingerprintBufferSize)
	}

	session, err := d.source.Open(ctx)
	if err != nil {
		return Selection{}, apperrors.NewIOError("failed to open interface query handle", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			d.logger.WarnContext(ctx, "Failed to close interface query handle",
				slog.String("error", cerr.Error()))
		}
	}()

	ifaces, err := session.Interfaces()
	if err != nil {
		return Selection{}, apperrors.NewIOError("failed to enumerate network interfaces", err)
	}

	sel, err := d.policy.Select(ifaces, func(iface Interface) (net.HardwareAddr, error) {
		addr, err := session.HardwareAddr(iface)
		if err != nil {
			d.logger.DebugContext(ctx, "Skipping interface",
				slog.String("interface", iface.Name),
				slog.String("error", err.Error()))
		}
		return addr, err
	})
	if err != nil {
		return Selection{}, apperrors.NewIOError("no usable network interface", err).
			WithContext("interfaces", len(ifaces))
	}

	hex.Encode(dst, sel.Addr)
	dst[FingerprintLen] = 0
	return sel, nil
}
