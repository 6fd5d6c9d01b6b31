package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "bckey/internal/errors"
	"bckey/internal/infrastructure"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// DecoderCheckName is the name of the built-in decoder self-test.
const DecoderCheckName = "decoder"

// Known answers for the decoder self-test.
const (
	selfTestKey   = "B782-FF80-92CF-CA66-168A"
	selfTestID    = 0x12345678
	selfTestCount = 16
)

// CheckFunc reports a component as unhealthy by returning an error.
type CheckFunc func(ctx context.Context) error

// ComponentHealth represents health of a specific component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message"`
	Duration  string       `json:"duration"`
	Reason    string       `json:"reason,omitempty"`
	Error     string       `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// HealthCheckResult contains the status of every component
type HealthCheckResult struct {
	OverallStatus HealthStatus                `json:"status"`
	Message       string                      `json:"message"`
	Timestamp     time.Time                   `json:"timestamp"`
	Duration      string                      `json:"duration"`
	TraceID       string                      `json:"trace_id,omitempty"`
	Components    map[string]*ComponentHealth `json:"components"`
}

// HealthCheckConfig configures health check behavior
type HealthCheckConfig struct {
	// Timeout bounds each check.
	Timeout time.Duration
	// SlowThreshold marks a passing check that took longer as degraded.
	SlowThreshold time.Duration
}

// DefaultHealthCheckConfig returns the default timeouts
func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{
		Timeout:       5 * time.Second,
		SlowThreshold: time.Second,
	}
}

// HealthCheck runs named component checks. The decoder self-test is always
// registered.
type HealthCheck struct {
	config HealthCheckConfig
	tracer trace.Tracer

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealthCheck creates a health check with the decoder self-test.
func NewHealthCheck(config HealthCheckConfig) *HealthCheck {
	hc := &HealthCheck{
		config: config,
		tracer: otel.Tracer(TracerName),
		checks: make(map[string]CheckFunc),
	}
	hc.AddCheck(DecoderCheckName, func(context.Context) error { return SelfTest() })
	return hc
}

// AddCheck registers fn under name, replacing any check of that name.
func (hc *HealthCheck) AddCheck(name string, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = fn
}

// PerformHealthCheck runs every check concurrently.
func (hc *HealthCheck) PerformHealthCheck(ctx context.Context) *HealthCheckResult {
	ctx, span := hc.tracer.Start(ctx, "license.health_check")
	defer span.End()

	hc.mu.RLock()
	checks := make(map[string]CheckFunc, len(hc.checks))
	for name, fn := range hc.checks {
		checks[name] = fn
	}
	hc.mu.RUnlock()

	start := time.Now()
	result := &HealthCheckResult{
		Timestamp:  start,
		Components: make(map[string]*ComponentHealth, len(checks)),
		TraceID:    infrastructure.TraceIDFromContext(ctx),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			health := hc.runCheck(ctx, fn)
			mu.Lock()
			result.Components[name] = health
			mu.Unlock()
		}()
	}
	wg.Wait()

	result.OverallStatus = overallStatus(result.Components)
	result.Message = statusMessage(result.OverallStatus, result.Components)
	result.Duration = time.Since(start).String()

	span.SetAttributes(
		attribute.String("health.overall_status", string(result.OverallStatus)),
		attribute.Int("health.total_components", len(result.Components)),
	)
	return result
}

// runCheck stops waiting once the timeout passes. A check that ignores its
// context keeps running in the background until it returns.
func (hc *HealthCheck) runCheck(ctx context.Context, fn CheckFunc) *ComponentHealth {
	if hc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	duration := time.Since(start)

	health := &ComponentHealth{
		Timestamp: start,
		Duration:  duration.String(),
	}

	switch {
	case err != nil:
		health.Status = HealthStatusUnhealthy
		health.Message = "Check failed"
		health.Reason = apperrors.Reason(err)
		health.Error = err.Error()
	case hc.config.SlowThreshold > 0 && duration > hc.config.SlowThreshold:
		health.Status = HealthStatusDegraded
		health.Message = fmt.Sprintf("Check passed slowly (%.2fs)", duration.Seconds())
	default:
		health.Status = HealthStatusHealthy
		health.Message = "Check passed"
	}
	return health
}

func overallStatus(components map[string]*ComponentHealth) HealthStatus {
	status := HealthStatusHealthy
	for _, health := range components {
		switch health.Status {
		case HealthStatusUnhealthy:
			return HealthStatusUnhealthy
		case HealthStatusDegraded:
			status = HealthStatusDegraded
		}
	}
	return status
}

func statusMessage(status HealthStatus, components map[string]*ComponentHealth) string {
	var failing []string
	for name, health := range components {
		if health.Status != HealthStatusHealthy {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)

	switch status {
	case HealthStatusHealthy:
		return fmt.Sprintf("All %d components are healthy", len(components))
	case HealthStatusDegraded:
		return fmt.Sprintf("Operational with degraded components: %v", failing)
	default:
		return fmt.Sprintf("Unhealthy components: %v", failing)
	}
}

// HTTPHandler serves the health check result as JSON. Unhealthy results
// answer 503.
func (hc *HealthCheck) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := hc.PerformHealthCheck(r.Context())

		statusCode := http.StatusOK
		if result.OverallStatus == HealthStatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(result)
	}
}

// SelfTest checks the decoder's constant tables against known answers.
func SelfTest() error {
	if got := Checksum([]byte("123456789")); got != 0xBB3D {
		return fmt.Errorf("checksum table corrupt: check value %#04x", got)
	}

	transformed := Transform(secret)
	if !bytes.Equal(transformed[:], make([]byte, KeyLen)) {
		return fmt.Errorf("secret does not cancel itself: % x", transformed)
	}

	record, err := Decode(selfTestKey)
	if err != nil {
		return fmt.Errorf("known-answer key rejected: %w", err)
	}
	if record.Type != TypeCamera || record.Count != selfTestCount || record.ID != selfTestID {
		return fmt.Errorf("known-answer key decoded to %s", record)
	}
	return nil
}
