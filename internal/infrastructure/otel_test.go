package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"bckey/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// restoreGlobals puts back the global OpenTelemetry providers after a test
// that installs its own.
func restoreGlobals(t *testing.T) {
	t.Helper()
	tp := otel.GetTracerProvider()
	mp := otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	})
}

// TestOTelInitialization tests OpenTelemetry initialization with both exporters
func TestOTelInitialization(t *testing.T) {
	restoreGlobals(t)

	var traces bytes.Buffer
	cfg := &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
		TraceWriter:    &traces,
	}

	providers, err := InitializeOTel(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	_, span := providers.Tracer.Start(context.Background(), "license.validate")
	span.End()
	assert.Contains(t, traces.String(), "license.validate", "stdout exporter writes synchronously")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

// TestOTelInitialization_Disabled tests that "none" exporters yield usable no-op providers
func TestOTelInitialization_Disabled(t *testing.T) {
	providers, err := InitializeOTel(nil, testLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	ctx, span := providers.Tracer.Start(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceIDFromContext(ctx))

	counter, err := providers.Meter.Int64Counter("noop_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

// TestOTelConfiguration tests exporter validation
func TestOTelConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *OTelConfig
		wantErr bool
	}{
		{
			name:    "unsupported trace exporter",
			cfg:     &OTelConfig{TraceExporter: "otlp", MetricExporter: "none"},
			wantErr: true,
		},
		{
			name:    "unsupported metric exporter",
			cfg:     &OTelConfig{TraceExporter: "none", MetricExporter: "statsd"},
			wantErr: true,
		},
		{
			name: "empty exporters mean disabled",
			cfg:  &OTelConfig{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, providers.Shutdown(context.Background()))
		})
	}
}

func TestOTelConfigFromTelemetry(t *testing.T) {
	cfg := OTelConfigFromTelemetry(config.TelemetryConfig{
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		SampleRatio:    0.5,
		Environment:    "staging",
	})

	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, config.AppVersion, cfg.ServiceVersion)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.Equal(t, 0.5, cfg.SampleRatio)
}

// TestPrometheusEndpoint tests that instruments and runtime metrics are scraped
func TestPrometheusEndpoint(t *testing.T) {
	restoreGlobals(t)

	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: "test",
		MetricExporter: "prometheus",
	}, testLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	counter, err := providers.Meter.Int64Counter("bckey_decode_attempts_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3, metric.WithAttributes(attribute.String("reason", "checksum")))

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	body := get(t, server.URL)
	assert.Contains(t, body, "bckey_decode_attempts_total")
	assert.Contains(t, body, `reason="checksum"`)
	assert.Contains(t, body, "bckey_goroutines")
	assert.Contains(t, body, "bckey_process_uptime_seconds")
}

// TestTraceCorrelation tests trace ID extraction from the active span
func TestTraceCorrelation(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-operation")

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	AddSpanEvent(ctx, "fingerprint.selected", attribute.String("interface", "eth0"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "fingerprint.selected", ended[0].Events()[0].Name)

	assert.Empty(t, TraceIDFromContext(context.Background()))
	AddSpanEvent(context.Background(), "ignored")
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
