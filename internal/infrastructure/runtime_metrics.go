package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RegisterRuntimeMetrics registers observable gauges for the Go runtime and
// process uptime on meter. Values are read at collection time, so a scrape of
// the metrics endpoint always sees current numbers.
func RegisterRuntimeMetrics(meter metric.Meter, startTime time.Time) error {
	goroutines, err := meter.Int64ObservableGauge(
		"bckey_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return fmt.Errorf("failed to create goroutines gauge: %w", err)
	}

	heapAlloc, err := meter.Int64ObservableGauge(
		"bckey_memory_heap_alloc_bytes",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create heap gauge: %w", err)
	}

	memorySystem, err := meter.Int64ObservableGauge(
		"bckey_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return fmt.Errorf("failed to create system memory gauge: %w", err)
	}

	gcCount, err := meter.Int64ObservableCounter(
		"bckey_gc_count_total",
		metric.WithDescription("Total number of completed garbage collections"),
	)
	if err != nil {
		return fmt.Errorf("failed to create gc counter: %w", err)
	}

	uptime, err := meter.Float64ObservableGauge(
		"bckey_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create uptime gauge: %w", err)
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heapAlloc, int64(memStats.HeapAlloc))
		o.ObserveInt64(memorySystem, int64(memStats.Sys))
		o.ObserveInt64(gcCount, int64(memStats.NumGC))
		o.ObserveFloat64(uptime, time.Since(startTime).Seconds())
		return nil
	}, goroutines, heapAlloc, memorySystem, gcCount, uptime)
	if err != nil {
		return fmt.Errorf("failed to register runtime metrics callback: %w", err)
	}

	return nil
}
