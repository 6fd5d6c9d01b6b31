package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"bckey/internal/config"
)

const metricsShutdownTimeout = 5 * time.Second

// NewMetricsRouter returns a router serving metrics on /metrics and a
// liveness probe on /healthz. A nil metrics handler answers 404.
func NewMetricsRouter(metrics http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestTracer(logger))
	r.Use(middleware.Recoverer)

	r.Get(config.HealthEndpoint, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if metrics != nil {
		r.Handle(config.MetricsEndpoint, metrics)
	}

	return r
}

// requestTracer wraps each request in a server span and logs it at debug
// level; scrapes are frequent.
func requestTracer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := otel.Tracer(ServiceName).Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.URLPath(r.URL.Path),
				),
			)
			defer span.End()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			span.SetAttributes(
				semconv.HTTPRoute(route),
				semconv.HTTPResponseStatusCode(status),
			)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			logger.DebugContext(ctx, "request completed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("route", route),
				slog.Int("status", status),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}

// MetricsServer serves the metrics router in the background
type MetricsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
	done     chan struct{}
}

// StartMetricsServer listens on addr and serves handler until Shutdown.
// The listener is bound before returning, so Addr is valid immediately.
func StartMetricsServer(addr string, handler http.Handler, logger *slog.Logger) (*MetricsServer, error) {
	if logger == nil {
		logger = GetLogger()
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s := &MetricsServer{
		server: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server error", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Metrics server started", slog.String("address", s.Addr()))
	return s, nil
}

// Addr returns the address the server is listening on
func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting up to a few seconds for open requests.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, metricsShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	<-s.done
	return nil
}
