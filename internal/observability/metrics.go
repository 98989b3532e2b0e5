package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SubmissionMetrics records service-level operation outcomes.
type SubmissionMetrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordSubmission(ctx context.Context, tier, outcome string)
}

// SheetsMetrics records remote spreadsheet traffic.
type SheetsMetrics interface {
	RecordAPICall(ctx context.Context, call, status string)
	RecordRetry(ctx context.Context, call string)
}

// InteractionMetrics records gateway-level interaction outcomes.
type InteractionMetrics interface {
	RecordInteraction(ctx context.Context, kind, outcome string)
}

// Metrics is the prometheus-backed implementation of all metric
// interfaces, registered on its own registry so the optional listener
// exposes only this process's series.
type Metrics struct {
	registry *prometheus.Registry

	operationAttempts  *prometheus.CounterVec
	operationFailures  *prometheus.CounterVec
	operationDurations *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	sheetCalls         *prometheus.CounterVec
	sheetRetries       *prometheus.CounterVec
	interactions       *prometheus.CounterVec
}

// NewMetrics builds the registry and collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		operationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_operation_attempts_total",
			Help: "Service operations started.",
		}, []string{"operation"}),
		operationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_operation_failures_total",
			Help: "Service operations that returned an error.",
		}, []string{"operation"}),
		operationDurations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "allowgate_operation_duration_seconds",
			Help:    "Service operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_submissions_total",
			Help: "Wallet submissions by tier and store outcome.",
		}, []string{"tier", "outcome"}),
		sheetCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_sheets_calls_total",
			Help: "Google Sheets API calls by method and status.",
		}, []string{"call", "status"}),
		sheetRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_sheets_retries_total",
			Help: "Rate-limit retries per Sheets call.",
		}, []string{"call"}),
		interactions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "allowgate_interactions_total",
			Help: "Discord interactions by kind and outcome.",
		}, []string{"kind", "outcome"}),
	}
}

func (m *Metrics) RecordOperationAttempt(_ context.Context, operation string) {
	m.operationAttempts.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordOperationDuration(_ context.Context, operation string, d time.Duration) {
	m.operationDurations.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) RecordOperationFailure(_ context.Context, operation string) {
	m.operationFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) RecordSubmission(_ context.Context, tier, outcome string) {
	m.submissions.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) RecordAPICall(_ context.Context, call, status string) {
	m.sheetCalls.WithLabelValues(call, status).Inc()
}

func (m *Metrics) RecordRetry(_ context.Context, call string) {
	m.sheetRetries.WithLabelValues(call).Inc()
}

func (m *Metrics) RecordInteraction(_ context.Context, kind, outcome string) {
	m.interactions.WithLabelValues(kind, outcome).Inc()
}

// Serve exposes /metrics on addr until ctx is done. An empty addr
// disables the listener.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics listener started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", slog.Any("error", err))
		}
	}()
}

// NoOpMetrics satisfies every metrics interface without recording
// anything. Used in tests.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordOperationAttempt(context.Context, string)                {}
func (NoOpMetrics) RecordOperationDuration(context.Context, string, time.Duration) {}
func (NoOpMetrics) RecordOperationFailure(context.Context, string)                {}
func (NoOpMetrics) RecordSubmission(context.Context, string, string)              {}
func (NoOpMetrics) RecordAPICall(context.Context, string, string)                 {}
func (NoOpMetrics) RecordRetry(context.Context, string)                           {}
func (NoOpMetrics) RecordInteraction(context.Context, string, string)             {}
