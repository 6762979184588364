package watch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/archspec/engine"
	"github.com/c360studio/archspec/rules"
)

// Metrics tracks check activity for a watch session.
type Metrics struct {
	registry *prometheus.Registry

	checksTotal     prometheus.Counter
	violationsTotal *prometheus.CounterVec
	checkDuration   prometheus.Histogram
}

// NewMetrics creates and registers the watch metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		checksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "archspec",
			Name:      "checks_total",
			Help:      "Number of file checks performed.",
		}),
		violationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "archspec",
			Name:      "violations_total",
			Help:      "Number of violations reported, by severity.",
		}, []string{"severity"}),
		checkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "archspec",
			Name:      "check_duration_seconds",
			Help:      "Time spent checking one file.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
	registry.MustRegister(m.checksTotal, m.violationsTotal, m.checkDuration)
	return m
}

func (m *Metrics) observe(result *engine.ScanResult, elapsed time.Duration) {
	m.checksTotal.Inc()
	m.checkDuration.Observe(elapsed.Seconds())
	for _, v := range result.Violations {
		m.violationsTotal.WithLabelValues(string(v.Severity)).Inc()
	}
	// Keep all severity series present so dashboards see explicit zeros.
	for _, sev := range []rules.Severity{rules.SeverityError, rules.SeverityWarning, rules.SeverityInfo} {
		m.violationsTotal.WithLabelValues(string(sev)).Add(0)
	}
}

// Serve exposes /metrics on addr until the context is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown", "error", err)
		}
	}()

	logger.Info("Metrics server listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
