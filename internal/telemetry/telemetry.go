// Package telemetry exposes worker counters over a Prometheus scrape
// endpoint.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"callscore/internal/logging"
	"callscore/internal/store"
)

// Metrics bundles the counters the worker maintains while processing tasks.
type Metrics struct {
	registry *prometheus.Registry

	tasksProcessed *prometheus.CounterVec
	tasksPublished prometheus.Counter
	taskDuration   prometheus.Histogram
}

// New builds a Metrics set on a private registry so tests never collide on
// the global one.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callscore_tasks_processed_total",
			Help: "Tasks that reached a terminal status, labeled by status.",
		}, []string{"status"}),
		tasksPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callscore_tasks_published_total",
			Help: "Tasks handed to the broker for processing.",
		}),
		taskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "callscore_task_duration_seconds",
			Help:    "Wall-clock time spent processing one task.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	registry.MustRegister(m.tasksProcessed, m.tasksPublished, m.taskDuration)
	return m
}

// TaskProcessed records a terminal transition.
func (m *Metrics) TaskProcessed(status store.Status, elapsed time.Duration) {
	m.tasksProcessed.WithLabelValues(string(status)).Inc()
	m.taskDuration.Observe(elapsed.Seconds())
}

// TaskPublished records a successful broker publish.
func (m *Metrics) TaskPublished() {
	m.tasksPublished.Inc()
}

// Handler returns the scrape handler for this metrics set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the scrape endpoint until ctx is canceled.
func (m *Metrics) Serve(ctx context.Context, listen string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Addr: listen, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("telemetry listening", slog.String("addr", listen))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
