// Package metrics exposes Prometheus counters for journal ingestion.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edtrack/internal/log"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED"`
	Address string `yaml:"address" env:"ADDRESS"`
}

// ApplyDefaults fills in the listen address
func (c *Config) ApplyDefaults() {
	if c.Address == "" {
		c.Address = "127.0.0.1:9317"
	}
}

// Metrics holds the ingestion counters. A nil or disabled Metrics is valid
// and records nothing.
type Metrics struct {
	EventsDispatched *prometheus.CounterVec
	EventsIgnored    *prometheus.CounterVec
	EventsFailed     *prometheus.CounterVec
	Discrepancies    *prometheus.CounterVec
	Replays          prometheus.Counter
	ReplayDuration   prometheus.Histogram
	PendingMatches   prometheus.Gauge

	registry *prometheus.Registry
	enabled  bool
	address  string
}

// New creates the metrics on a private registry
func New(cfg Config) *Metrics {
	cfg.ApplyDefaults()

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		enabled:  cfg.Enabled,
		address:  cfg.Address,
	}
	if !cfg.Enabled {
		return m
	}

	m.EventsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edtrack",
			Name:      "events_dispatched_total",
			Help:      "Journal events handled, by kind",
		},
		[]string{"kind"},
	)
	m.EventsIgnored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edtrack",
			Name:      "events_ignored_total",
			Help:      "Journal events with no handler, by kind",
		},
		[]string{"kind"},
	)
	m.EventsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edtrack",
			Name:      "events_failed_total",
			Help:      "Journal events dropped by a failing handler, by kind",
		},
		[]string{"kind"},
	)
	m.Discrepancies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "edtrack",
			Name:      "cargo_discrepancies_total",
			Help:      "Cargo mismatches tolerated, by reason",
		},
		[]string{"reason"},
	)
	m.Replays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "edtrack",
			Name:      "replays_total",
			Help:      "Full journal replays",
		},
	)
	m.ReplayDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "edtrack",
			Name:      "replay_duration_seconds",
			Help:      "Time to replay the whole journal",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
	m.PendingMatches = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "edtrack",
			Name:      "pending_bio_matches",
			Help:      "Biological signals waiting for their body scan",
		},
	)

	m.registry.MustRegister(
		m.EventsDispatched,
		m.EventsIgnored,
		m.EventsFailed,
		m.Discrepancies,
		m.Replays,
		m.ReplayDuration,
		m.PendingMatches,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// IsEnabled returns true if metrics are collected
func (m *Metrics) IsEnabled() bool {
	return m != nil && m.enabled
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve runs the /metrics endpoint until ctx is done
func (m *Metrics) Serve(ctx context.Context) error {
	if !m.IsEnabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{Addr: m.address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", "address", m.address)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// RecordDispatched counts a handled event
func (m *Metrics) RecordDispatched(kind string) {
	if m.IsEnabled() {
		m.EventsDispatched.WithLabelValues(kind).Inc()
	}
}

// RecordIgnored counts an event nobody handles
func (m *Metrics) RecordIgnored(kind string) {
	if m.IsEnabled() {
		m.EventsIgnored.WithLabelValues(kind).Inc()
	}
}

// RecordFailed counts an event dropped by its handler
func (m *Metrics) RecordFailed(kind string) {
	if m.IsEnabled() {
		m.EventsFailed.WithLabelValues(kind).Inc()
	}
}

// RecordDiscrepancy counts a tolerated cargo mismatch
func (m *Metrics) RecordDiscrepancy(reason string) {
	if m.IsEnabled() {
		m.Discrepancies.WithLabelValues(reason).Inc()
	}
}

// RecordReplay counts a replay and its duration
func (m *Metrics) RecordReplay(duration time.Duration) {
	if m.IsEnabled() {
		m.Replays.Inc()
		m.ReplayDuration.Observe(duration.Seconds())
	}
}

// SetPendingMatches sets the pending bio match gauge
func (m *Metrics) SetPendingMatches(n int) {
	if m.IsEnabled() {
		m.PendingMatches.Set(float64(n))
	}
}
