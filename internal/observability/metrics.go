// Package observability provides Prometheus metrics for the signal bot.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "smartmoney"

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Pass metrics
	PassesTotal    *prometheus.CounterVec
	PassDuration   prometheus.Histogram
	WalletsScanned prometheus.Counter
	RecordsScanned prometheus.Counter
	Candidates     prometheus.Counter
	Rejections     *prometheus.CounterVec
	SignalsEmitted prometheus.Counter
	NotifyErrors   prometheus.Counter

	// Upstream metrics
	UpstreamErrors *prometheus.CounterVec
	DataSurprises  *prometheus.CounterVec

	// Watchlist metrics
	RefreshTotal  *prometheus.CounterVec
	WatchlistSize prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry, so tests may
// build as many instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PassesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "passes_total",
			Help:      "Monitor passes by outcome",
		}, []string{"status"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one monitor pass",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		}),
		WalletsScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "wallets_scanned_total",
			Help:      "Watched wallets whose activity was fetched",
		}),
		RecordsScanned: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_scanned_total",
			Help:      "Activity records considered by the pipeline",
		}),
		Candidates: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "candidates_total",
			Help:      "Candidate buys extracted from activity",
		}),
		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rejections_total",
			Help:      "Candidate buys dropped, by reason",
		}, []string{"reason"}),
		SignalsEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "signals_emitted_total",
			Help:      "Whale signals handed to the notifier",
		}),
		NotifyErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notify_errors_total",
			Help:      "Signals whose delivery failed",
		}),
		UpstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upstream_errors_total",
			Help:      "Failed upstream API calls, by source",
		}, []string{"source"}),
		DataSurprises: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "data_shape_surprises_total",
			Help:      "Upstream payload items or fields that could not be decoded and were treated as empty",
		}, []string{"source", "field"}),
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "refresh_total",
			Help:      "Watchlist refreshes by outcome",
		}, []string{"status"}),
		WatchlistSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "watchlist_size",
			Help:      "Wallets in the stored watchlist after the last refresh",
		}),
	}
}

// Registry exposes the underlying registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Metrics) RecordPass(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.PassesTotal.WithLabelValues(status).Inc()
	m.PassDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordWalletScanned() {
	if m != nil {
		m.WalletsScanned.Inc()
	}
}

func (m *Metrics) RecordRecordScanned() {
	if m != nil {
		m.RecordsScanned.Inc()
	}
}

func (m *Metrics) RecordCandidate() {
	if m != nil {
		m.Candidates.Inc()
	}
}

func (m *Metrics) RecordRejection(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) RecordSignal() {
	if m != nil {
		m.SignalsEmitted.Inc()
	}
}

func (m *Metrics) RecordNotifyError() {
	if m != nil {
		m.NotifyErrors.Inc()
	}
}

func (m *Metrics) RecordUpstreamError(source string) {
	if m != nil {
		m.UpstreamErrors.WithLabelValues(source).Inc()
	}
}

// RecordDataSurprise counts an upstream payload part that was treated as empty.
func (m *Metrics) RecordDataSurprise(source, field string) {
	if m != nil {
		m.DataSurprises.WithLabelValues(source, field).Inc()
	}
}

func (m *Metrics) RecordRefresh(status string, size int) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(status).Inc()
	if size >= 0 {
		m.WatchlistSize.Set(float64(size))
	}
}
