// Package metrics exposes Prometheus collectors for the render service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scrape outcomes used as label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeTimeout = "timeout"
)

var (
	scrapesTotal               *prometheus.CounterVec
	scrapeDurationSeconds      prometheus.Histogram
	browserSessionsActive      prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once  sync.Once
	ready atomic.Bool
)

// Init initializes the Prometheus collectors.
// It is safe to call this function multiple times. Until it has been called,
// the Observe, Inc and Dec helpers are no-ops and nothing is registered.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rendertext_scrapes_total",
				Help: "Total number of scrape tasks, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		scrapeDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rendertext_scrape_duration_seconds",
				Help:    "Histogram of scrape task durations including browser launch and teardown.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
			},
		)

		browserSessionsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "rendertext_browser_sessions_active",
				Help: "Number of browser processes currently owned by a scrape task.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"method", "route"},
		)

		ready.Store(true)
	})
}

// Enabled reports whether Init has registered the collectors.
func Enabled() bool {
	return ready.Load()
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one finished scrape task.
func ObserveScrape(outcome string, duration time.Duration) {
	if !ready.Load() {
		return
	}
	scrapesTotal.WithLabelValues(outcome).Inc()
	scrapeDurationSeconds.Observe(duration.Seconds())
}

// IncSessions increments the active browser sessions gauge.
func IncSessions() {
	if !ready.Load() {
		return
	}
	browserSessionsActive.Inc()
}

// DecSessions decrements the active browser sessions gauge.
func DecSessions() {
	if !ready.Load() {
		return
	}
	browserSessionsActive.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if !ready.Load() {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
