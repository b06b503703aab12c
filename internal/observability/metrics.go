package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	entriesPosted   *prometheus.CounterVec
	entriesVoided   prometheus.Counter
	entriesReversed prometheus.Counter
	yearsClosed     prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and ledger metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillbook_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tillbook_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	posted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tillbook_journal_entries_posted_total",
		Help: "Journal entries posted, by source.",
	}, []string{"source"})
	voided := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillbook_journal_entries_voided_total",
		Help: "Journal entries voided.",
	})
	reversed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillbook_journal_entries_reversed_total",
		Help: "Journal entries reversed.",
	})
	closed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tillbook_fiscal_years_closed_total",
		Help: "Fiscal years closed.",
	})
	registry.MustRegister(requests, duration, posted, voided, reversed, closed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		entriesPosted:   posted,
		entriesVoided:   voided,
		entriesReversed: reversed,
		yearsClosed:     closed,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// EntryPosted counts one posted entry for the given source.
func (m *Metrics) EntryPosted(source string) {
	if m == nil {
		return
	}
	m.entriesPosted.WithLabelValues(source).Inc()
}

// EntryVoided counts one voided entry.
func (m *Metrics) EntryVoided() {
	if m == nil {
		return
	}
	m.entriesVoided.Inc()
}

// EntryReversed counts one reversal.
func (m *Metrics) EntryReversed() {
	if m == nil {
		return
	}
	m.entriesReversed.Inc()
}

// YearClosed counts one fiscal year close.
func (m *Metrics) YearClosed() {
	if m == nil {
		return
	}
	m.yearsClosed.Inc()
}

// Registerer exposes the registry for registering custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
