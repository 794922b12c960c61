package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/auslawai/legal-assistant/internal/core/domain"
)

// HTTPServerMetrics carries the api process registry: HTTP traffic plus the
// retrieval and turn-workflow observations the use cases report. It satisfies
// usecase.RetrievalMetrics and usecase.WorkflowMetrics.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchTotal    *prometheus.CounterVec
	searchDuration *prometheus.HistogramVec

	turnTotal        *prometheus.CounterVec
	turnDegraded     *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	crisisTurnsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ala",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ala",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ala",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ala",
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Total hybrid searches by confidence tier and fallback use.",
		},
		[]string{"service", "tier", "used_fallback"},
	)
	searchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ala",
			Subsystem: "retrieval",
			Name:      "search_duration_seconds",
			Help:      "Hybrid search duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	turnTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ala",
			Subsystem: "workflow",
			Name:      "turns_total",
			Help:      "Total handled turns by analysis path.",
		},
		[]string{"service", "path"},
	)
	turnDegraded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ala",
			Subsystem: "workflow",
			Name:      "degraded_turns_total",
			Help:      "Total turns that completed with degraded stages.",
		},
		[]string{"service", "path"},
	)
	turnDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ala",
			Subsystem: "workflow",
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn duration in seconds by analysis path.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "path"},
	)
	crisisTurnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ala",
			Subsystem: "workflow",
			Name:      "crisis_turns_total",
			Help:      "Total turns short-circuited by the safety gate, by category.",
		},
		[]string{"service", "category"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchTotal,
		searchDuration,
		turnTotal,
		turnDegraded,
		turnDuration,
		crisisTurnsTotal,
	)

	return &HTTPServerMetrics{
		registry:         registry,
		service:          service,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		searchTotal:      searchTotal,
		searchDuration:   searchDuration,
		turnTotal:        turnTotal,
		turnDegraded:     turnDegraded,
		turnDuration:     turnDuration,
		crisisTurnsTotal: crisisTurnsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) ObserveSearch(tier domain.ConfidenceTier, usedFallback bool, duration time.Duration) {
	m.searchTotal.WithLabelValues(m.service, string(tier), strconv.FormatBool(usedFallback)).Inc()
	m.searchDuration.WithLabelValues(m.service).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) ObserveTurn(path domain.AnalysisPath, safety domain.SafetyCategory, degraded bool, duration time.Duration) {
	pathLabel := string(path)
	if pathLabel == "" {
		pathLabel = "none"
	}
	m.turnTotal.WithLabelValues(m.service, pathLabel).Inc()
	m.turnDuration.WithLabelValues(m.service, pathLabel).Observe(duration.Seconds())
	if degraded {
		m.turnDegraded.WithLabelValues(m.service, pathLabel).Inc()
	}
	if safety != domain.SafetyNone && safety != "" {
		m.crisisTurnsTotal.WithLabelValues(m.service, string(safety)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
