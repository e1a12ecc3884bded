package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	askTotal            *prometheus.CounterVec
	askDuration         *prometheus.HistogramVec
	askPhaseDuration    *prometheus.HistogramVec
	askRetrievedChunks  *prometheus.HistogramVec
	askDeclinedTotal    *prometheus.CounterVec
	groundingViolations *prometheus.CounterVec

	probesTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coach",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	askTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "requests_total",
			Help:      "Total answered coaching questions by answer mode.",
		},
		[]string{"service", "mode"},
	)
	askDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "duration_seconds",
			Help:      "End-to-end ask pipeline duration in seconds by answer mode.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
		[]string{"service", "mode"},
	)
	askPhaseDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "phase_duration_seconds",
			Help:      "Per-phase ask pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "phase"},
	)
	askRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "retrieved_chunks",
			Help:      "Distribution of context chunks behind each answer.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	askDeclinedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "declined_total",
			Help:      "Total questions answered with the no-information response.",
		},
		[]string{"service"},
	)
	groundingViolations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "ask",
			Name:      "grounding_violations_total",
			Help:      "Total numeric claims that did not match the looked-up records.",
		},
		[]string{"service"},
	)
	probesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coach",
			Subsystem: "resolver",
			Name:      "probes_total",
			Help:      "Total live model probes by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		askTotal,
		askDuration,
		askPhaseDuration,
		askRetrievedChunks,
		askDeclinedTotal,
		groundingViolations,
		probesTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		askTotal:            askTotal,
		askDuration:         askDuration,
		askPhaseDuration:    askPhaseDuration,
		askRetrievedChunks:  askRetrievedChunks,
		askDeclinedTotal:    askDeclinedTotal,
		groundingViolations: groundingViolations,
		probesTotal:         probesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/knowledge/documents/"):
		return "/v1/knowledge/documents/{document_id}"
	default:
		return path
	}
}

// RecordAsk captures one answered question: its mode, how much retrieved
// context backed it, and any numeric grounding violations.
func (m *HTTPServerMetrics) RecordAsk(service, mode string, sourceCount, violations int, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	m.askTotal.WithLabelValues(service, mode).Inc()
	m.askDuration.WithLabelValues(service, mode).Observe(duration.Seconds())
	m.askRetrievedChunks.WithLabelValues(service).Observe(float64(sourceCount))
	if violations > 0 {
		m.groundingViolations.WithLabelValues(service).Add(float64(violations))
	}
}

func (m *HTTPServerMetrics) RecordAskDeclined(service string) {
	m.askDeclinedTotal.WithLabelValues(service).Inc()
}

// AskPhaseObserver adapts the phase histogram to the pipeline's observer
// hook.
func (m *HTTPServerMetrics) AskPhaseObserver(service string) func(phase string, elapsed time.Duration) {
	return func(phase string, elapsed time.Duration) {
		m.askPhaseDuration.WithLabelValues(service, phase).Observe(elapsed.Seconds())
	}
}

func (m *HTTPServerMetrics) RecordModelProbe(service string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.probesTotal.WithLabelValues(service, outcome).Inc()
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
