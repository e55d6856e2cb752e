package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artwire",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Image protocol requests by opcode and outcome.",
		},
		[]string{"op", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artwire",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "Time spent handling one request, excluding network writes.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	sessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "artwire",
			Subsystem: "server",
			Name:      "sessions_total",
			Help:      "Accepted client connections.",
		},
	)
	frameErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artwire",
			Subsystem: "server",
			Name:      "frame_errors_total",
			Help:      "Connections dropped because a request frame could not be read.",
		},
		[]string{"reason"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "artwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served by the metrics endpoint.",
		},
		[]string{"component", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "artwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"component", "method", "path", "status"},
	)
	images = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "artwire",
			Subsystem: "server",
			Name:      "images",
			Help:      "Images currently held in the store.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requests, requestDuration, sessions, frameErrors, images, httpRequests, httpDuration)
	})
}

func RecordRequest(op, outcome string, duration time.Duration) {
	RegisterMetrics()
	requests.WithLabelValues(op, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func RecordSession() {
	RegisterMetrics()
	sessions.Inc()
}

func RecordFrameError(reason string) {
	RegisterMetrics()
	frameErrors.WithLabelValues(reason).Inc()
}

func SetImageCount(n int) {
	RegisterMetrics()
	images.Set(float64(n))
}

func RecordHTTPRequest(component, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(component, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(component, method, path, statusLabel).Observe(duration.Seconds())
}
