package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelfscan"

const (
	OutcomeRecorded = "recorded"
	OutcomeTimeout  = "timeout"
	OutcomeFailed   = "failed"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	framesRead        *prometheus.CounterVec
	framesDropped     *prometheus.CounterVec
	subscribers       *prometheus.GaugeVec
	streamState       *prometheus.GaugeVec
	cycles            *prometheus.CounterVec
	detections        *prometheus.CounterVec
	invalidDetections *prometheus.CounterVec
	inferenceSeconds  *prometheus.HistogramVec
	captureFailures   *prometheus.CounterVec
	capturesPruned    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		framesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_read_total",
			Help:      "Frames read from the camera.",
		}, []string{"stream"}),
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Encoded frames skipped for slow video feed consumers.",
		}, []string{"stream"}),
		subscribers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Attached video feed consumers.",
		}, []string{"stream"}),
		streamState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_state",
			Help:      "Producer state: 0 idle, 1 streaming, 2 stopped.",
		}, []string{"stream"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_cycles_total",
			Help:      "Capture cycles by outcome.",
		}, []string{"domain", "outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Valid detections recorded per class.",
		}, []string{"domain", "class"}),
		invalidDetections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_detections_total",
			Help:      "Detections rejected by validation.",
		}, []string{"domain"}),
		inferenceSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Detector latency per capture cycle.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"domain"}),
		captureFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_write_failures_total",
			Help:      "Annotated captures that could not be persisted.",
		}, []string{"domain"}),
		capturesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "captures_pruned_total",
			Help:      "Capture files removed by the retention policy.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.framesRead,
		m.framesDropped,
		m.subscribers,
		m.streamState,
		m.cycles,
		m.detections,
		m.invalidDetections,
		m.inferenceSeconds,
		m.captureFailures,
		m.capturesPruned,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) FrameRead(stream string) {
	if m == nil {
		return
	}
	m.framesRead.WithLabelValues(stream).Inc()
}

func (m *Metrics) FramesDropped(stream string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.framesDropped.WithLabelValues(stream).Add(float64(n))
}

func (m *Metrics) SetSubscribers(stream string, n int) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(stream).Set(float64(n))
}

func (m *Metrics) SetStreamState(stream string, state int) {
	if m == nil {
		return
	}
	m.streamState.WithLabelValues(stream).Set(float64(state))
}

func (m *Metrics) Cycle(domain, outcome string) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(domain, outcome).Inc()
}

func (m *Metrics) Detected(domain, class string) {
	if m == nil {
		return
	}
	m.detections.WithLabelValues(domain, class).Inc()
}

func (m *Metrics) InvalidDetections(domain string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invalidDetections.WithLabelValues(domain).Add(float64(n))
}

func (m *Metrics) ObserveInference(domain string, d time.Duration) {
	if m == nil {
		return
	}
	m.inferenceSeconds.WithLabelValues(domain).Observe(d.Seconds())
}

func (m *Metrics) CaptureWriteFailed(domain string) {
	if m == nil {
		return
	}
	m.captureFailures.WithLabelValues(domain).Inc()
}

func (m *Metrics) CapturesPruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.capturesPruned.Add(float64(n))
}
