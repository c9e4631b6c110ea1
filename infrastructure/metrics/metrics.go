package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IDownloadMetrics records lifecycle and sweep activity.
type IDownloadMetrics interface {
	Transition(status string)
	ExtractionDuration(fileType string, d time.Duration)
	FileSize(fileType string, size int64)
	InFlight(delta float64)
	QueueDepth(n int)
	Sweep(job string, matched, processed, failed int)
}

// DownloadMetrics owns its registry so that several instances can coexist in tests.
type DownloadMetrics struct {
	registry    *prometheus.Registry
	transitions *prometheus.CounterVec
	extraction  *prometheus.HistogramVec
	fileSize    *prometheus.HistogramVec
	inFlight    prometheus.Gauge
	queueDepth  prometheus.Gauge
	sweep       *prometheus.CounterVec
}

func New(namespace string) *DownloadMetrics {
	m := &DownloadMetrics{registry: prometheus.NewRegistry()}

	m.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "download_transitions_total",
		Help:      "Persisted download status transitions by target status.",
	}, []string{"status"})

	m.extraction = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Extraction service call latency.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"type"})

	m.fileSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "download_file_size_bytes",
		Help:      "Size of completed downloads.",
		Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 8), // 1MB .. 16GB
	}, []string{"type"})

	m.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "downloads_in_flight",
		Help:      "Downloads currently being processed by a worker.",
	})

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "download_queue_depth",
		Help:      "Download tasks waiting for a worker.",
	})

	m.sweep = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_records_total",
		Help:      "Records handled by the sweeper by job and outcome.",
	}, []string{"job", "outcome"})

	m.registry.MustRegister(
		m.transitions, m.extraction, m.fileSize, m.inFlight, m.queueDepth, m.sweep,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *DownloadMetrics) Transition(status string) {
	m.transitions.WithLabelValues(status).Inc()
}

func (m *DownloadMetrics) ExtractionDuration(fileType string, d time.Duration) {
	m.extraction.WithLabelValues(fileType).Observe(d.Seconds())
}

func (m *DownloadMetrics) FileSize(fileType string, size int64) {
	if size > 0 {
		m.fileSize.WithLabelValues(fileType).Observe(float64(size))
	}
}

func (m *DownloadMetrics) InFlight(delta float64) {
	m.inFlight.Add(delta)
}

func (m *DownloadMetrics) QueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *DownloadMetrics) Sweep(job string, matched, processed, failed int) {
	m.sweep.WithLabelValues(job, "matched").Add(float64(matched))
	m.sweep.WithLabelValues(job, "processed").Add(float64(processed))
	m.sweep.WithLabelValues(job, "failed").Add(float64(failed))
}

func (m *DownloadMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Nop discards everything; used where metrics are not wired.
type Nop struct{}

func (Nop) Transition(string)                         {}
func (Nop) ExtractionDuration(string, time.Duration) {}
func (Nop) FileSize(string, int64)                    {}
func (Nop) InFlight(float64)                          {}
func (Nop) QueueDepth(int)                            {}
func (Nop) Sweep(string, int, int, int)               {}
