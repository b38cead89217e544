package internal

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var requestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formatter_requests_total",
		Help: "Total number of HTTP requests received per route.",
	},
	[]string{"route"},
)

var failedRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formatter_request_failures_total",
		Help: "Total number of HTTP requests answered with an error per route.",
	},
	[]string{"route"},
)

var queueLength = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "formatter_queue_length",
		Help: "Current export queue length.",
	},
)

var liveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "formatter_sessions_live",
		Help: "Editing sessions currently open.",
	},
)

var liveBlobs = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "formatter_blobs_live",
		Help: "Temporary blob references currently held.",
	},
)

var recomputes = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "formatter_recomputes_total",
		Help: "Preview recomputations started after the debounce window.",
	},
)

var staleCompletions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "formatter_stale_completions_total",
		Help: "Preview encodes discarded because a newer snapshot superseded them.",
	},
)

var encodeFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formatter_encode_failures_total",
		Help: "Total number of failed encode operations per output format.",
	},
	[]string{"format"},
)

var (
	encodeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "formatter_encode_duration_milliseconds",
		Help:    "The duration of one resize and encode in milliseconds",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12), // 5 ms to ~10 s
	}, []string{"format"})
)

var (
	exportDurationWithQueueWait = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "formatter_export_duration_with_queue_wait_milliseconds",
		Help:    "The duration of an export plus waiting in queue in milliseconds",
		Buckets: prometheus.LinearBuckets(100, 500, 40), // 0.1 to 20 seconds per 0.5 second
	})
)

var sizeProbes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "formatter_size_probes_total",
		Help: "Size probes against the transform CDN per result.",
	},
	[]string{"result"},
)

var registerOnce sync.Once

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal)
		prometheus.MustRegister(failedRequests)
		prometheus.MustRegister(queueLength)
		prometheus.MustRegister(liveSessions)
		prometheus.MustRegister(liveBlobs)
		prometheus.MustRegister(recomputes)
		prometheus.MustRegister(staleCompletions)
		prometheus.MustRegister(encodeFailures)
		prometheus.MustRegister(encodeDuration)
		prometheus.MustRegister(exportDurationWithQueueWait)
		prometheus.MustRegister(sizeProbes)
	})
}
