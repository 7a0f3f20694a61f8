package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(bundlesProcessedTotal, stageDurationSeconds, bundlesInFlight) }

var bundlesProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lecture_bundles_processed_total",
		Help: "Total number of lecture bundle pipelines finished, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var stageDurationSeconds = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall time of each pipeline stage.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	},
	[]string{"stage"}, // 'audio', 'slides', 'timeline', 'bundle'
)

var bundlesInFlight = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "lecture_bundles_in_flight",
		Help: "Bundles currently processing.",
	},
)

func IncBundleProcessed(status string) {
	bundlesProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStageDuration(stage string, seconds float64) {
	stageDurationSeconds.WithLabelValues(norm(stage)).Observe(seconds)
}

func BundleStarted()  { bundlesInFlight.Inc() }
func BundleFinished() { bundlesInFlight.Dec() }
