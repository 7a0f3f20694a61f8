package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(downloadsFinishedTotal, downloadedBytesTotal, offlinePurgedTotal) }

var downloadsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bundle_downloads_finished_total",
		Help: "Total number of bundle downloads finished, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var downloadedBytesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bundle_downloaded_bytes_total",
		Help: "Total bytes transferred to offline stores.",
	},
)

var offlinePurgedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "offline_content_purged_total",
		Help: "Downloads removed by the retention sweep.",
	},
)

func IncDownloadFinished(status string) {
	downloadsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func AddDownloadedBytes(n int64) {
	if n > 0 {
		downloadedBytesTotal.Add(float64(n))
	}
}

func AddOfflinePurged(n int) {
	if n > 0 {
		offlinePurgedTotal.Add(float64(n))
	}
}
