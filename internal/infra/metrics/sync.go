package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(activitiesSyncedTotal, syncSessionsTotal) }

var activitiesSyncedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "offline_activities_total",
		Help: "Offline activities processed, labeled by outcome.",
	},
	[]string{"outcome"}, // 'synced', 'conflict', 'failed', 'duplicate'
)

var syncSessionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sync_sessions_total",
		Help: "Sync sessions finished, labeled by status.",
	},
	[]string{"status"},
)

func IncActivity(outcome string) {
	activitiesSyncedTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncSyncSession(status string) {
	syncSessionsTotal.WithLabelValues(norm(status)).Inc()
}
