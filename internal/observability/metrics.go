package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec

	admissionTransitionsTotal *prometheus.CounterVec
	capacityConflictsTotal    *prometheus.CounterVec

	chatConnections       prometheus.Gauge
	chatMessagesTotal     *prometheus.CounterVec
	chatDuplicatesDropped prometheus.Counter
	chatsReconciledTotal  prometheus.Counter
	feedReconnectsTotal   prometheus.Counter

	uploadLatencySeconds prometheus.Histogram
	uploadRejectedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		admissionTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_admission_transitions_total",
			Help: "Total number of participation state transitions by outcome.",
		}, []string{"transition"})

		capacityConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trip_capacity_conflicts_total",
			Help: "Total number of admissions rejected because the trip was full.",
		}, []string{"operation"})

		chatConnections = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chat_connections",
			Help: "Number of currently open chat websocket connections.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages processed by direction.",
		}, []string{"direction"})

		chatDuplicatesDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_duplicate_messages_dropped_total",
			Help: "Total number of live feed events suppressed by the per-view dedup set.",
		})

		chatsReconciledTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_duplicate_channels_reconciled_total",
			Help: "Total number of duplicate discussion channels deleted during reconciliation.",
		})

		feedReconnectsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_feed_reconnects_total",
			Help: "Total number of live feed resubscribe attempts.",
		})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Latency distribution for media uploads.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Total number of uploads rejected during validation.",
		}, []string{"reason"})

		prometheus.MustRegister(
			apiRequestsTotal, apiLatencySeconds, apiErrorsTotal,
			admissionTransitionsTotal, capacityConflictsTotal,
			chatConnections, chatMessagesTotal, chatDuplicatesDropped,
			chatsReconciledTotal, feedReconnectsTotal,
			uploadLatencySeconds, uploadRejectedTotal,
		)
	})
}

// APIRequests exposes the counter for served requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AdmissionTransitions exposes the participation transition counter.
func AdmissionTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return admissionTransitionsTotal
}

// CapacityConflicts exposes the counter for full-trip rejections.
func CapacityConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return capacityConflictsTotal
}

// ChatConnections exposes the open websocket connection gauge.
func ChatConnections() prometheus.Gauge {
	RegisterMetrics()
	return chatConnections
}

// ChatMessages exposes the processed message counter.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}

// ChatDuplicatesDropped exposes the dedup suppression counter.
func ChatDuplicatesDropped() prometheus.Counter {
	RegisterMetrics()
	return chatDuplicatesDropped
}

// ChatsReconciled exposes the duplicate channel cleanup counter.
func ChatsReconciled() prometheus.Counter {
	RegisterMetrics()
	return chatsReconciledTotal
}

// FeedReconnects exposes the live feed resubscribe counter.
func FeedReconnects() prometheus.Counter {
	RegisterMetrics()
	return feedReconnectsTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// UploadRejected exposes the upload rejection counter.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}
