package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partnerhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partnerhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partnerhub_status_transitions_total",
		Help: "Count of lifecycle status transitions by entity and target status",
	}, []string{"entity", "to_status"})

	activeRelationships = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "partnerhub_active_relationships",
		Help: "Number of relationships currently in ACTIVE status",
	})

	documentsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "partnerhub_documents_by_status",
		Help: "Supplier documents per derived compliance status",
	}, []string{"status"})

	expirySweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partnerhub_expiry_sweeps_total",
		Help: "Count of partnership request expiry sweeps by result",
	}, []string{"result"})

	expiredRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partnerhub_expired_requests_total",
		Help: "Count of partnership requests swept to EXPIRED",
	})

	notifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partnerhub_notifications_total",
		Help: "Count of outbound notification deliveries by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveTransition increments the transition counter for an entity.
func ObserveTransition(entity, toStatus string) {
	statusTransitions.WithLabelValues(entity, toStatus).Inc()
}

// IncrementActiveRelationships increments the active relationship gauge.
func IncrementActiveRelationships() {
	activeRelationships.Inc()
}

// DecrementActiveRelationships decrements the active relationship gauge.
func DecrementActiveRelationships() {
	activeRelationships.Dec()
}

// SetDocumentsByStatus sets the document gauge for one derived status.
func SetDocumentsByStatus(status string, count int) {
	if count < 0 {
		count = 0
	}
	documentsByStatus.WithLabelValues(status).Set(float64(count))
}

// ObserveExpirySweep records one sweep run and how many requests it expired.
func ObserveExpirySweep(result string, expired int64) {
	expirySweeps.WithLabelValues(result).Inc()
	if expired > 0 {
		expiredRequests.Add(float64(expired))
	}
}

// ObserveNotification records an outbound notification delivery attempt.
func ObserveNotification(result string) {
	notifications.WithLabelValues(result).Inc()
}
