package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metric names
const (
	MetricNotificationsTotal          = "pricesync_notifications_total"
	MetricNotificationDurationSeconds = "pricesync_notification_duration_seconds"
	MetricRemoteRejectionsTotal       = "pricesync_remote_rejections_total"
)

// SyncMetrics exposes pricing sync outcomes on a dedicated Prometheus registry.
// Safe for concurrent use.
type SyncMetrics struct {
	registry      *prometheus.Registry
	notifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	rejections    *prometheus.CounterVec
}

// NewSyncMetrics creates the pipeline collectors. Go runtime and process
// collectors are registered alongside them.
func NewSyncMetrics() *SyncMetrics {
	m := &SyncMetrics{
		registry: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricNotificationsTotal,
			Help: "Item notifications handled, by topic, outcome and reason",
		}, []string{"topic", "outcome", "reason"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricNotificationDurationSeconds,
			Help:    "Time spent handling one item notification",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"topic", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRemoteRejectionsTotal,
			Help: "Attribute fields rejected by the catalog platform",
		}, []string{"topic"}),
	}
	m.registry.MustRegister(
		m.notifications,
		m.duration,
		m.rejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveNotification records one finished run
func (m *SyncMetrics) ObserveNotification(topic, outcome, reason string, d time.Duration, rejected int) {
	if reason == "" {
		reason = "none"
	}
	m.notifications.WithLabelValues(topic, outcome, reason).Inc()
	m.duration.WithLabelValues(topic, outcome).Observe(d.Seconds())
	if rejected > 0 {
		m.rejections.WithLabelValues(topic).Add(float64(rejected))
	}
}

// Registry returns the registry holding the pipeline collectors
func (m *SyncMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *SyncMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
