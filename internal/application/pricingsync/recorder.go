package pricingsync

import (
	"context"

	"github.com/pricesync/backend/internal/infrastructure/telemetry"
)

// MetricsRecorder feeds finished runs into the Prometheus sync metrics
type MetricsRecorder struct {
	metrics *telemetry.SyncMetrics
}

// NewMetricsRecorder creates a MetricsRecorder
func NewMetricsRecorder(metrics *telemetry.SyncMetrics) *MetricsRecorder {
	return &MetricsRecorder{metrics: metrics}
}

// RecordOutcome implements OutcomeRecorder
func (r *MetricsRecorder) RecordOutcome(_ context.Context, o *Outcome) {
	if r == nil || r.metrics == nil || o == nil {
		return
	}
	r.metrics.ObserveNotification(o.Topic.String(), o.Kind.String(), o.Reason.String(), o.Duration, len(o.Rejected))
}
