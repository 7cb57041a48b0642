package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics tracks relay throughput and backlog.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failures  *prometheus.CounterVec
	pending   prometheus.Gauge
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return nil
	}
	m := &OutboxMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_published_total",
			Help:      "Outbox events published by event type.",
		}, []string{"event_type"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_publish_failures_total",
			Help:      "Outbox publish failures by event type and outcome (retry, dlq).",
		}, []string{"event_type", "outcome"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "outbox_pending_events",
			Help:      "Unpublished outbox rows at the last idle poll.",
		}),
	}
	reg.MustRegister(m.published, m.failures, m.pending)
	return m
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailure(eventType, outcome string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) SetPending(count int64) {
	if m == nil {
		return
	}
	m.pending.Set(float64(count))
}
