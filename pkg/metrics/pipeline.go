package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records per-batch and per-message ingest outcomes.
type PipelineMetrics struct {
	batchDuration *prometheus.HistogramVec
	messages      *prometheus.CounterVec
	alerts        *prometheus.CounterVec
	truncations   prometheus.Counter
}

// NewPipelineMetrics registers the ingest metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_batch_duration_seconds",
		Help:    "Duration of batch processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_messages_total",
		Help: "Processed messages by terminal status.",
	}, []string{"status"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_alerts_published_total",
		Help: "Alerts published by kind.",
	}, []string{"kind"})
	truncations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_records_truncated_total",
		Help: "Records compacted to fit the byte budget.",
	})
	reg.MustRegister(batchDuration, messages, alerts, truncations)
	return &PipelineMetrics{
		batchDuration: batchDuration,
		messages:      messages,
		alerts:        alerts,
		truncations:   truncations,
	}
}

// ObserveBatch records the duration of one batch for the named source.
func (p *PipelineMetrics) ObserveBatch(source string, duration time.Duration) {
	if p == nil || p.batchDuration == nil {
		return
	}
	p.batchDuration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncMessage counts one message reaching a terminal status.
func (p *PipelineMetrics) IncMessage(status string) {
	if p == nil || p.messages == nil {
		return
	}
	p.messages.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncAlert counts one published alert of the given kind.
func (p *PipelineMetrics) IncAlert(kind string) {
	if p == nil || p.alerts == nil {
		return
	}
	p.alerts.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncTruncation counts one record compacted to fit the byte budget.
func (p *PipelineMetrics) IncTruncation() {
	if p == nil || p.truncations == nil {
		return
	}
	p.truncations.Inc()
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return trimmed
}
