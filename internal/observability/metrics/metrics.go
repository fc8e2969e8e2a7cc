package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics exposes counters/histograms for the chat triage flow.
// All methods are nil-receiver safe so metrics stay optional.
type PipelineMetrics struct {
	messagesTotal    *prometheus.CounterVec
	emergenciesTotal *prometheus.CounterVec
	messageLatency   *prometheus.HistogramVec
	wsConnections    *prometheus.GaugeVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total processed patient messages",
		}, []string{"intent", "urgency"}),
		emergenciesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "emergencies_total",
			Help:      "Total messages escalated as emergencies",
		}, []string{"urgency"}),
		messageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "message_latency_seconds",
			Help:      "Latency of end-to-end message processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		wsConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "medassist",
			Subsystem: "chat",
			Name:      "websocket_connections",
			Help:      "Currently open WebSocket connections",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.emergenciesTotal, m.messageLatency, m.wsConnections)
	return m
}

func (m *PipelineMetrics) MessageProcessed(intent, urgency string, emergency bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent, urgency).Inc()
	m.messageLatency.WithLabelValues(intent).Observe(elapsed.Seconds())
	if emergency {
		m.emergenciesTotal.WithLabelValues(urgency).Inc()
	}
}

func (m *PipelineMetrics) ConnectionOpened(kind string) {
	if m == nil {
		return
	}
	m.wsConnections.WithLabelValues(kind).Inc()
}

func (m *PipelineMetrics) ConnectionClosed(kind string) {
	if m == nil {
		return
	}
	m.wsConnections.WithLabelValues(kind).Dec()
}
