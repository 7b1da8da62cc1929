package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics drží Prometheus metriky dashboardu.
// Registr předáváme zvenku, testy si tak vytvoří vlastní a nesdílí globální stav.
type Metrics struct {
	messages      *prometheus.CounterVec
	connection    *prometheus.GaugeVec
	liveClients   prometheus.Gauge
	mirrorDropped prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_messages_total",
			Help: "MQTT messages received, by reconciliation result.",
		}, []string{"result"}),
		connection: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "weather_connection_state",
			Help: "1 for the current broker connection state, 0 otherwise.",
		}, []string{"state"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "weather_live_clients",
			Help: "Open WebSocket live view connections.",
		}),
		mirrorDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weather_mirror_dropped_total",
			Help: "Snapshot mirror writes dropped because the queue was full.",
		}),
	}
	reg.MustRegister(m.messages, m.connection, m.liveClients, m.mirrorDropped)

	m.SetConnectionState(StatusDisconnected)
	return m
}

func (m *Metrics) MessageApplied() { m.messages.WithLabelValues("applied").Inc() }

func (m *Metrics) MessageDropped() { m.messages.WithLabelValues("dropped").Inc() }

func (m *Metrics) SetConnectionState(current Status) {
	for _, st := range []Status{StatusConnecting, StatusConnected, StatusDisconnected} {
		v := 0.0
		if st == current {
			v = 1
		}
		m.connection.WithLabelValues(string(st)).Set(v)
	}
}

func (m *Metrics) LiveClientOpened() { m.liveClients.Inc() }

func (m *Metrics) LiveClientClosed() { m.liveClients.Dec() }

func (m *Metrics) MirrorDropped() { m.mirrorDropped.Inc() }
