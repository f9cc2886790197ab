// Package observability exposes the relay's Prometheus collectors.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ConnectedClients   prometheus.Gauge
	PresenceBroadcasts prometheus.Counter
	MessagesPersisted  prometheus.Counter
	MessagesRelayed    prometheus.Counter
	RelayFailures      prometheus.Counter
	SendsRejected      prometheus.Counter
}

// NewMetrics registers the relay collectors on the given registerer.
// Pass prometheus.DefaultRegisterer in production; tests use a fresh
// registry to avoid duplicate registration across cases.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Number of identities currently bound to a live connection.",
		}),
		PresenceBroadcasts: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_presence_broadcasts_total",
			Help: "Full presence snapshots pushed to connected clients.",
		}),
		MessagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_persisted_total",
			Help: "Messages durably inserted into the store.",
		}),
		MessagesRelayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_messages_relayed_total",
			Help: "Persisted messages forwarded to a live receiver connection.",
		}),
		RelayFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_relay_failures_total",
			Help: "Relay attempts that failed after successful persistence.",
		}),
		SendsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "relay_sends_rejected_total",
			Help: "Send operations rejected before the durability point.",
		}),
	}
}
