package host

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the per-host Prometheus collectors. Each host registers its
// own collectors so embedding multiple hosts in one process works.
type metrics struct {
	published     *prometheus.CounterVec
	received      *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	handlerErrors *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_host_published_total",
			Help: "Total number of messages published to the consumer",
		}, []string{"channel"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_host_received_total",
			Help: "Total number of messages received from the consumer",
		}, []string{"channel"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_host_dropped_total",
			Help: "Total number of messages dropped (undeclared channel or no handler)",
		}, []string{"channel"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_host_handler_errors_total",
			Help: "Total number of handler invocations that returned an error",
		}, []string{"channel"}),
	}

	reg.MustRegister(m.published, m.received, m.dropped, m.handlerErrors)
	return m
}
