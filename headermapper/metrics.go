package headermapper

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Label values for headermapper_headers_total
const (
	DirectionFlatten  = "flatten"
	DirectionExpand   = "expand"
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"

	OutcomeKept    = "kept"
	OutcomeDropped = "dropped"
)

// Metrics holds the Prometheus collectors for header mapping
type Metrics struct {
	registry *prometheus.Registry

	headersTotal  *prometheus.CounterVec
	requestsTotal *prometheus.CounterVec

	incoming    atomic.Int64
	outgoing    atomic.Int64
	failed      atomic.Int64
	lastUpdated atomic.Int64
}

// NewMetrics creates a metrics instance registered on its own registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		headersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headermapper_headers_total",
				Help: "Total number of headers processed by direction and outcome",
			},
			[]string{"direction", "outcome"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "headermapper_requests_total",
				Help: "Total number of requests and responses handled by component",
			},
			[]string{"component"},
		),
	}
	m.registry.MustRegister(m.headersTotal, m.requestsTotal)
	return m
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHeaders adds kept and dropped header counts for a direction
func (m *Metrics) RecordHeaders(direction string, kept, dropped int) {
	if m == nil {
		return
	}
	if kept > 0 {
		m.headersTotal.WithLabelValues(direction, OutcomeKept).Add(float64(kept))
	}
	if dropped > 0 {
		m.headersTotal.WithLabelValues(direction, OutcomeDropped).Add(float64(dropped))
	}

	switch direction {
	case DirectionIncoming:
		m.incoming.Add(int64(kept))
	case DirectionOutgoing:
		m.outgoing.Add(int64(kept))
	}
	m.lastUpdated.Store(time.Now().UnixNano())
}

// RecordFailure counts a mapping that could not be applied, such as a
// missing required header.
func (m *Metrics) RecordFailure() {
	if m == nil {
		return
	}
	m.failed.Add(1)
	m.lastUpdated.Store(time.Now().UnixNano())
}

// RecordRequest counts one request or response passing through component
func (m *Metrics) RecordRequest(component string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(component).Inc()
}

// Stats provides statistics about header mapping operations
type Stats struct {
	IncomingMappings int64
	OutgoingMappings int64
	FailedMappings   int64
	LastUpdated      time.Time
}

// Snapshot returns the current counters
func (m *Metrics) Snapshot() *Stats {
	if m == nil {
		return &Stats{}
	}
	stats := &Stats{
		IncomingMappings: m.incoming.Load(),
		OutgoingMappings: m.outgoing.Load(),
		FailedMappings:   m.failed.Load(),
	}
	if ts := m.lastUpdated.Load(); ts != 0 {
		stats.LastUpdated = time.Unix(0, ts)
	}
	return stats
}
