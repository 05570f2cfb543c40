package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsNamespace prefixes every cache metric name.
const metricsNamespace = "fluxi"

// Metrics holds the prometheus counters updated by a Cache.
type Metrics struct {
	Hits          prometheus.Counter
	Misses        prometheus.Counter
	Expired       prometheus.Counter
	StorageFaults *prometheus.CounterVec
	Invalidations *prometheus.CounterVec
}

// NewMetrics creates the cache counters and registers them on reg.
// A nil reg leaves the counters unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads served from a valid cache entry.",
		}),
		Misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that found no valid cache entry.",
		}),
		Expired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "expired_total",
			Help:      "Expired entries purged on access.",
		}),
		StorageFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "storage_faults_total",
			Help:      "Storage or serialization failures swallowed by the cache.",
		}, []string{"op"}),
		Invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "invalidations_total",
			Help:      "Invalidation group evictions.",
		}, []string{"group"}),
	}

	if reg == nil {
		return m, nil
	}

	for _, c := range []prometheus.Collector{m.Hits, m.Misses, m.Expired, m.StorageFaults, m.Invalidations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering cache metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) expired() {
	if m != nil {
		m.Expired.Inc()
	}
}

func (m *Metrics) fault(op Op) {
	if m != nil {
		m.StorageFaults.WithLabelValues(string(op)).Inc()
	}
}

func (m *Metrics) invalidated(g Group) {
	if m != nil {
		m.Invalidations.WithLabelValues(string(g)).Inc()
	}
}
