package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Lookups *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Lookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_verification_lookups_total",
			Help: "Public verification lookups by result (found, not_found, malformed, cache_hit)",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementLookup(result string) {
	m.Lookups.WithLabelValues(result).Inc()
}
