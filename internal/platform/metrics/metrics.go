package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP holds transport-level Prometheus metrics.
type HTTP struct {
	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

// NewHTTP creates and registers the HTTP metrics.
func NewHTTP() *HTTP {
	return &HTTP{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "volid_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_http_requests_total",
			Help: "HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
	}
}

// ObserveRequest implements the request logger's latency observer.
func (m *HTTP) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
