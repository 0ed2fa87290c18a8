package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the dispatcher queue and delivery outcomes.
type Metrics struct {
	Queued  prometheus.Counter
	Dropped prometheus.Counter
	Sent    *prometheus.CounterVec
	Failed  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Queued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volid_notifications_queued_total",
			Help: "Notifications accepted into the dispatch queue",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volid_notifications_dropped_total",
			Help: "Notifications dropped because the queue was full or stopped",
		}),
		Sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_notifications_sent_total",
			Help: "Notifications delivered to the collaborator, by kind",
		}, []string{"kind"}),
		Failed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_notifications_failed_total",
			Help: "Notifications abandoned after retries, by kind",
		}, []string{"kind"}),
	}
}
