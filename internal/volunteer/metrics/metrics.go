package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the volunteer module.
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	Transitions           *prometheus.CounterVec
	TransitionDuration    prometheus.Histogram
	AllocationAttempts    prometheus.Histogram
	AllocationExhausted   prometheus.Counter
}

// New creates a Metrics instance registered on the default registry.
func New() *Metrics {
	return &Metrics{
		ApplicationsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volid_applications_submitted_total",
			Help: "Total number of volunteer applications accepted",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_status_transitions_total",
			Help: "Status transitions applied, by source and target status",
		}, []string{"from", "to"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "volid_transition_duration_seconds",
			Help:    "Duration of status transitions including identifier allocation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AllocationAttempts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "volid_identifier_allocation_attempts",
			Help:    "Random draws needed to allocate one volunteer identifier",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64},
		}),
		AllocationExhausted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "volid_identifier_allocation_exhausted_total",
			Help: "Allocations that gave up after the attempt bound",
		}),
	}
}

func (m *Metrics) IncrementApplicationsSubmitted() {
	m.ApplicationsSubmitted.Inc()
}

func (m *Metrics) IncrementTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

// ObserveTransition records the duration of a Transition call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveTransition(start time.Time) {
	m.TransitionDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveAllocationAttempts(attempts int) {
	m.AllocationAttempts.Observe(float64(attempts))
}

func (m *Metrics) IncrementAllocationExhausted() {
	m.AllocationExhausted.Inc()
}
