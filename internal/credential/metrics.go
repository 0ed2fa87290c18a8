package credential

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Renders        *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	EngineInUse    prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Renders: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "volid_credential_renders_total",
			Help: "Credential render attempts by result",
		}, []string{"result"}),
		RenderDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "volid_credential_render_duration_seconds",
			Help:    "Time to render a credential PDF",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		EngineInUse: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "volid_credential_engine_handles_in_use",
			Help: "Render engine handles currently checked out",
		}),
	}
}

func (m *Metrics) IncrementRender(result string) {
	m.Renders.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRenderDuration(start time.Time) {
	m.RenderDuration.Observe(time.Since(start).Seconds())
}
