package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the client-side counters: refresh traffic, normalizer
// drops, the synthesized-date telemetry hook, and submit outcomes.
type Metrics struct {
	RefreshTotal       prometheus.Counter
	RefreshFailures    prometheus.Counter
	BackendUnavailable prometheus.Counter
	OrdersLoaded       prometheus.Gauge
	OrdersDropped      prometheus.Counter
	LinesDropped       prometheus.Counter
	DatesSynthesized   prometheus.Counter
	SubmitsTotal       prometheus.Counter
	SubmitRejections   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RefreshTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "refresh_total",
			Help:      "Number of order list refresh attempts.",
		}),
		RefreshFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "refresh_failures_total",
			Help:      "Refreshes that failed with a real error.",
		}),
		BackendUnavailable: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "backend_unavailable_total",
			Help:      "Refreshes answered with the resilient empty-list state.",
		}),
		OrdersLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orders_client",
			Name:      "orders_loaded",
			Help:      "Orders currently held in the in-memory collection.",
		}),
		OrdersDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "orders_dropped_total",
			Help:      "Raw order records dropped for lacking an identifier.",
		}),
		LinesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "lines_dropped_total",
			Help:      "Detail rows skipped inside otherwise valid orders.",
		}),
		DatesSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "dates_synthesized_total",
			Help:      "Orders whose missing order date was filled in locally.",
		}),
		SubmitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "return_submits_total",
			Help:      "Return/cancellation requests sent to the backend.",
		}),
		SubmitRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "orders_client",
			Name:      "return_rejections_total",
			Help:      "Return/cancellation requests the backend rejected.",
		}),
	}
}
