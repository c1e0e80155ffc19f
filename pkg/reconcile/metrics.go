package reconcile

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// unhandledLabel replaces event names without a handler so arbitrary
// input cannot grow label cardinality.
const unhandledLabel = "unhandled"

// Metrics holds the webhook collectors. A nil *Metrics records nothing.
type Metrics struct {
	received *prometheus.CounterVec
	handled  *prometheus.CounterVec
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the webhook collectors with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashier",
			Name:      "webhooks_received_total",
			Help:      "Verified webhook deliveries by event",
		}, []string{"event"}),
		handled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashier",
			Name:      "webhooks_handled_total",
			Help:      "Webhook deliveries answered by a handler, by event and HTTP status",
		}, []string{"event", "status"}),
		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cashier",
			Name:      "webhooks_rejected_total",
			Help:      "Webhook deliveries rejected before dispatch, by reason",
		}, []string{"reason"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cashier",
			Name:      "webhook_duration_seconds",
			Help:      "Time spent reconciling a webhook delivery",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"event"}),
	}
}

func (m *Metrics) observeReceived(event string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(event).Inc()
}

func (m *Metrics) observeHandled(event string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.handled.WithLabelValues(event, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(event).Observe(elapsed.Seconds())
}

func (m *Metrics) observeRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}
