package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts order lifecycle and escrow outcomes.
type OrderMetrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	escrow      *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders successfully created.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status transitions by target status.",
	}, []string{"status"})
	escrow := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_resolutions_total",
		Help: "Escrow resolutions by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(created, transitions, escrow)
	return &OrderMetrics{
		created:     created,
		transitions: transitions,
		escrow:      escrow,
	}
}

// IncCreated counts a new order.
func (o *OrderMetrics) IncCreated() {
	if o == nil || o.created == nil {
		return
	}
	o.created.Inc()
}

// IncTransition counts a lifecycle transition into the given status.
func (o *OrderMetrics) IncTransition(status string) {
	if o == nil || o.transitions == nil {
		return
	}
	o.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncEscrow counts an escrow resolution outcome (released or refunded).
func (o *OrderMetrics) IncEscrow(outcome string) {
	if o == nil || o.escrow == nil {
		return
	}
	o.escrow.WithLabelValues(normalizeLabel(outcome)).Inc()
}
