package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts order lifecycle events.
type OrderMetrics struct {
	transitions       *prometheus.CounterVec
	insufficientStock prometheus.Counter
	reminders         prometheus.Counter
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Order status transitions by target status.",
	}, []string{"status"})
	insufficient := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "insufficient_stock_total",
		Help:      "Order validations rejected for insufficient stock.",
	})
	reminders := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "reminders_sent_total",
		Help:      "Overdue order reminders delivered to vendors.",
	})
	reg.MustRegister(transitions, insufficient, reminders)
	return &OrderMetrics{
		transitions:       transitions,
		insufficientStock: insufficient,
		reminders:         reminders,
	}
}

// IncTransition counts an order entering status.
func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncInsufficientStock counts a validation rejected for stock.
func (m *OrderMetrics) IncInsufficientStock() {
	if m == nil || m.insufficientStock == nil {
		return
	}
	m.insufficientStock.Inc()
}

// IncReminder counts a reminder notification written.
func (m *OrderMetrics) IncReminder() {
	if m == nil || m.reminders == nil {
		return
	}
	m.reminders.Inc()
}
