package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level
// observability of the order and payment flows.
type BusinessMetrics struct {
	// Orders
	OrdersCreated        prometheus.Counter
	OrderCreationFailed  prometheus.Counter
	OrderValue           prometheus.Histogram
	OrderItemCount       prometheus.Histogram
	StatusTransitions    *prometheus.CounterVec
	IllegalTransitions   prometheus.Counter

	// Payments
	PaymentsInitiated  prometheus.Counter
	PaymentInitFailed  *prometheus.CounterVec
	PaymentsSucceeded  prometheus.Counter
	PaymentsFailed     prometheus.Counter
	CallbacksReceived  prometheus.Counter
	CallbacksUnmatched prometheus.Counter
}

// Business is the process-global metrics instance, set once at startup.
// Callers nil-check it so packages stay usable in tests without
// registering collectors.
var Business *BusinessMetrics

// Init creates, registers and installs the global business metrics.
func Init(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}

// NewBusinessMetrics creates and registers all business metrics.
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "trendwear"
	}

	subsystem := "business"

	return &BusinessMetrics{
		OrdersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "orders_created_total",
			Help:      "Orders successfully created",
		}),
		OrderCreationFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_creation_failed_total",
			Help:      "Order creation attempts rolled back",
		}),
		OrderValue: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_value_shillings",
			Help:      "Order totals including shipping, in KES",
			Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000},
		}),
		OrderItemCount: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_item_count",
			Help:      "Line items per order",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_status_transitions_total",
			Help:      "Successful order status transitions",
		}, []string{"to"}),
		IllegalTransitions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "order_illegal_transitions_total",
			Help:      "Rejected order status transitions",
		}),

		PaymentsInitiated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payments_initiated_total",
			Help:      "STK push prompts dispatched to the gateway",
		}),
		PaymentInitFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_initiation_failed_total",
			Help:      "Payment initiation failures by reason",
		}, []string{"reason"}),
		PaymentsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payments_succeeded_total",
			Help:      "Payment callbacks with result code 0",
		}),
		PaymentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payments_failed_total",
			Help:      "Payment callbacks with a non-zero result code",
		}),
		CallbacksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_callbacks_received_total",
			Help:      "Gateway callbacks received, matched or not",
		}),
		CallbacksUnmatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "payment_callbacks_unmatched_total",
			Help:      "Callbacks whose correlation id matched no order",
		}),
	}
}
