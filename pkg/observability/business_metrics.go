package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Payment operations as seen by callers
	paymentOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_operations_total",
		Help: "Total payment operations by transaction type and resulting canonical status",
	}, []string{
		"transaction_type", // AUTHORIZE, CAPTURE, PURCHASE, VOID, REFUND, CREDIT
		"status",           // PROCESSED, PENDING, ERROR, CANCELED, UNDEFINED, or an error code
	})

	paymentOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_operation_duration_seconds",
		Help:    "End-to-end time of a payment operation including gateway and ledger",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{
		"transaction_type",
	})

	// Gateway round trips
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_requests_total",
		Help: "Total payment gateway requests",
	}, []string{
		"operation", // create_intent, capture, cancel, refund, retrieve, ...
		"outcome",   // ok, declined, transport, unknown
	})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Payment gateway request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"operation",
	})

	// Reconciliation of pending records
	reconciliationRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_refreshes_total",
		Help: "Pending transaction refresh attempts",
	}, []string{
		"result", // refreshed, confirmed, canceled_3ds, failed
	})

	pendingExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pending_payment_expirations_total",
		Help: "Pending payments canceled after their expiration period",
	})

	// Payment method mirror convergence
	paymentMethodSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_method_sync_total",
		Help: "Mirror changes applied while synchronizing payment methods",
	}, []string{
		"action", // added, updated, removed
	})

	gatewayCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_circuit_breaker_state",
		Help: "Gateway circuit breaker state (0=closed, 1=open, 2=half-open)",
	})
)

// RecordPaymentOperation records one executed payment operation
func RecordPaymentOperation(transactionType, status string, duration float64) {
	paymentOperationsTotal.WithLabelValues(transactionType, status).Inc()
	paymentOperationDuration.WithLabelValues(transactionType).Observe(duration)
}

// RecordGatewayRequest records one gateway round trip
func RecordGatewayRequest(operation, outcome string, duration float64) {
	gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordReconciliationRefresh records the result of refreshing one pending record
func RecordReconciliationRefresh(result string) {
	reconciliationRefreshesTotal.WithLabelValues(result).Inc()
}

// RecordPendingExpiration records a janitor cancellation
func RecordPendingExpiration() {
	pendingExpirationsTotal.Inc()
}

// RecordPaymentMethodSync records mirror changes of one sync run
func RecordPaymentMethodSync(added, updated, removed int) {
	paymentMethodSyncTotal.WithLabelValues("added").Add(float64(added))
	paymentMethodSyncTotal.WithLabelValues("updated").Add(float64(updated))
	paymentMethodSyncTotal.WithLabelValues("removed").Add(float64(removed))
}

// SetGatewayCircuitState publishes the gateway circuit breaker state
func SetGatewayCircuitState(state int) {
	gatewayCircuitState.Set(float64(state))
}
