package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the sales module. All methods are nil-safe.
type Metrics struct {
	// Reservation transitions by kind: created, confirmed, cancelled, expired
	Transitions *prometheus.CounterVec

	// Records touched by cascades, by record kind
	CascadeChanges *prometheus.CounterVec

	// Payments recorded/validated/rejected
	Payments *prometheus.CounterVec

	// Guard failures by operation and error code
	GuardRejections *prometheus.CounterVec

	OperationLatency *prometheus.HistogramVec
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on reg; tests pass a fresh registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immo_reservation_transitions_total",
			Help: "Reservation state machine transitions by kind",
		}, []string{"transition"}),

		CascadeChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immo_cascade_changes_total",
			Help: "Dependent records changed by terminal reservation cascades",
		}, []string{"record"}),

		Payments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immo_payments_total",
			Help: "Payment operations by outcome status",
		}, []string{"status"}),

		GuardRejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immo_guard_rejections_total",
			Help: "Operations refused by a guard, by operation and error code",
		}, []string{"operation", "code"}),

		OperationLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "immo_sales_operation_duration_seconds",
			Help:    "Duration of sales operations including the transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncTransition(transition string) {
	if m != nil {
		m.Transitions.WithLabelValues(transition).Inc()
	}
}

func (m *Metrics) AddCascadeChanges(record string, n int) {
	if m != nil && n > 0 {
		m.CascadeChanges.WithLabelValues(record).Add(float64(n))
	}
}

func (m *Metrics) IncPayment(status string) {
	if m != nil {
		m.Payments.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) IncGuardRejection(operation, code string) {
	if m != nil {
		m.GuardRejections.WithLabelValues(operation, code).Inc()
	}
}

func (m *Metrics) ObserveOperation(operation string, d time.Duration) {
	if m != nil {
		m.OperationLatency.WithLabelValues(operation).Observe(d.Seconds())
	}
}
