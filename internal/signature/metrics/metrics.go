package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts signing protocol activity. All methods are nil-safe.
type Metrics struct {
	// Codes issued
	Issued prometheus.Counter

	// Submissions by outcome: signed, incorrect, blocked, expired
	Outcomes *prometheus.CounterVec

	// Blocks raised after too many wrong codes
	Blocks prometheus.Counter

	// Administrative block resets
	Resets prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Issued: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_signature_codes_issued_total",
			Help: "Signature codes issued",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "immo_signature_submissions_total",
			Help: "Signature code submissions by outcome",
		}, []string{"outcome"}),
		Blocks: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_signature_blocks_total",
			Help: "Contracts blocked after too many incorrect codes",
		}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "immo_signature_block_resets_total",
			Help: "Signature blocks cleared by an administrator",
		}),
	}
}

func (m *Metrics) IncIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

func (m *Metrics) IncOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncBlock() {
	if m != nil {
		m.Blocks.Inc()
	}
}

func (m *Metrics) IncReset() {
	if m != nil {
		m.Resets.Inc()
	}
}
