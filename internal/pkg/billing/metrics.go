package billing

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeProcessed        = "processed"
	OutcomeDuplicate        = "duplicate"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeFailed           = "failed"
)

// Metrics counts webhook deliveries by provider, canonical kind and outcome.
type Metrics struct {
	webhooks *prometheus.CounterVec
}

// NewMetrics registers the billing collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		webhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foxkit",
				Subsystem: "billing",
				Name:      "webhooks_total",
				Help:      "Billing webhook deliveries by provider, event kind and outcome.",
			},
			[]string{"provider", "kind", "outcome"},
		),
	}
	reg.MustRegister(m.webhooks)
	return m
}

func (m *Metrics) observe(provider Provider, kind EventKind, outcome string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.webhooks.WithLabelValues(string(provider), string(kind), outcome).Inc()
}
