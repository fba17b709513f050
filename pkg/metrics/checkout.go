package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout funnel outcomes.
type CheckoutMetrics struct {
	validations *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_validations",
		Help: "Checkout validation runs by result.",
	}, []string{"result"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes",
		Help: "Terminal checkout outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(validations, outcomes)
	return &CheckoutMetrics{validations: validations, outcomes: outcomes}
}

// IncValidation counts a validation run labelled clean, warnings or errors.
func (c *CheckoutMetrics) IncValidation(result string) {
	if c == nil || c.validations == nil {
		return
	}
	c.validations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncOutcome counts a terminal checkout outcome such as handoff or abort.
func (c *CheckoutMetrics) IncOutcome(outcome string) {
	if c == nil || c.outcomes == nil {
		return
	}
	c.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}
