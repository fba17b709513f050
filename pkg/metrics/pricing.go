package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PricingMetrics records the quote/debounce activity of the pricing loop.
type PricingMetrics struct {
	quoteDuration *prometheus.HistogramVec
	quoteAttempts *prometheus.CounterVec
	quoteRetries  prometheus.Counter
	staleDropped  prometheus.Counter
	debounced     prometheus.Counter
}

// NewPricingMetrics registers the pricing metrics on the provided registerer.
func NewPricingMetrics(reg prometheus.Registerer) *PricingMetrics {
	if reg == nil {
		return &PricingMetrics{}
	}
	quoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pricing_quote_duration_seconds",
		Help:    "Duration of authoritative quote requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	quoteAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pricing_quote_attempts",
		Help: "Authoritative quote attempts by outcome.",
	}, []string{"outcome"})
	quoteRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_quote_retries",
		Help: "Quote attempts retried after a rate-limit response.",
	})
	staleDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_stale_responses_dropped",
		Help: "Quote responses discarded because the selection changed mid-flight.",
	})
	debounced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pricing_requests_debounced",
		Help: "Quote requests collapsed by the quiescence window.",
	})
	reg.MustRegister(quoteDuration, quoteAttempts, quoteRetries, staleDropped, debounced)
	return &PricingMetrics{
		quoteDuration: quoteDuration,
		quoteAttempts: quoteAttempts,
		quoteRetries:  quoteRetries,
		staleDropped:  staleDropped,
		debounced:     debounced,
	}
}

// ObserveQuote records a completed quote request with its outcome label.
func (p *PricingMetrics) ObserveQuote(outcome string, duration time.Duration) {
	if p == nil || p.quoteDuration == nil {
		return
	}
	label := normalizeLabel(outcome)
	p.quoteDuration.WithLabelValues(label).Observe(duration.Seconds())
	p.quoteAttempts.WithLabelValues(label).Inc()
}

// IncRetry increments the rate-limit retry counter.
func (p *PricingMetrics) IncRetry() {
	if p == nil || p.quoteRetries == nil {
		return
	}
	p.quoteRetries.Inc()
}

// IncStaleDropped increments the stale-response counter.
func (p *PricingMetrics) IncStaleDropped() {
	if p == nil || p.staleDropped == nil {
		return
	}
	p.staleDropped.Inc()
}

// IncDebounced increments the collapsed-request counter.
func (p *PricingMetrics) IncDebounced() {
	if p == nil || p.debounced == nil {
		return
	}
	p.debounced.Inc()
}

func normalizeLabel(outcome string) string {
	if outcome == "" {
		return "unknown"
	}
	return outcome
}
