package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SearchMetrics records search latency and which cascade tier served each platform.
// A nil *SearchMetrics is valid and records nothing.
type SearchMetrics struct {
	duration *prometheus.HistogramVec
	tiers    *prometheus.CounterVec
	fetches  *prometheus.CounterVec
}

// NewSearchMetrics registers the search metrics on the provided registerer.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	if reg == nil {
		return &SearchMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "search_duration_seconds",
		Help:    "Duration of product searches in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
	}, []string{"source"})
	tiers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "search_platform_tier_total",
		Help: "Platform results by the cascade tier that produced them.",
	}, []string{"platform", "tier"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_fetch_total",
		Help: "Scraper page fetches by outcome.",
	}, []string{"platform", "outcome"})
	reg.MustRegister(duration, tiers, fetches)
	return &SearchMetrics{
		duration: duration,
		tiers:    tiers,
		fetches:  fetches,
	}
}

// ObserveSearch records the duration of a search labelled by its data source.
func (m *SearchMetrics) ObserveSearch(source string, d time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(source)).Observe(d.Seconds())
}

// IncTier counts one platform outcome served by tier.
func (m *SearchMetrics) IncTier(platform, tier string) {
	if m == nil || m.tiers == nil {
		return
	}
	m.tiers.WithLabelValues(normalizeLabel(platform), normalizeLabel(tier)).Inc()
}

// IncFetch counts a fetch outcome such as "ok", "blocked" or an HTTP status code.
func (m *SearchMetrics) IncFetch(platform, outcome string) {
	if m == nil || m.fetches == nil {
		return
	}
	m.fetches.WithLabelValues(normalizeLabel(platform), normalizeLabel(outcome)).Inc()
}

// StatusOutcome turns an HTTP status into a fetch outcome label.
func StatusOutcome(code int) string {
	if code == 0 {
		return "error"
	}
	return strconv.Itoa(code)
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
