package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedMetrics tracks listing feed generation outcomes. Excluded listings are
// only visible here and in logs, never in the feed body itself.
type FeedMetrics struct {
	included prometheus.Counter
	excluded *prometheus.CounterVec
}

// NewFeedMetrics registers the feed counters on the provided registerer.
func NewFeedMetrics(reg prometheus.Registerer) *FeedMetrics {
	if reg == nil {
		return &FeedMetrics{}
	}
	included := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "feed_listings_included_total",
		Help: "Listings emitted into generated feeds.",
	})
	excluded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_listings_excluded_total",
		Help: "Listings dropped from generated feeds, by reason.",
	}, []string{"reason"})
	reg.MustRegister(included, excluded)
	return &FeedMetrics{included: included, excluded: excluded}
}

// IncIncluded counts one emitted listing.
func (f *FeedMetrics) IncIncluded() {
	if f == nil || f.included == nil {
		return
	}
	f.included.Inc()
}

// IncExcluded counts one dropped listing for the given reason.
func (f *FeedMetrics) IncExcluded(reason string) {
	if f == nil || f.excluded == nil {
		return
	}
	f.excluded.WithLabelValues(normalizeLabel(reason)).Inc()
}
