// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the pipeline and server report into.
type Metrics struct {
	LastSuccess         *prometheus.GaugeVec
	ConsecutiveFailures *prometheus.GaugeVec
	EntriesContributed  *prometheus.GaugeVec
	SkippedRecords      *prometheus.CounterVec
	FallbacksUsed       *prometheus.CounterVec
	Cycles              *prometheus.CounterVec
	PublishedEntries    prometheus.Gauge
	TotalEntriesServed  prometheus.Counter
	FeedRequests        prometheus.Counter
}

// New registers all collectors with reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratefeed_exchanger_last_success_timestamp_seconds",
			Help: "Unix time of the last successful fetch per exchanger.",
		}, []string{"exchanger"}),
		ConsecutiveFailures: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratefeed_exchanger_consecutive_failures",
			Help: "Number of consecutive failed cycles per exchanger.",
		}, []string{"exchanger"}),
		EntriesContributed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratefeed_exchanger_entries",
			Help: "Entries contributed to the current feed per exchanger.",
		}, []string{"exchanger"}),
		SkippedRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratefeed_skipped_records_total",
			Help: "Raw records skipped during normalization per exchanger.",
		}, []string{"exchanger"}),
		FallbacksUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratefeed_fallbacks_total",
			Help: "Cycles where cached data was used per exchanger.",
		}, []string{"exchanger"}),
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratefeed_cycles_total",
			Help: "Completed refresh cycles by result.",
		}, []string{"result"}),
		PublishedEntries: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ratefeed_published_entries",
			Help: "Entry count of the currently published feed.",
		}),
		TotalEntriesServed: factory.NewCounter(prometheus.CounterOpts{
			Name: "ratefeed_entries_published_total",
			Help: "Total entries written across all published feeds.",
		}),
		FeedRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "ratefeed_feed_requests_total",
			Help: "HTTP requests served for the feed artifact.",
		}),
	}
}

// RecordSuccess updates the per-exchanger gauges after a fresh fetch.
func (m *Metrics) RecordSuccess(exchangerID string, at time.Time, entries int) {
	m.LastSuccess.WithLabelValues(exchangerID).Set(float64(at.Unix()))
	m.ConsecutiveFailures.WithLabelValues(exchangerID).Set(0)
	m.EntriesContributed.WithLabelValues(exchangerID).Set(float64(entries))
}

// RecordFailure updates the per-exchanger gauges after a failed cycle.
func (m *Metrics) RecordFailure(exchangerID string, consecutive int, entries int, usedFallback bool) {
	m.ConsecutiveFailures.WithLabelValues(exchangerID).Set(float64(consecutive))
	m.EntriesContributed.WithLabelValues(exchangerID).Set(float64(entries))
	if usedFallback {
		m.FallbacksUsed.WithLabelValues(exchangerID).Inc()
	}
}
