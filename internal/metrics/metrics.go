// Package metrics exposes Prometheus collectors for the batch processor
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
	OutcomeConflict  = "conflict"
)

// Batch records batch counts, sizes and latency per entity and outcome
type Batch struct {
	batches  *prometheus.CounterVec
	items    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewBatch registers the batch collectors with reg
func NewBatch(reg prometheus.Registerer) *Batch {
	factory := promauto.With(reg)
	return &Batch{
		batches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_config",
			Name:      "batches_total",
			Help:      "Mutation batches by entity and outcome.",
		}, []string{"entity", "outcome"}),
		items: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_config",
			Name:      "batch_items_total",
			Help:      "Items in mutation batches by entity and outcome.",
		}, []string{"entity", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "strategy_config",
			Name:      "batch_duration_seconds",
			Help:      "Time from transaction start to commit or rollback.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entity", "outcome"}),
	}
}

// ObserveBatch records one finished batch
func (m *Batch) ObserveBatch(entity, outcome string, items int, elapsed time.Duration) {
	m.batches.WithLabelValues(entity, outcome).Inc()
	m.items.WithLabelValues(entity, outcome).Add(float64(items))
	m.duration.WithLabelValues(entity, outcome).Observe(elapsed.Seconds())
}
