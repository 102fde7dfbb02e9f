package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Autocomplete Prometheus metrics.
var (
	CandidateCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_cache_total",
			Help:      "Candidate cache lookups by result",
		},
		[]string{"result"}, // "hit" / "miss" / "error"
	)

	CreateOptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "autocomplete_create_options_total",
			Help:      "Create options offered in autocomplete results",
		},
		[]string{"endpoint"},
	)

	RecordsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_created_total",
			Help:      "Records returned by get-or-create, by whether a row was inserted",
		},
		[]string{"collection", "created"},
	)
)

var registerOnce sync.Once

// RegisterAutocompleteMetrics registers the autocomplete metrics. Safe to call more than once.
func RegisterAutocompleteMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(CandidateCacheTotal)
		prometheus.MustRegister(CreateOptionsTotal)
		prometheus.MustRegister(RecordsCreatedTotal)
	})
}
