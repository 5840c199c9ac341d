// Package metrics instruments the film stores with Prometheus.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Agurato/filmorate/internal/model"
)

var (
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filmorate_store_query_duration_seconds",
			Help:    "Duration of film store round trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filmorate_store_query_errors_total",
			Help: "Total number of failed film store round trips",
		},
		[]string{"backend", "operation", "error_type"},
	)
)

// ObserveQuery records the duration of a store operation started at start, and its failure if any.
// It is meant to be deferred with a pointer to the named error result.
func ObserveQuery(backend, operation string, start time.Time, err *error) {
	StoreQueryDuration.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	if err == nil || *err == nil {
		return
	}
	StoreQueryErrors.WithLabelValues(backend, operation, errorType(*err)).Inc()
}

func errorType(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrValidation):
		return "validation"
	default:
		return "store"
	}
}
