// Package metrics declares the Prometheus collectors of the churn platform.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "churn_predictions_total",
			Help: "Total number of rows scored by the churn model",
		},
	)

	SchemaMismatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "churn_schema_mismatches_total",
			Help: "Total number of prediction requests rejected for unresolved required columns",
		},
	)

	InferenceFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "churn_inference_failures_total",
			Help: "Total number of failed classifier invocations",
		},
	)

	InferenceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "churn_inference_duration_seconds",
			Help:    "Duration of one classifier batch invocation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "churn_uploads_total",
			Help: "Total number of CSV uploads by outcome",
		},
		[]string{"status"},
	)
)

// Upload outcome labels.
const (
	UploadSucceeded = "succeeded"
	UploadRejected  = "rejected"
	UploadFailed    = "failed"
)
