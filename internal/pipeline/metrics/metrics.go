package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessed tracks ingested messages per terminal outcome
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applyflow_messages_processed_total",
			Help: "Total number of application messages processed",
		},
		[]string{"outcome"},
	)

	// InferenceAttempts tracks classification attempts per result
	InferenceAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "applyflow_inference_attempts_total",
			Help: "Total number of inference attempts",
		},
		[]string{"result"},
	)

	// InferenceLatency tracks provider call latency
	InferenceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "applyflow_inference_latency_seconds",
			Help:    "Inference provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CredentialsByState tracks pool composition
	CredentialsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "applyflow_credentials",
			Help: "Number of inference credentials per state",
		},
		[]string{"state"},
	)

	// RepliesSaved tracks replies persisted by the reply tracker
	RepliesSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "applyflow_replies_saved_total",
			Help: "Total number of new applicant replies persisted",
		},
	)

	// DBConnectionPoolUsage tracks database pool saturation
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "applyflow_db_connection_pool_usage_percent",
			Help: "Database connection pool usage percentage",
		},
	)

	// RunDuration tracks full pipeline run duration
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "applyflow_run_duration_seconds",
			Help:    "Duration of a full pipeline run in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)
)
