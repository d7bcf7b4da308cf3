// Package metrics holds the Prometheus instruments for sampling and training.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instruments are registered on the default registry through promauto.

var (
	// BatchesSampled counts batches that were sampled successfully.
	BatchesSampled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "neosage_batches_sampled_total",
			Help: "Total number of batches sampled",
		},
	)

	// BatchFailures counts aborted sampling calls, labeled by the failure reason.
	BatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "neosage_batch_failures_total",
			Help: "Total number of sampling calls that failed",
		},
		[]string{"reason"},
	)

	// BatchNodes tracks the node count of every sampled batch.
	BatchNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neosage_batch_nodes",
			Help:    "Number of distinct nodes per sampled batch",
			Buckets: prometheus.ExponentialBuckets(8, 2, 12),
		},
	)

	// BatchAdjacencyEdges tracks the message-passing edge count of every sampled batch.
	BatchAdjacencyEdges = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neosage_batch_adjacency_edges",
			Help:    "Number of adjacency edges per sampled batch",
			Buckets: prometheus.ExponentialBuckets(8, 2, 14),
		},
	)

	// BatchSampleDuration measures one sampling call end to end, store reads included.
	BatchSampleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neosage_batch_sample_duration_seconds",
			Help:    "Duration of sampling calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// EpochLoss is the mean training loss of the last finished epoch.
	EpochLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "neosage_epoch_loss",
			Help: "Mean loss of the last finished epoch",
		},
	)

	// EpochDuration measures whole epochs.
	EpochDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "neosage_epoch_duration_seconds",
			Help:    "Duration of training epochs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
		},
	)
)
