package neosage

import (
	"context"
	"time"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/internal/ctxlog"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/metrics"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// SamplingManager draws training batches from a GraphSource. It holds only the
// immutable sampling configuration, so one manager may serve concurrent callers.
type SamplingManager struct {
	source GraphSource
	config sampling.Config
}

// NewSamplingManager creates a SamplingManager reading from source.
func NewSamplingManager(source GraphSource, config sampling.Config) *SamplingManager {
	return &SamplingManager{source: source, config: config}
}

// Config returns the sampling configuration.
func (m *SamplingManager) Config() sampling.Config { return m.config }

// SampleBatch resolves seedIDs and samples one batch from a single read snapshot.
// The random generator is created from seed inside the snapshot callback, so a
// retried transaction replays exactly the same draws.
func (m *SamplingManager) SampleBatch(ctx context.Context, seedIDs []string, seed int64) (*sampling.Batch, error) {
	start := time.Now()
	var batch *sampling.Batch
	err := m.source.View(ctx, func(g sampling.Graph) error {
		seeds, err := sampling.Resolve(ctx, g, seedIDs)
		if err != nil {
			return err
		}
		batch, err = sampling.Sample(ctx, g, seeds, m.config, sampling.NewRandomSource(seed))
		return err
	})
	elapsed := time.Since(start)
	metrics.BatchSampleDuration.Observe(elapsed.Seconds())

	logger := ctxlog.FromContext(ctx)
	if err != nil {
		reason := sampling.Reason(err)
		metrics.BatchFailures.WithLabelValues(reason).Inc()
		logger.Debug("batch sampling failed", "seeds", len(seedIDs), "seed", seed, "reason", reason, "error", err)
		return nil, err
	}
	batch.Seed = seed

	metrics.BatchesSampled.Inc()
	metrics.BatchNodes.Observe(float64(len(batch.Nodes)))
	metrics.BatchAdjacencyEdges.Observe(float64(batch.Graph.Adjacency.Len()))
	logger.Debug("batch sampled",
		"seeds", len(seedIDs),
		"seed", seed,
		"nodes", len(batch.Nodes),
		"positive", batch.Positive.Len(),
		"negative", batch.Negative.Len(),
		"adjacency", batch.Graph.Adjacency.Len(),
		"duration", elapsed,
	)
	return batch, nil
}

// Neighborhood samples the layered neighborhood of the node sourceID, see
// sampling.Neighborhood.
func (m *SamplingManager) Neighborhood(ctx context.Context, sourceID string, opts sampling.NeighborhoodOptions, seed int64) ([][]sampling.Node, error) {
	var layers [][]sampling.Node
	err := m.source.View(ctx, func(g sampling.Graph) error {
		source, err := g.Node(ctx, sourceID)
		if err != nil {
			return err
		}
		layers, err = sampling.Neighborhood(ctx, g, source, opts, sampling.NewRandomSource(seed))
		return err
	})
	if err != nil {
		return nil, err
	}
	return layers, nil
}
