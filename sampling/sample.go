package sampling

import "context"

// Batch is everything the training backend needs for one step, all in one local
// index space.
type Batch struct {
	// Nodes lists the sampled nodes; node i owns row i of Graph.Features.
	Nodes []Node
	// Positive and Negative are the contrastive edge pairs, one positive per seed and
	// NegativesPerSeed negatives per seed.
	Positive EdgeIndex
	Negative EdgeIndex
	// Graph holds the feature matrix and the message-passing edges.
	Graph DenseGraph
	// Seed is the random seed the batch was drawn with, when known.
	Seed int64
}

// Sample builds one batch for seeds: positives and negatives first, then bounded
// neighbor expansion, then tensors. It reads g only, uses rng for every draw and
// keeps no state, so identical snapshots, configs and seeds give identical batches.
func Sample(ctx context.Context, g Graph, seeds []Node, cfg Config, rng RandomSource) (*Batch, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	table := NewIndexTable(capacityHint(len(seeds), 2+cfg.NegativesPerSeed()))

	ext, err := EdgeSetBuilder{Graph: g, Config: cfg, Rand: rng}.Build(ctx, table, seeds)
	if err != nil {
		return nil, err
	}
	adj, err := NeighborExpander{Graph: g, Config: cfg, Rand: rng}.Expand(ctx, table)
	if err != nil {
		return nil, err
	}
	nodes := table.Nodes()
	dense, err := TensorAssembler{Properties: cfg.FeatureProperties()}.Assemble(nodes, adj)
	if err != nil {
		return nil, err
	}
	return &Batch{
		Nodes:    nodes,
		Positive: ext.Positive,
		Negative: ext.Negative,
		Graph:    *dense,
	}, nil
}

// Resolve looks up every id in g, preserving order.
func Resolve(ctx context.Context, g Graph, ids []string) ([]Node, error) {
	nodes := make([]Node, 0, len(ids))
	for _, id := range ids {
		n, err := g.Node(ctx, id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
