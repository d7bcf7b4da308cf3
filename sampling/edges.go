package sampling

import (
	"context"
	"fmt"
)

// EdgeIndex stores directed edges as two parallel arrays of local indices:
// edge i runs from Src[i] to Dst[i].
type EdgeIndex struct {
	Src []int64
	Dst []int64
}

// maxPrealloc caps capacity hints derived from configuration; slices grow past it on demand.
const maxPrealloc = 1 << 16

// capacityHint returns n*per clamped to [0, maxPrealloc] without overflowing.
func capacityHint(n, per int) int {
	if n <= 0 || per <= 0 {
		return 0
	}
	if per > maxPrealloc/n {
		return maxPrealloc
	}
	return n * per
}

func newEdgeIndex(capacity int) EdgeIndex {
	return EdgeIndex{Src: make([]int64, 0, capacity), Dst: make([]int64, 0, capacity)}
}

// Append adds the edge src -> dst.
func (e *EdgeIndex) Append(src, dst int) {
	e.Src = append(e.Src, int64(src))
	e.Dst = append(e.Dst, int64(dst))
}

// Len returns the number of edges.
func (e EdgeIndex) Len() int { return len(e.Src) }

// Rows returns the edges as a 2×E matrix, the layout expected by edge_index tensors.
func (e EdgeIndex) Rows() [2][]int64 { return [2][]int64{e.Src, e.Dst} }

// ExtendedBatch is the seed batch grown with positive and negative samples.
type ExtendedBatch struct {
	// Nodes lists every indexed node in index order.
	Nodes []Node
	// Positive holds one edge (neighbor -> seed) per seed, in seed order.
	Positive EdgeIndex
	// Negative holds NegativesPerSeed edges (negative -> seed) per seed, seed-major.
	Negative EdgeIndex
}

// EdgeSetBuilder builds the contrastive edge pairs of a batch.
type EdgeSetBuilder struct {
	Graph  Graph
	Config Config
	Rand   RandomSource
}

// Build indexes every seed, then samples for each seed one positive neighbor and
// Config.NegativesPerSeed() negatives, growing table with every new node it picks.
//
// A seed without compliant neighbors fails the whole batch with ErrNoCompliantNeighbor.
// Negatives are drawn with replacement from every node matching the label filter,
// without excluding positives or earlier draws; an empty pool fails the batch with
// ErrEmptyNegativePool.
func (b EdgeSetBuilder) Build(ctx context.Context, table *IndexTable, seeds []Node) (*ExtendedBatch, error) {
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	numNeg := b.Config.NegativesPerSeed()
	seedIdx := make([]int, len(seeds))
	for i, s := range seeds {
		seedIdx[i], _ = table.GetOrInsert(s)
	}

	pos := newEdgeIndex(len(seeds))
	for i, s := range seeds {
		// A reservoir of one is a uniform pick over the compliant set.
		picked, err := sampleNeighbors(ctx, b.Graph, s.ID, b.Config, 1, b.Rand)
		if err != nil {
			return nil, fmt.Errorf("could not read neighbors of seed %s: %w", s.ID, err)
		}
		if len(picked) == 0 {
			return nil, fmt.Errorf("%w: seed %s (labels %s, types %s)",
				ErrNoCompliantNeighbor, s.ID, b.Config.NodeLabels(), b.Config.RelationshipTypes())
		}
		idx, _ := table.GetOrInsert(picked[0])
		pos.Append(idx, seedIdx[i])
	}

	neg := newEdgeIndex(capacityHint(len(seeds), numNeg))
	if numNeg > 0 {
		pool, err := b.negativePool(ctx)
		if err != nil {
			return nil, err
		}
		for i := range seeds {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			for range numNeg {
				id := pool[b.Rand.IntN(len(pool))]
				idx, err := b.index(ctx, table, id)
				if err != nil {
					return nil, err
				}
				neg.Append(idx, seedIdx[i])
			}
		}
	}

	return &ExtendedBatch{Nodes: table.Nodes(), Positive: pos, Negative: neg}, nil
}

func (b EdgeSetBuilder) negativePool(ctx context.Context) ([]string, error) {
	var pool []string
	for id, err := range b.Graph.NodeIDs(ctx, b.Config.NodeLabels()) {
		if err != nil {
			return nil, fmt.Errorf("could not enumerate negative pool: %w", err)
		}
		pool = append(pool, id)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: no node matches labels %s", ErrEmptyNegativePool, b.Config.NodeLabels())
	}
	return pool, nil
}

// index returns the table index of id, resolving the node only when it is new.
func (b EdgeSetBuilder) index(ctx context.Context, table *IndexTable, id string) (int, error) {
	if idx, ok := table.Index(id); ok {
		return idx, nil
	}
	n, err := b.Graph.Node(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("could not resolve negative %s: %w", id, err)
	}
	idx, _ := table.GetOrInsert(n)
	return idx, nil
}
