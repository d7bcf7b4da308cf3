package sampling

import (
	"context"
	"fmt"
)

// NeighborExpander grows a batch with a bounded breadth-first expansion over incoming
// relationships. Each hop samples at most the hop's fan-out neighbors per frontier
// node, so the induced subgraph is bounded by the batch size times the product of
// the fan-outs, whatever the true degrees are.
type NeighborExpander struct {
	Graph  Graph
	Config Config
	Rand   RandomSource
}

// Expand runs Config.Hops() hops starting from every node already in table and
// returns the adjacency edges (neighbor -> node) collected across all hops.
//
// Only nodes inserted during a hop form the next frontier. A sampled neighbor that
// was already indexed is linked but not expanded again, which keeps the expansion
// bounded at the cost of shallower receptive fields for revisited nodes.
func (e NeighborExpander) Expand(ctx context.Context, table *IndexTable) (EdgeIndex, error) {
	frontier := table.Nodes()
	adj := newEdgeIndex(len(frontier))

	for hop := range e.Config.Hops() {
		fanout := e.Config.FanoutAt(hop)
		var next []Node
		for _, n := range frontier {
			dst, ok := table.Index(n.ID)
			if !ok {
				return EdgeIndex{}, fmt.Errorf("frontier node %s is not indexed", n.ID)
			}
			sampled, err := sampleNeighbors(ctx, e.Graph, n.ID, e.Config, fanout, e.Rand)
			if err != nil {
				return EdgeIndex{}, fmt.Errorf("could not expand %s at hop %d: %w", n.ID, hop, err)
			}
			for _, m := range sampled {
				src, inserted := table.GetOrInsert(m)
				if inserted {
					next = append(next, m)
				}
				adj.Append(src, dst)
			}
		}
		frontier = next
	}
	return adj, nil
}
