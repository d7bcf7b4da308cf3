package sampling

import (
	"context"
	"fmt"
)

// NeighborhoodOptions controls Neighborhood.
type NeighborhoodOptions struct {
	// Direction of the traversed relationships.
	Direction Direction
	// Types restricts the relationship types followed.
	Types Filter
	// Labels restricts the nodes admitted into a layer.
	Labels Filter
	// Counts is the number of neighbors sampled per node at each depth, nearest first.
	Counts []int
}

// Neighborhood samples the layered neighborhood of source. Layer 0 holds source
// alone; layer d+1 holds the not yet visited nodes among up to Counts[d] sampled
// neighbors of every node in layer d. The walk stops early once a layer comes out
// empty, so the result may have fewer than len(Counts)+1 layers.
func Neighborhood(ctx context.Context, g Graph, source Node, opts NeighborhoodOptions, rng RandomSource) ([][]Node, error) {
	for d, k := range opts.Counts {
		if k < 0 {
			return nil, fmt.Errorf("%w: neighbor count at depth %d is negative (%d)", ErrConfiguration, d, k)
		}
	}
	layers := [][]Node{{source}}
	visited := map[string]struct{}{source.ID: {}}

	for depth, k := range opts.Counts {
		var layer []Node
		for _, n := range layers[depth] {
			r := NewReservoir[Node](k, rng)
			for m, err := range g.Neighbors(ctx, n.ID, opts.Direction, opts.Types) {
				if err != nil {
					return nil, fmt.Errorf("could not read neighbors of %s: %w", n.ID, err)
				}
				if opts.Labels.MatchesAny(m.Labels) {
					r.Offer(m)
				}
			}
			for _, m := range r.Items() {
				if _, seen := visited[m.ID]; seen {
					continue
				}
				visited[m.ID] = struct{}{}
				layer = append(layer, m)
			}
		}
		if len(layer) == 0 {
			break
		}
		layers = append(layers, layer)
	}
	return layers, nil
}
