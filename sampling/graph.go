package sampling

import (
	"context"
	"iter"
	"slices"
)

// Node is a read-only view of a stored node, valid for the snapshot it was read from.
// The graph store owns the underlying data; the sampler only references it.
type Node struct {
	// ID is the store's external identity for the node (the Neo4j element id).
	ID string
	// Labels are the node's labels in store order.
	Labels []string
	// Props holds the node's properties as decoded by the store.
	Props map[string]any
}

// HasLabel reports whether the node carries label.
func (n Node) HasLabel(label string) bool {
	return slices.Contains(n.Labels, label)
}

// Direction selects which relationships of a node are traversed.
type Direction int

const (
	// Incoming traverses relationships that end at the node; the neighbor is the start node.
	Incoming Direction = iota
	// Outgoing traverses relationships that start at the node; the neighbor is the end node.
	Outgoing
)

func (d Direction) String() string {
	if d == Outgoing {
		return "outgoing"
	}
	return "incoming"
}

// Graph is the read-only graph store collaborator. All calls made during one sampling
// call must observe the same snapshot of the store.
type Graph interface {
	// Node resolves a node by id. It returns an error wrapping ErrNodeNotFound when
	// the id is unknown.
	Node(ctx context.Context, id string) (Node, error)

	// Neighbors streams the other endpoint of every relationship of node id in the
	// given direction whose type passes types. A node reached through several
	// relationships is yielded once per relationship.
	Neighbors(ctx context.Context, id string, dir Direction, types Filter) iter.Seq2[Node, error]

	// NodeIDs streams the ids of all stored nodes carrying a label accepted by labels.
	NodeIDs(ctx context.Context, labels Filter) iter.Seq2[string, error]
}

// sampleNeighbors draws up to k incoming neighbors of id that pass both filters of
// cfg, in a single pass over the store's relationship stream.
func sampleNeighbors(ctx context.Context, g Graph, id string, cfg Config, k int, rng RandomSource) ([]Node, error) {
	r := NewReservoir[Node](k, rng)
	for m, err := range g.Neighbors(ctx, id, Incoming, cfg.relTypes) {
		if err != nil {
			return nil, err
		}
		if cfg.nodeLabels.MatchesAny(m.Labels) {
			r.Offer(m)
		}
	}
	return r.Items(), nil
}
