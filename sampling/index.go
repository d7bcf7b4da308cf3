package sampling

import "slices"

// IndexTable assigns dense local indices to nodes in first-seen order. Indices are
// never reused or reassigned and the table never shrinks; it lives for one batch.
type IndexTable struct {
	index map[string]int
	nodes []Node
}

// NewIndexTable returns an empty table with room for capacity nodes.
func NewIndexTable(capacity int) *IndexTable {
	return &IndexTable{
		index: make(map[string]int, capacity),
		nodes: make([]Node, 0, capacity),
	}
}

// GetOrInsert returns the index of n, assigning the next free index if n.ID has not
// been seen before. inserted reports whether a new index was assigned.
func (t *IndexTable) GetOrInsert(n Node) (idx int, inserted bool) {
	if idx, ok := t.index[n.ID]; ok {
		return idx, false
	}
	idx = len(t.nodes)
	t.index[n.ID] = idx
	t.nodes = append(t.nodes, n)
	return idx, true
}

// Index returns the index assigned to id, if any.
func (t *IndexTable) Index(id string) (int, bool) {
	idx, ok := t.index[id]
	return idx, ok
}

// Len returns the number of indexed nodes.
func (t *IndexTable) Len() int { return len(t.nodes) }

// At returns the node stored at index i.
func (t *IndexTable) At(i int) Node { return t.nodes[i] }

// Nodes returns the indexed nodes in index order.
func (t *IndexTable) Nodes() []Node { return slices.Clone(t.nodes) }
