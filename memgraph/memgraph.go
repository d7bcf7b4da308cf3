// Package memgraph provides an in-memory sampling.Graph.
//
// Nodes are kept in a copy-on-write B-tree ordered by id, so enumeration order is
// deterministic and View can hand out an isolated snapshot in O(1). It is meant for
// tests, fixtures and graphs small enough to sample without a database.
package memgraph

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"github.com/tidwall/btree"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

type edge struct {
	typ   string
	other string
}

// entry is immutable once stored; writers replace it with an updated copy.
type entry struct {
	node sampling.Node
	in   []edge
	out  []edge
}

func (e *entry) withIn(x edge) *entry {
	c := *e
	c.in = append(slices.Clip(e.in), x)
	return &c
}

func (e *entry) withOut(x edge) *entry {
	c := *e
	c.out = append(slices.Clip(e.out), x)
	return &c
}

func byID(a, b *entry) bool { return a.node.ID < b.node.ID }

// Graph is a directed, labelled property graph held in memory.
type Graph struct {
	mu    sync.Mutex
	nodes *btree.BTreeG[*entry]
	edges int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nodes: btree.NewBTreeG[*entry](byID)}
}

// AddNode stores a node, replacing the labels and properties of an existing node with
// the same id while keeping its relationships.
func (g *Graph) AddNode(id string, labels []string, props map[string]any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := sampling.Node{ID: id, Labels: slices.Clone(labels), Props: props}
	if old, ok := g.nodes.Get(key(id)); ok {
		c := *old
		c.node = n
		g.nodes.Set(&c)
		return
	}
	g.nodes.Set(&entry{node: n})
}

// AddEdge stores a relationship of type typ from -> to. Both endpoints must exist.
func (g *Graph) AddEdge(from, to, typ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	src, ok := g.nodes.Get(key(from))
	if !ok {
		return fmt.Errorf("%w: %s", sampling.ErrNodeNotFound, from)
	}
	if _, ok := g.nodes.Get(key(to)); !ok {
		return fmt.Errorf("%w: %s", sampling.ErrNodeNotFound, to)
	}
	g.nodes.Set(src.withOut(edge{typ: typ, other: to}))
	// Re-read so a self loop keeps the outgoing edge just written.
	dst, _ := g.nodes.Get(key(to))
	g.nodes.Set(dst.withIn(edge{typ: typ, other: from}))
	g.edges++
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.nodes.Len()
}

// EdgeCount returns the number of relationships.
func (g *Graph) EdgeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.edges
}

// Snapshot returns an isolated copy that later writes to g do not affect.
func (g *Graph) Snapshot() *Graph {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &Graph{nodes: g.nodes.Copy(), edges: g.edges}
}

// View runs fn against a snapshot of g.
func (g *Graph) View(ctx context.Context, fn func(sampling.Graph) error) error {
	return fn(g.Snapshot())
}

// Node implements sampling.Graph.
func (g *Graph) Node(ctx context.Context, id string) (sampling.Node, error) {
	e, ok := g.nodes.Get(key(id))
	if !ok {
		return sampling.Node{}, fmt.Errorf("%w: %s", sampling.ErrNodeNotFound, id)
	}
	return e.node, nil
}

// Neighbors implements sampling.Graph. Relationships are yielded in insertion order.
func (g *Graph) Neighbors(ctx context.Context, id string, dir sampling.Direction, types sampling.Filter) iter.Seq2[sampling.Node, error] {
	return func(yield func(sampling.Node, error) bool) {
		e, ok := g.nodes.Get(key(id))
		if !ok {
			yield(sampling.Node{}, fmt.Errorf("%w: %s", sampling.ErrNodeNotFound, id))
			return
		}
		rels := e.in
		if dir == sampling.Outgoing {
			rels = e.out
		}
		for _, r := range rels {
			if !types.Matches(r.typ) {
				continue
			}
			other, ok := g.nodes.Get(key(r.other))
			if !ok {
				continue
			}
			if !yield(other.node, nil) {
				return
			}
		}
	}
}

// NodeIDs implements sampling.Graph. Ids are yielded in ascending order.
func (g *Graph) NodeIDs(ctx context.Context, labels sampling.Filter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		g.nodes.Scan(func(e *entry) bool {
			if !labels.MatchesAny(e.node.Labels) {
				return true
			}
			return yield(e.node.ID, nil)
		})
	}
}

func key(id string) *entry {
	return &entry{node: sampling.Node{ID: id}}
}
