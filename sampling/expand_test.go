package sampling_test

import (
	"context"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/memgraph"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// countingGraph records how often each node's relationships are read.
type countingGraph struct {
	sampling.Graph
	calls map[string]int
}

func (c *countingGraph) Neighbors(ctx context.Context, id string, dir sampling.Direction, types sampling.Filter) iter.Seq2[sampling.Node, error] {
	c.calls[id]++
	return c.Graph.Neighbors(ctx, id, dir, types)
}

func seededTable(t *testing.T, g sampling.Graph, ids ...string) *sampling.IndexTable {
	t.Helper()
	table := sampling.NewIndexTable(0)
	for _, n := range mustResolve(t, g, ids...) {
		table.GetOrInsert(n)
	}
	return table
}

func TestNeighborExpander_LinksButDoesNotReexpand(t *testing.T) {
	g := memgraph.New()
	for _, id := range []string{"A", "B", "C", "E", "F"} {
		g.AddNode(id, []string{"Paper"}, map[string]any{"x": 1.0})
	}
	for _, e := range [][2]string{{"B", "A"}, {"C", "A"}, {"A", "B"}, {"E", "B"}, {"F", "C"}} {
		require.NoError(t, g.AddEdge(e[0], e[1], "CITES"))
	}
	cfg := mustConfig(t, []string{"x"}, sampling.WithFanouts(10, 10))
	table := seededTable(t, g, "A")

	cg := &countingGraph{Graph: g, calls: map[string]int{}}
	adj, err := sampling.NeighborExpander{Graph: cg, Config: cfg, Rand: sampling.NewRandomSource(1)}.
		Expand(context.Background(), table)
	require.NoError(t, err)

	// Index order: A=0, B=1, C=2, E=3, F=4.
	assert.Equal(t, []int64{1, 2, 0, 3, 4}, adj.Src)
	assert.Equal(t, []int64{0, 0, 1, 1, 2}, adj.Dst)
	assert.Equal(t, 5, table.Len())

	// A was linked from B at hop 1 but expanded only at hop 0.
	assert.Equal(t, 1, cg.calls["A"])
	// E and F joined at the last hop and are never expanded.
	assert.Zero(t, cg.calls["E"])
	assert.Zero(t, cg.calls["F"])
}

func TestNeighborExpander_EveryNodeExpandedAtMostOnce(t *testing.T) {
	g := ringGraph(t, 40, 4)
	cfg := mustConfig(t, []string{"features"}, sampling.WithFanouts(2, 3, 3))
	table := seededTable(t, g, ringID(0), ringID(20))

	cg := &countingGraph{Graph: g, calls: map[string]int{}}
	_, err := sampling.NeighborExpander{Graph: cg, Config: cfg, Rand: sampling.NewRandomSource(5)}.
		Expand(context.Background(), table)
	require.NoError(t, err)
	for id, n := range cg.calls {
		assert.Equal(t, 1, n, "node %s expanded %d times", id, n)
	}
}

func TestNeighborExpander_EdgeBound(t *testing.T) {
	g := ringGraph(t, 50, 6)
	// Hop 0 uses 2, hop 1 uses 3.
	cfg := mustConfig(t, []string{"features"}, sampling.WithFanouts(3, 2))
	seeds := []string{ringID(0), ringID(10), ringID(20), ringID(30)}
	table := seededTable(t, g, seeds...)

	adj, err := sampling.NeighborExpander{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(11)}.
		Expand(context.Background(), table)
	require.NoError(t, err)

	hop0 := 0
	perDst := map[int64]int{}
	for i := range adj.Len() {
		perDst[adj.Dst[i]]++
		if adj.Dst[i] < int64(len(seeds)) {
			hop0++
		}
	}
	// Every seed has six neighbors, so hop 0 fills its fan-out exactly.
	assert.Equal(t, len(seeds)*2, hop0)
	for dst, n := range perDst {
		if dst < int64(len(seeds)) {
			assert.LessOrEqual(t, n, 2)
		} else {
			assert.LessOrEqual(t, n, 3)
		}
	}
	newAtHop0 := table.Len() - len(seeds)
	assert.LessOrEqual(t, adj.Len(), len(seeds)*2+newAtHop0*3)
	for i := range adj.Len() {
		assert.Less(t, adj.Src[i], int64(table.Len()))
		assert.Less(t, adj.Dst[i], int64(table.Len()))
	}
}

func TestNeighborExpander_FanoutOrder(t *testing.T) {
	g := ringGraph(t, 30, 5)
	cfg := mustConfig(t, []string{"features"}, sampling.WithFanouts(1, 3))
	table := seededTable(t, g, ringID(0))

	adj, err := sampling.NeighborExpander{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(2)}.
		Expand(context.Background(), table)
	require.NoError(t, err)

	toSeed := 0
	for _, d := range adj.Dst {
		if d == 0 {
			toSeed++
		}
	}
	assert.Equal(t, 3, toSeed, "innermost hop uses the last fan-out")
	assert.Equal(t, 6, adj.Len())
}

func TestNeighborExpander_ZeroFanout(t *testing.T) {
	g := scenarioGraph(t)
	cfg := mustConfig(t, []string{"x"}, sampling.WithFanouts(0))
	table := seededTable(t, g, "A")

	adj, err := sampling.NeighborExpander{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(2)}.
		Expand(context.Background(), table)
	require.NoError(t, err)
	assert.Zero(t, adj.Len())
	assert.Equal(t, 1, table.Len())
}
