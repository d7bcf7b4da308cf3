package sampling_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/memgraph"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// scenarioGraph is the graph B->A, C->A, D->A with x=1.0 on every node.
func scenarioGraph(t *testing.T) *memgraph.Graph {
	t.Helper()
	g := memgraph.New()
	for _, id := range []string{"A", "B", "C", "D"} {
		g.AddNode(id, []string{"Paper"}, map[string]any{"x": 1.0})
	}
	for _, src := range []string{"B", "C", "D"} {
		require.NoError(t, g.AddEdge(src, "A", "CITES"))
	}
	return g
}

// ringGraph builds n nodes where node i has incoming edges from the next fanIn nodes
// around a ring, each carrying a two-element feature vector.
func ringGraph(t *testing.T, n, fanIn int) *memgraph.Graph {
	t.Helper()
	g := memgraph.New()
	for i := range n {
		g.AddNode(ringID(i), []string{"Paper"}, map[string]any{
			"features": []any{float64(i), float64(i * 2)},
		})
	}
	for i := range n {
		for j := 1; j <= fanIn; j++ {
			require.NoError(t, g.AddEdge(ringID((i+j)%n), ringID(i), "CITES"))
		}
	}
	return g
}

func ringID(i int) string { return fmt.Sprintf("n%03d", i) }

func mustConfig(t *testing.T, features []string, opts ...sampling.Option) sampling.Config {
	t.Helper()
	cfg, err := sampling.NewConfig(features, opts...)
	require.NoError(t, err)
	return cfg
}

func mustResolve(t *testing.T, g sampling.Graph, ids ...string) []sampling.Node {
	t.Helper()
	nodes, err := sampling.Resolve(context.Background(), g, ids)
	require.NoError(t, err)
	return nodes
}
