package sampling_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// poolOverride replaces the negative pool of an otherwise real graph.
type poolOverride struct {
	sampling.Graph
	ids []string
	err error
}

func (p poolOverride) NodeIDs(ctx context.Context, labels sampling.Filter) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if p.err != nil {
			yield("", p.err)
			return
		}
		for _, id := range p.ids {
			if !yield(id, nil) {
				return
			}
		}
	}
}

func TestEdgeSetBuilder_Scenario(t *testing.T) {
	g := scenarioGraph(t)
	cfg := mustConfig(t, []string{"x"}, sampling.WithFanouts(2), sampling.WithNegativesPerSeed(1))

	for seed := int64(1); seed <= 50; seed++ {
		table := sampling.NewIndexTable(0)
		b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(seed)}
		ext, err := b.Build(context.Background(), table, mustResolve(t, g, "A"))
		require.NoError(t, err)

		assert.Equal(t, "A", table.At(0).ID)
		require.Equal(t, []int64{1}, ext.Positive.Src)
		require.Equal(t, []int64{0}, ext.Positive.Dst)
		assert.Contains(t, []string{"B", "C", "D"}, table.At(1).ID)

		require.Equal(t, 1, ext.Negative.Len())
		assert.Equal(t, []int64{0}, ext.Negative.Dst)
		negIdx := int(ext.Negative.Src[0])
		require.Less(t, negIdx, table.Len())
		if negIdx == 2 {
			assert.Equal(t, 3, table.Len())
		} else {
			// The negative collided with the seed or the positive.
			assert.Equal(t, 2, table.Len())
		}
		assert.Len(t, ext.Nodes, table.Len())
	}
}

func TestEdgeSetBuilder_TableGrowsByDistinctPicks(t *testing.T) {
	g := ringGraph(t, 12, 3)
	cfg := mustConfig(t, []string{"features"}, sampling.WithNegativesPerSeed(4))
	seeds := mustResolve(t, g, ringID(0), ringID(1), ringID(2), ringID(3), ringID(4))

	table := sampling.NewIndexTable(0)
	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(3)}
	ext, err := b.Build(context.Background(), table, seeds)
	require.NoError(t, err)

	require.Equal(t, len(seeds), ext.Positive.Len())
	require.Equal(t, len(seeds)*4, ext.Negative.Len())

	distinct := map[string]struct{}{}
	for _, s := range seeds {
		distinct[s.ID] = struct{}{}
	}
	for _, idx := range append(append([]int64{}, ext.Positive.Src...), ext.Negative.Src...) {
		distinct[table.At(int(idx)).ID] = struct{}{}
	}
	assert.Equal(t, len(distinct), table.Len())

	for i := range seeds {
		assert.Equal(t, int64(i), ext.Positive.Dst[i])
		for j := range 4 {
			assert.Equal(t, int64(i), ext.Negative.Dst[i*4+j])
		}
	}
}

func TestEdgeSetBuilder_DuplicateSeeds(t *testing.T) {
	g := scenarioGraph(t)
	cfg := mustConfig(t, []string{"x"}, sampling.WithNegativesPerSeed(0))

	table := sampling.NewIndexTable(0)
	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(9)}
	ext, err := b.Build(context.Background(), table, mustResolve(t, g, "A", "A"))
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 0}, ext.Positive.Dst)
	assert.Equal(t, 2, ext.Positive.Len())
}

func TestEdgeSetBuilder_NoCompliantNeighbor(t *testing.T) {
	g := scenarioGraph(t)
	tests := []struct {
		name string
		seed string
		opts []sampling.Option
	}{
		{"no incoming", "B", nil},
		{"label filter", "A", []sampling.Option{sampling.WithNodeLabels(sampling.OneOf("Author"))}},
		{"type filter", "A", []sampling.Option{sampling.WithRelationshipTypes(sampling.OneOf("LIKES"))}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := mustConfig(t, []string{"x"}, tc.opts...)
			b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(1)}
			_, err := b.Build(context.Background(), sampling.NewIndexTable(0), mustResolve(t, g, tc.seed))
			require.ErrorIs(t, err, sampling.ErrNoCompliantNeighbor)
		})
	}
}

func TestEdgeSetBuilder_EmptyNegativePool(t *testing.T) {
	g := poolOverride{Graph: scenarioGraph(t)}
	cfg := mustConfig(t, []string{"x"})

	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(1)}
	_, err := b.Build(context.Background(), sampling.NewIndexTable(0), mustResolve(t, g, "A"))
	require.ErrorIs(t, err, sampling.ErrEmptyNegativePool)
}

func TestEdgeSetBuilder_ZeroNegatives(t *testing.T) {
	// The pool is never enumerated when no negatives are requested.
	g := poolOverride{Graph: scenarioGraph(t), err: errors.New("pool must not be read")}
	cfg := mustConfig(t, []string{"x"}, sampling.WithNegativesPerSeed(0))

	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(1)}
	ext, err := b.Build(context.Background(), sampling.NewIndexTable(0), mustResolve(t, g, "A"))
	require.NoError(t, err)
	assert.Equal(t, 0, ext.Negative.Len())
	assert.Empty(t, ext.Negative.Src)
	assert.Empty(t, ext.Negative.Dst)
}

func TestEdgeSetBuilder_StoreError(t *testing.T) {
	boom := errors.New("boom")
	g := poolOverride{Graph: scenarioGraph(t), err: boom}
	cfg := mustConfig(t, []string{"x"})

	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(1)}
	_, err := b.Build(context.Background(), sampling.NewIndexTable(0), mustResolve(t, g, "A"))
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "store", sampling.Reason(err))
}

func TestEdgeSetBuilder_NoSeeds(t *testing.T) {
	b := sampling.EdgeSetBuilder{Graph: scenarioGraph(t), Config: mustConfig(t, []string{"x"}), Rand: sampling.NewRandomSource(1)}
	_, err := b.Build(context.Background(), sampling.NewIndexTable(0), nil)
	require.ErrorIs(t, err, sampling.ErrNoSeeds)
}

func TestEdgeSetBuilder_ManyNegatives(t *testing.T) {
	g := scenarioGraph(t)
	cfg := mustConfig(t, []string{"x"}, sampling.WithNegativesPerSeed(200_000))

	table := sampling.NewIndexTable(0)
	b := sampling.EdgeSetBuilder{Graph: g, Config: cfg, Rand: sampling.NewRandomSource(6)}
	ext, err := b.Build(context.Background(), table, mustResolve(t, g, "A", "A"))
	require.NoError(t, err)
	assert.Equal(t, 400_000, ext.Negative.Len())
	assert.LessOrEqual(t, table.Len(), 4)
}

func TestSample_LargeNegativeCountCancelled(t *testing.T) {
	g := scenarioGraph(t)
	cfg := mustConfig(t, []string{"x"}, sampling.WithNegativesPerSeed(sampling.MaxCount))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sampling.Sample(ctx, g, mustResolve(t, g, "A"), cfg, sampling.NewRandomSource(1))
	require.ErrorIs(t, err, context.Canceled)
}
