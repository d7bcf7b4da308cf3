package neosage

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapNodeToStruct_Converts(t *testing.T) {
	meta, err := parseTags[taggedPaper]()
	require.NoError(t, err)

	node := neo4j.Node{Props: map[string]any{
		"id":       int64(7),
		"label":    int64(3),
		"features": []any{0.5, int64(1)},
		"year":     int64(2001),
	}}
	var p taggedPaper
	require.NoError(t, mapNodeToStruct(node, &p, meta))
	assert.Equal(t, taggedPaper{PaperID: 7, Subject: 3, Features: []float64{0.5, 1}, Year: 2001}, p)

	bad := neo4j.Node{Props: map[string]any{"features": []any{"x"}}}
	assert.Error(t, mapNodeToStruct(bad, &p, meta))
}

func TestRepository_FindByID(t *testing.T) {
	db := &fakeDB{answers: []*neo4j.EagerResult{{
		Records: []*neo4j.Record{nodeRecord("n", neo4j.Node{
			ElementId: "4:x:7",
			Labels:    []string{"Paper"},
			Props:     map[string]any{"id": int64(7), "features": []any{1.0, 2.0}},
		})},
	}}}
	repo, err := NewRepository[taggedPaper](db)
	require.NoError(t, err)

	p, err := repo.FindByID(context.Background(), int64(7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.PaperID)
	assert.Equal(t, []float64{1, 2}, p.Features)
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].query, "Paper")

	_, err = repo.FindByID(context.Background(), int64(8))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_ElementIDAndFindAll(t *testing.T) {
	n1 := neo4j.Node{ElementId: "4:x:1", Props: map[string]any{"id": int64(1)}}
	n2 := neo4j.Node{ElementId: "4:x:2", Props: map[string]any{"id": int64(2)}}
	db := &fakeDB{answers: []*neo4j.EagerResult{
		{Records: []*neo4j.Record{nodeRecord("n", n1)}},
		{Records: []*neo4j.Record{nodeRecord("n", n1), nodeRecord("n", n2)}},
		{Records: []*neo4j.Record{nodeRecord("n", n1), nodeRecord("n", n2)}},
	}}
	repo, err := NewRepository[taggedPaper](db)
	require.NoError(t, err)

	id, err := repo.ElementID(context.Background(), int64(1))
	require.NoError(t, err)
	assert.Equal(t, "4:x:1", id)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[1].PaperID)

	// A primary key matching two nodes is an integrity error.
	_, err = repo.ElementID(context.Background(), int64(1))
	assert.Error(t, err)
}

func TestRepository_SaveAndDelete(t *testing.T) {
	db := &fakeDB{}
	repo, err := NewRepository[taggedPaper](db)
	require.NoError(t, err)

	require.NoError(t, repo.Save(context.Background(), &taggedPaper{PaperID: 1, Features: []float64{1}}))
	require.NoError(t, repo.Delete(context.Background(), int64(1)))
	require.Len(t, db.queries, 2)
	assert.Contains(t, db.queries[0].query, "MERGE")
	assert.Contains(t, db.queries[1].query, "DETACH DELETE")

	db.err = errors.New("unavailable")
	assert.Error(t, repo.Save(context.Background(), &taggedPaper{PaperID: 2}))
}
