package neosage

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

func TestPersistenceManager_NodeIDs(t *testing.T) {
	db := &fakeDB{answers: []*neo4j.EagerResult{
		{Records: []*neo4j.Record{idRecord("1"), idRecord("2")}},
		{Records: []*neo4j.Record{idRecord("2"), idRecord("3")}},
	}}
	pm := NewPersistenceManager(db)

	ids, err := pm.NodeIDs(context.Background(), sampling.OneOf("TRAIN", "Paper"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
	require.Len(t, db.queries, 2)
	assert.Equal(t, "MATCH (n:`Paper`) RETURN elementId(n) AS id", db.queries[0].query)
	assert.Equal(t, "MATCH (n:`TRAIN`) RETURN elementId(n) AS id", db.queries[1].query)

	db = &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{idRecord("9")}}}}
	ids, err = NewPersistenceManager(db).NodeIDs(context.Background(), sampling.MatchAny())
	require.NoError(t, err)
	assert.Equal(t, []string{"9"}, ids)
	require.Len(t, db.queries, 1)
	assert.Equal(t, allIDsQuery, db.queries[0].query)
}

func TestPersistenceManager_NodeIDsQuotesLabels(t *testing.T) {
	db := &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{idRecord("7")}}}}

	ids, err := NewPersistenceManager(db).NodeIDs(context.Background(), sampling.OneOf("my-label", "odd`name"))
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)
	require.Len(t, db.queries, 2)
	assert.Equal(t, "MATCH (n:`my-label`) RETURN elementId(n) AS id", db.queries[0].query)
	assert.Equal(t, "MATCH (n:`odd``name`) RETURN elementId(n) AS id", db.queries[1].query)
}

func TestPersistenceManager_NodeIDsBadRecord(t *testing.T) {
	db := &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{nodeRecord("n", paper("1", 0))}}}}
	_, err := NewPersistenceManager(db).NodeIDs(context.Background(), sampling.MatchAny())
	assert.Error(t, err)
}

func TestPersistenceManager_CreateRelation(t *testing.T) {
	db := &fakeDB{}
	pm := NewPersistenceManager(db)

	a, b := &taggedPaper{PaperID: 1}, &taggedPaper{PaperID: 2}
	require.NoError(t, pm.CreateRelation(context.Background(), a, b, "CITES", map[string]any{"weight": 1.0}))
	require.Len(t, db.queries, 1)
	assert.Contains(t, db.queries[0].query, "CITES")

	assert.Error(t, pm.CreateRelation(context.Background(), *a, b, "CITES", nil))
}

func TestPersistenceManager_LoadGraph(t *testing.T) {
	rel := func(id, from, to string) neo4j.Relationship {
		return neo4j.Relationship{ElementId: id, StartElementId: from, EndElementId: to, Type: "CITES"}
	}
	db := &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{
		{Keys: []string{"a", "r", "b"}, Values: []any{paper("B", 1), rel("r1", "B", "A"), paper("A", 1)}},
		{Keys: []string{"a", "r", "b"}, Values: []any{paper("C", 1), rel("r2", "C", "A"), paper("A", 1)}},
		{Keys: []string{"a", "r", "b"}, Values: []any{paper("C", 1), rel("r2", "C", "A"), paper("A", 1)}},
	}}}}
	pm := NewPersistenceManager(db)

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", "Paper"), gocypher.R("r", "CITES").To(), gocypher.N("b", "Paper")).
		Return("a", "r", "b")
	g, err := pm.LoadGraph(context.Background(), qb)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
	assert.Equal(t, 2, g.EdgeCount())

	var citers []string
	for n, err := range g.Neighbors(context.Background(), "A", sampling.Incoming, sampling.MatchAny()) {
		require.NoError(t, err)
		citers = append(citers, n.ID)
	}
	assert.Equal(t, []string{"B", "C"}, citers)

	_, err = NewPersistenceManager(&fakeDB{}).LoadGraph(context.Background(), qb)
	assert.ErrorIs(t, err, ErrNotFound)

	dangling := &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{
		{Keys: []string{"r"}, Values: []any{rel("r9", "X", "Y")}},
	}}}}
	_, err = NewPersistenceManager(dangling).LoadGraph(context.Background(), qb)
	assert.ErrorIs(t, err, sampling.ErrNodeNotFound)
}

func TestPersistenceManager_LoadCypherSkipsNulls(t *testing.T) {
	db := &fakeDB{answers: []*neo4j.EagerResult{{Records: []*neo4j.Record{
		{Keys: []string{"a", "r", "b"}, Values: []any{paper("A", 1), nil, nil}},
		{Keys: []string{"a", "r", "b"}, Values: []any{paper("B", 1), neo4j.Relationship{ElementId: "r1", StartElementId: "B", EndElementId: "A", Type: "CITES"}, paper("A", 1)}},
	}}}}
	g, err := NewPersistenceManager(db).LoadCypher(context.Background(), "MATCH (a) OPTIONAL MATCH (a)-[r]->(b) RETURN a, r, b", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())
	assert.Equal(t, 1, g.EdgeCount())
}
