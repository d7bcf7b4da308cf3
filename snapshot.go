package neosage

import (
	"context"
	"fmt"
	"iter"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

const (
	nodeQuery = `MATCH (n) WHERE elementId(n) = $id RETURN n`

	incomingQuery      = `MATCH (m)-[r]->(n) WHERE elementId(n) = $id RETURN m`
	incomingTypedQuery = `MATCH (m)-[r]->(n) WHERE elementId(n) = $id AND type(r) IN $types RETURN m`
	outgoingQuery      = `MATCH (n)-[r]->(m) WHERE elementId(n) = $id RETURN m`
	outgoingTypedQuery = `MATCH (n)-[r]->(m) WHERE elementId(n) = $id AND type(r) IN $types RETURN m`

	allIDsQuery      = `MATCH (n) RETURN elementId(n) AS id`
	labelledIDsQuery = `MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels) RETURN elementId(n) AS id`
)

// recordStream is the part of neo4j.ResultWithContext the snapshot graph reads.
type recordStream interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// cypherRunner runs one query inside an open transaction.
type cypherRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (recordStream, error)
}

type managedRunner struct {
	tx neo4j.ManagedTransaction
}

func (r managedRunner) Run(ctx context.Context, cypher string, params map[string]any) (recordStream, error) {
	res, err := r.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// txGraph is a sampling.Graph bound to one transaction. Records are streamed, so
// neighbor sampling holds only its reservoir in memory whatever the node degree.
type txGraph struct {
	run cypherRunner
}

func newTxGraph(run cypherRunner) *txGraph {
	return &txGraph{run: run}
}

// Node implements sampling.Graph.
func (g *txGraph) Node(ctx context.Context, id string) (sampling.Node, error) {
	res, err := g.run.Run(ctx, nodeQuery, map[string]any{"id": id})
	if err != nil {
		return sampling.Node{}, fmt.Errorf("could not look up node %s: %w", id, err)
	}
	if !res.Next(ctx) {
		if err := res.Err(); err != nil {
			return sampling.Node{}, fmt.Errorf("could not look up node %s: %w", id, err)
		}
		return sampling.Node{}, fmt.Errorf("%w: %s", sampling.ErrNodeNotFound, id)
	}
	return nodeFromRecord(res.Record(), "n")
}

// Neighbors implements sampling.Graph.
func (g *txGraph) Neighbors(ctx context.Context, id string, dir sampling.Direction, types sampling.Filter) iter.Seq2[sampling.Node, error] {
	params := map[string]any{"id": id}
	query := incomingQuery
	switch {
	case dir == sampling.Outgoing && types.IsAny():
		query = outgoingQuery
	case dir == sampling.Outgoing:
		query = outgoingTypedQuery
	case !types.IsAny():
		query = incomingTypedQuery
	}
	if !types.IsAny() {
		params["types"] = types.Names()
	}

	return func(yield func(sampling.Node, error) bool) {
		res, err := g.run.Run(ctx, query, params)
		if err != nil {
			yield(sampling.Node{}, fmt.Errorf("could not read %s neighbors of %s: %w", dir, id, err))
			return
		}
		for res.Next(ctx) {
			n, err := nodeFromRecord(res.Record(), "m")
			if !yield(n, err) || err != nil {
				return
			}
		}
		if err := res.Err(); err != nil {
			yield(sampling.Node{}, fmt.Errorf("could not read %s neighbors of %s: %w", dir, id, err))
		}
	}
}

// NodeIDs implements sampling.Graph.
func (g *txGraph) NodeIDs(ctx context.Context, labels sampling.Filter) iter.Seq2[string, error] {
	query, params := allIDsQuery, map[string]any(nil)
	if !labels.IsAny() {
		query, params = labelledIDsQuery, map[string]any{"labels": labels.Names()}
	}

	return func(yield func(string, error) bool) {
		res, err := g.run.Run(ctx, query, params)
		if err != nil {
			yield("", fmt.Errorf("could not enumerate nodes %s: %w", labels, err))
			return
		}
		for res.Next(ctx) {
			id, err := recordID(res.Record())
			if err != nil {
				yield("", err)
				return
			}
			if !yield(id, nil) {
				return
			}
		}
		if err := res.Err(); err != nil {
			yield("", fmt.Errorf("could not enumerate nodes %s: %w", labels, err))
		}
	}
}

// recordID reads the element id returned as "id".
func recordID(record *neo4j.Record) (string, error) {
	v, ok := record.Get("id")
	id, isString := v.(string)
	if !ok || !isString {
		return "", fmt.Errorf("return value 'id' is not a string")
	}
	return id, nil
}

// nodeFromRecord converts the node returned under key into a sampling.Node.
func nodeFromRecord(record *neo4j.Record, key string) (sampling.Node, error) {
	node, err := recordNode(record, key)
	if err != nil {
		return sampling.Node{}, err
	}
	return toSamplingNode(node), nil
}

func toSamplingNode(n neo4j.Node) sampling.Node {
	return sampling.Node{ID: n.ElementId, Labels: n.Labels, Props: n.Props}
}
