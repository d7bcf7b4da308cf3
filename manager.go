package neosage

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/memgraph"
	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// PersistenceManager is the central orchestrator for the persistence layer.
// It provides access to repositories and to cross-entity operations: creating
// relationships, enumerating training nodes and loading subgraphs into memory.
type PersistenceManager struct {
	runner DBRunner
	// metaCache stores parsed entityMetadata to avoid costly reflection on every call.
	metaCache sync.Map
}

// NewPersistenceManager creates a new instance of the PersistenceManager.
func NewPersistenceManager(runner DBRunner) *PersistenceManager {
	return &PersistenceManager{runner: runner}
}

// RepositoryFor is a generic function that creates and returns a repository
// for a specific struct type T, managed by the given PersistenceManager.
func RepositoryFor[T any](pm *PersistenceManager) (*Repository[T], error) {
	return NewRepository[T](pm.runner)
}

// CreateRelation creates a directed relationship between two existing entities in the database.
// It uses reflection to find the entities' primary keys and labels to build the query.
func (pm *PersistenceManager) CreateRelation(ctx context.Context, fromEntity any, toEntity any, relType string, relProps map[string]any) error {
	fromMeta, fromPKVal, err := pm.getEntityMetaAndPK(fromEntity)
	if err != nil {
		return err
	}
	toMeta, toPKVal, err := pm.getEntityMetaAndPK(toEntity)
	if err != nil {
		return err
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", fromMeta.Label).WithProperties(map[string]any{fromMeta.PKProp: fromPKVal})).
		Match(gocypher.N("b", toMeta.Label).WithProperties(map[string]any{toMeta.PKProp: toPKVal})).
		Create(
			gocypher.N("a", ""), // Reference the 'a' alias without its label
			gocypher.R("r", relType).To().WithProperties(relProps),
			gocypher.N("b", ""),
		)

	query, params, err := qb.Build()
	if err != nil {
		return err
	}

	_, err = pm.runner.Run(ctx, query, params)
	return err
}

// NodeIDs returns the element ids of the nodes carrying a label accepted by labels,
// in store order, without duplicates. It is how a training node set is listed.
// Only ids cross the wire; labels are quoted so any label name is accepted.
func (pm *PersistenceManager) NodeIDs(ctx context.Context, labels sampling.Filter) ([]string, error) {
	queries := []string{allIDsQuery}
	if !labels.IsAny() {
		queries = queries[:0]
		for _, label := range labels.Names() {
			queries = append(queries, "MATCH (n"+labelPattern([]string{label})+") RETURN elementId(n) AS id")
		}
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, query := range queries {
		eagerResult, err := pm.runner.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		for _, record := range eagerResult.Records {
			id, err := recordID(record)
			if err != nil {
				return nil, err
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// LoadGraph executes a graph query defined by a gocypher.QueryBuilder and copies the
// nodes and relationships it returns into an in-memory graph, which can then be
// sampled without a database round trip per hop.
//
// The caller is responsible for a RETURN clause naming the nodes and relationships
// to keep, for example `RETURN a, r, b`. Elements returned by several records are
// stored once. Every relationship must have both endpoints in the result.
func (pm *PersistenceManager) LoadGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*memgraph.Graph, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}
	return pm.LoadCypher(ctx, query, params)
}

// LoadCypher is LoadGraph for a raw Cypher query. Null values, as produced by
// OPTIONAL MATCH, are skipped.
func (pm *PersistenceManager) LoadCypher(ctx context.Context, query string, params map[string]any) (*memgraph.Graph, error) {
	eagerResult, err := pm.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	g := memgraph.New()
	seenNodes := make(map[string]bool)
	seenRels := make(map[string]bool)
	var rels []neo4j.Relationship

	// Nodes first, so relationships can reference endpoints from any record.
	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if !seenNodes[v.ElementId] {
					g.AddNode(v.ElementId, v.Labels, v.Props)
					seenNodes[v.ElementId] = true
				}
			case neo4j.Relationship:
				if !seenRels[v.ElementId] {
					rels = append(rels, v)
					seenRels[v.ElementId] = true
				}
			}
		}
	}
	for _, r := range rels {
		if err := g.AddEdge(r.StartElementId, r.EndElementId, r.Type); err != nil {
			return nil, fmt.Errorf("relationship %s: %w", r.ElementId, err)
		}
	}
	return g, nil
}

// getEntityMetaAndPK is an internal helper that retrieves an entity's metadata and primary key value.
// It uses a cache to optimize performance by avoiding repeated reflection.
func (pm *PersistenceManager) getEntityMetaAndPK(entity any) (*entityMetadata, any, error) {
	val := reflect.ValueOf(entity)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return nil, nil, fmt.Errorf("entity must be a non-nil pointer")
	}

	typ := val.Elem().Type()

	if cached, ok := pm.metaCache.Load(typ); ok {
		meta := cached.(*entityMetadata)
		pkValue := val.Elem().FieldByName(meta.PKField).Interface()
		return meta, pkValue, nil
	}

	meta, err := parseTagsFromType(typ)
	if err != nil {
		return nil, nil, err
	}
	pm.metaCache.Store(typ, meta)

	pkValue := val.Elem().FieldByName(meta.PKField).Interface()
	return meta, pkValue, nil
}
