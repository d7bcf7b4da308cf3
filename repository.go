package neosage

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// ErrNotFound is a sentinel error returned by Find operations when no record
// matching the criteria is found in the database.
var ErrNotFound = errors.New("record not found")

// Repository provides a generic abstraction for CRUD operations for a specific
// entity type T. It relies on struct tags to map struct fields to node properties.
type Repository[T any] struct {
	runner DBRunner
	meta   *entityMetadata
}

// NewRepository creates a new generic repository for the type T.
// It parses the struct tags of T to understand its mapping to a Neo4j node.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all Cypher queries.
//
// Returns:
//
//	A new Repository instance or an error if the struct tags are invalid.
func NewRepository[T any](runner DBRunner) (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		runner: runner,
		meta:   meta,
	}, nil
}

// Save creates a new node or updates an existing one.
// It uses a MERGE query based on the struct's primary key (`pk` tag).
// All other tagged fields are set on the node.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - entity: A pointer to the struct instance to be saved.
//
// Returns:
//
//	An error if the query building or execution fails.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	val := reflect.ValueOf(entity).Elem()
	pkValue := val.FieldByName(r.meta.PKField).Interface()
	mergeProps := map[string]any{r.meta.PKProp: pkValue}

	setProps := make(map[string]any)
	for fieldName, propName := range r.meta.Mappings {
		if fieldName != r.meta.PKField {
			// The property is prefixed with 'n.' for the SET clause.
			setProps["n."+propName] = val.FieldByName(fieldName).Interface()
		}
	}

	qb := gocypher.NewQueryBuilder().
		Merge(gocypher.N("n", r.meta.Label).WithProperties(mergeProps)).
		Set(setProps).
		Return("n")

	query, params, err := qb.Build()
	if err != nil {
		return err
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// FindByID retrieves a single entity from the database by its primary key.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - id: The primary key value of the entity to find.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no record is found, or another
//	error if the query or mapping fails.
func (r *Repository[T]) FindByID(ctx context.Context, id any) (*T, error) {
	node, err := r.findNode(ctx, id)
	if err != nil {
		return nil, err
	}

	// Map the node properties to a new struct instance.
	entity := new(T)
	if err := mapNodeToStruct(node, entity, r.meta); err != nil {
		return nil, err
	}
	return entity, nil
}

// findNode matches the single node of T with primary key id.
func (r *Repository[T]) findNode(ctx context.Context, id any) (neo4j.Node, error) {
	props := map[string]any{r.meta.PKProp: id}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		Return("n").
		Build()
	if err != nil {
		return neo4j.Node{}, err
	}

	// The result is an EagerResult, which contains a slice of all records.
	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return neo4j.Node{}, err
	}

	if len(eagerResult.Records) == 0 {
		return neo4j.Node{}, ErrNotFound
	}
	if len(eagerResult.Records) > 1 {
		// This indicates a data integrity issue, as a primary key lookup should be unique.
		return neo4j.Node{}, fmt.Errorf("expected 1 record but found %d", len(eagerResult.Records))
	}
	return recordNode(eagerResult.Records[0], "n")
}

// ElementID returns the Neo4j element id of the node with the given primary key.
// Sampling addresses nodes by element id, so this is how domain keys become seeds.
func (r *Repository[T]) ElementID(ctx context.Context, id any) (string, error) {
	node, err := r.findNode(ctx, id)
	if err != nil {
		return "", err
	}
	return node.ElementId, nil
}

// FindAll retrieves every entity stored under the label of T.
func (r *Repository[T]) FindAll(ctx context.Context) ([]*T, error) {
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label)).
		Return("n").
		Build()
	if err != nil {
		return nil, err
	}
	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(eagerResult.Records))
	for _, record := range eagerResult.Records {
		node, err := recordNode(record, "n")
		if err != nil {
			return nil, err
		}
		entity := new(T)
		if err := mapNodeToStruct(node, entity, r.meta); err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// Delete removes a node from the database by its primary key.
// It uses a DETACH DELETE query to also remove any relationships connected to the node.
//
// Parameters:
//   - ctx: The context for the query execution.
//   - id: The primary key value of the entity to delete.
//
// Returns:
//
//	An error if the query building or execution fails.
func (r *Repository[T]) Delete(ctx context.Context, id any) error {
	props := map[string]any{r.meta.PKProp: id}
	query, params, err := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		DetachDelete("n").
		Build()
	if err != nil {
		return err
	}
	_, err = r.runner.Run(ctx, query, params)
	return err
}

// recordNode extracts the node returned under key.
func recordNode(record *neo4j.Record, key string) (neo4j.Node, error) {
	v, ok := record.Get(key)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("could not find return value '%s' in query result", key)
	}
	node, ok := v.(neo4j.Node)
	if !ok {
		return neo4j.Node{}, fmt.Errorf("return value '%s' is not a node", key)
	}
	return node, nil
}

// mapNodeToStruct is an internal helper function that populates a struct's fields
// from a neo4j.Node's properties, based on the parsed metadata.
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue // Skip if the struct field cannot be set.
		}

		propValue, ok := node.Props[propName]
		if !ok || propValue == nil {
			continue // Skip if the property does not exist on the node.
		}

		converted, err := convertValue(reflect.ValueOf(propValue), field.Type())
		if err != nil {
			return fmt.Errorf("could not map property '%s' to field %s: %w", propName, fieldName, err)
		}
		field.Set(converted)
	}
	return nil
}

// convertValue converts a decoded property value to the field type. The driver
// decodes integers as int64, floats as float64 and lists as []any, so numeric
// widths and list element types are converted here.
func convertValue(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if to.Kind() == reflect.Slice && v.Kind() == reflect.Slice {
		out := reflect.MakeSlice(to, v.Len(), v.Len())
		for i := range v.Len() {
			e, err := convertValue(v.Index(i), to.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(e)
		}
		return out, nil
	}
	if isNumber(v.Kind()) && isNumber(to.Kind()) {
		return v.Convert(to), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", v.Type(), to)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
