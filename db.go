// Package neosage samples GraphSAGE training batches out of a Neo4j graph and
// provides the persistence helpers used to load training graphs into it.
package neosage

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/saulfrancisco-ruizacevedo/go-neosage/sampling"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// GraphSource hands out consistent read snapshots of a graph.
type GraphSource interface {
	// View runs fn against one snapshot. Every read fn makes observes the same state.
	View(ctx context.Context, fn func(sampling.Graph) error) error
}

//---

// Neo4jExecutor is a concrete implementation of DBRunner and GraphSource that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// It establishes a connection driver with the provided credentials.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to (e.g., "neo4j").
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks the connectivity to the Neo4j database.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver and its connection pool.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query using ExecuteQuery, which handles session and
// transaction management automatically. It is used for writes and for small reads
// whose result fits in memory.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)

	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}

// View runs fn inside one managed read transaction, so every read fn makes sees the
// same snapshot. The driver may retry the transaction on transient failures and call
// fn again; fn must therefore derive all of its state, random generators included,
// from its own inputs.
func (e *Neo4jExecutor) View(ctx context.Context, fn func(sampling.Graph) error) error {
	session := e.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: e.DBName,
	})
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return nil, fn(newTxGraph(managedRunner{tx: tx}))
	})
	return err
}
