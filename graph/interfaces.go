// Package graph is the Neo4j provider: the driver-backed query executor,
// the reflection serializer, entity CRUD, transactions, and the fluent
// queryables built on the query compilation core.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

//go:generate mockgen -destination=mocks/mock_graph.go -package=graph_mocks -typed github.com/neogm/neogm/graph Executor

// Executor runs Cypher statements against a Neo4j database. Everything
// above the executor is deterministic compilation; everything below it is
// the driver. Tests substitute a generated mock.
type Executor interface {
	ExecuteReadQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)
	ExecuteWriteQuery(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error)
}

// TxBeginner is implemented by executors that support explicit
// transactions. The graph layer uses it to group multi-statement
// operations when the caller did not supply a transaction.
type TxBeginner interface {
	BeginTransaction(ctx context.Context) (*Transaction, error)
}
