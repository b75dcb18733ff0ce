package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/neogm/neogm/core"
)

// Transaction is an explicit unit of work spanning multiple operations.
// Commit and Rollback settle it exactly once; Close is idempotent and
// rolls back a transaction that is still open, so a deferred Close is
// always safe.
type Transaction struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	log     *slog.Logger
	settled bool
	closed  bool
}

// Run executes a Cypher statement inside the transaction and collects
// all records.
func (t *Transaction) Run(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	if t.settled {
		return nil, &core.TransactionError{Op: "run", Cause: errSettled}
	}
	t.log.Debug("executing query in transaction", "query", query, "params", params)
	result, err := t.tx.Run(ctx, query, params)
	if err != nil {
		return nil, &core.QueryError{Query: query, Params: params, Cause: err}
	}
	records, err := result.Collect(ctx)
	if err != nil {
		return nil, &core.QueryError{Query: query, Params: params, Cause: err}
	}
	return records, nil
}

// Commit makes the transaction's writes durable.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.settled {
		return &core.TransactionError{Op: "commit", Cause: errSettled}
	}
	t.settled = true
	if err := t.tx.Commit(ctx); err != nil {
		return &core.TransactionError{Op: "commit", Cause: err}
	}
	return nil
}

// Rollback discards the transaction's writes.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.settled {
		return &core.TransactionError{Op: "rollback", Cause: errSettled}
	}
	t.settled = true
	if err := t.tx.Rollback(ctx); err != nil {
		return &core.TransactionError{Op: "rollback", Cause: err}
	}
	return nil
}

// Close settles the transaction if needed (by rolling back) and releases
// the underlying session. Calling Close more than once is a no-op.
func (t *Transaction) Close(ctx context.Context) error {
	if t.closed {
		return nil
	}
	t.closed = true
	if !t.settled {
		t.settled = true
		if err := t.tx.Rollback(ctx); err != nil {
			t.session.Close(ctx)
			return &core.TransactionError{Op: "rollback", Cause: err}
		}
	}
	if err := t.session.Close(ctx); err != nil {
		return &core.TransactionError{Op: "close", Cause: err}
	}
	return nil
}

var errSettled = errors.New("transaction already settled")
