package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by single-result terminal operations when the
// query matched zero rows. List operations return an empty slice instead;
// callers rely on that distinction.
var ErrNotFound = errors.New("entity not found")

// ErrUnsupportedExpression is returned when a predicate, ordering key or
// projection cannot be translated to Cypher. Translation never degrades to
// a permissive filter.
var ErrUnsupportedExpression = errors.New("unsupported query expression")

// ValidationError reports a field constraint violation on an entity.
type ValidationError struct {
	EntityType string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed for %s: %s", e.EntityType, e.Reason)
	}
	return fmt.Sprintf("validation failed for %s.%s: %s", e.EntityType, e.Field, e.Reason)
}

// ConnectionError reports that the backing store was unreachable.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("graph connection failed: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// QueryError reports that the backing store rejected a compiled query.
// The query text and parameters are attached for diagnosis.
type QueryError struct {
	Query  string
	Params map[string]any
	Cause  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v (query: %s)", e.Cause, e.Query)
}

func (e *QueryError) Unwrap() error { return e.Cause }

// TransactionError reports a commit or rollback failure.
type TransactionError struct {
	Op    string
	Cause error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.Op, e.Cause)
}

func (e *TransactionError) Unwrap() error { return e.Cause }
