package graph

import (
	"context"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/query"
	"github.com/neogm/neogm/schema"
)

// NodeQuery is a fluent, immutable query over nodes of type T. Every
// chaining method returns a fresh value, so a base query can branch into
// independent chains safely.
type NodeQuery[T core.Node] struct {
	g    *Graph
	meta *schema.EntityMetadata
	spec query.Spec
	tx   *Transaction
	err  error
}

// Nodes starts a query over nodes of type T.
func Nodes[T core.Node](g *Graph) NodeQuery[T] {
	var zero T
	meta, err := g.reg.Get(reflect.TypeOf(zero))
	return NodeQuery[T]{g: g, meta: meta, err: err}
}

// InTransaction binds the query's reads to an explicit transaction.
func (q NodeQuery[T]) InTransaction(tx *Transaction) NodeQuery[T] {
	q.tx = tx
	return q
}

// Where conjoins a predicate with any existing filter.
func (q NodeQuery[T]) Where(e query.Expr) NodeQuery[T] {
	q.spec = q.spec.WithFilter(e)
	return q
}

// OrderBy resets the ordering to ascending on the named attribute.
func (q NodeQuery[T]) OrderBy(field string) NodeQuery[T] {
	q.spec = q.spec.WithOrder(query.Asc(field))
	return q
}

// OrderByDesc resets the ordering to descending on the named attribute.
func (q NodeQuery[T]) OrderByDesc(field string) NodeQuery[T] {
	q.spec = q.spec.WithOrder(query.Desc(field))
	return q
}

// ThenBy appends a secondary ascending ordering.
func (q NodeQuery[T]) ThenBy(field string) NodeQuery[T] {
	q.spec = q.spec.WithThenBy(query.Asc(field))
	return q
}

// ThenByDesc appends a secondary descending ordering.
func (q NodeQuery[T]) ThenByDesc(field string) NodeQuery[T] {
	q.spec = q.spec.WithThenBy(query.Desc(field))
	return q
}

// Skip offsets the result window. Skip and Take are independent; call
// order does not matter.
func (q NodeQuery[T]) Skip(n int) NodeQuery[T] {
	q.spec = q.spec.WithSkip(n)
	return q
}

// Take caps the number of results.
func (q NodeQuery[T]) Take(n int) NodeQuery[T] {
	q.spec = q.spec.WithTake(n)
	return q
}

// Traverse restricts the query subject to nodes reached over the given
// traversal pattern.
func (q NodeQuery[T]) Traverse(t query.TraversalSpec) NodeQuery[T] {
	q.spec = q.spec.WithTraversal(t)
	return q
}

// WithDepth sets the hop range of a previously attached traversal.
func (q NodeQuery[T]) WithDepth(min, max int) NodeQuery[T] {
	q.spec = q.spec.WithDepth(min, max)
	return q
}

// ToList executes the query and returns all matches. An empty result is
// an empty slice, never an error.
func (q NodeQuery[T]) ToList(ctx context.Context) ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}
	stmt, err := query.NewBuilder(q.meta).Build(q.spec, true)
	if err != nil {
		return nil, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}
	return decodeNodeRecords[T](q.g.ser, q.meta, records)
}

// First returns the first match or core.ErrNotFound.
func (q NodeQuery[T]) First(ctx context.Context) (T, error) {
	var zero T
	results, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, fmt.Errorf("%s: %w", q.meta.Label, core.ErrNotFound)
	}
	return results[0], nil
}

// FirstOrNone returns the first match, or nil without error when nothing
// matched.
func (q NodeQuery[T]) FirstOrNone(ctx context.Context) (*T, error) {
	results, err := q.Take(1).ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Count returns the number of matches, bypassing ordering, pagination
// and complex-property loading.
func (q NodeQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	stmt, err := query.NewBuilder(q.meta).BuildCount(q.spec)
	if err != nil {
		return 0, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return 0, err
	}
	return scalarInt(records, "count")
}

// Any reports whether at least one node matches.
func (q NodeQuery[T]) Any(ctx context.Context) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	stmt, err := query.NewBuilder(q.meta).BuildExists(q.spec)
	if err != nil {
		return false, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return false, err
	}
	return scalarBool(records, "exists")
}

// All reports whether every matching node also satisfies pred. Vacuously
// true over an empty match set.
func (q NodeQuery[T]) All(ctx context.Context, pred query.Expr) (bool, error) {
	violating, err := q.Where(query.Not(pred)).Any(ctx)
	if err != nil {
		return false, err
	}
	return !violating, nil
}

// Select executes a projection query, returning one attribute map per
// match instead of whole entities.
func (q NodeQuery[T]) Select(ctx context.Context, p query.Projection) ([]map[string]any, error) {
	if q.err != nil {
		return nil, q.err
	}
	stmt, err := query.NewBuilder(q.meta).Build(q.spec.WithProjection(p), false)
	if err != nil {
		return nil, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record.Keys))
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row[key] = value
		}
		out = append(out, row)
	}
	return out, nil
}

// RelationshipQuery is a fluent, immutable query over relationships of
// type T.
type RelationshipQuery[T core.Relationship] struct {
	g    *Graph
	meta *schema.EntityMetadata
	spec query.Spec
	tx   *Transaction
	err  error
}

// Relationships starts a query over relationships of type T.
func Relationships[T core.Relationship](g *Graph) RelationshipQuery[T] {
	var zero T
	meta, err := g.reg.Get(reflect.TypeOf(zero))
	return RelationshipQuery[T]{g: g, meta: meta, err: err}
}

// InTransaction binds the query's reads to an explicit transaction.
func (q RelationshipQuery[T]) InTransaction(tx *Transaction) RelationshipQuery[T] {
	q.tx = tx
	return q
}

// Where conjoins a predicate over the relationship's own properties.
func (q RelationshipQuery[T]) Where(e query.Expr) RelationshipQuery[T] {
	q.spec = q.spec.WithFilter(e)
	return q
}

// WhereStartNode conjoins a predicate over the start node's properties.
func (q RelationshipQuery[T]) WhereStartNode(e query.Expr) RelationshipQuery[T] {
	q.spec = q.spec.WithStartFilter(e)
	return q
}

// WhereEndNode conjoins a predicate over the end node's properties.
func (q RelationshipQuery[T]) WhereEndNode(e query.Expr) RelationshipQuery[T] {
	q.spec = q.spec.WithEndFilter(e)
	return q
}

// OrderBy resets the ordering to ascending on the named attribute.
func (q RelationshipQuery[T]) OrderBy(field string) RelationshipQuery[T] {
	q.spec = q.spec.WithOrder(query.Asc(field))
	return q
}

// OrderByDesc resets the ordering to descending on the named attribute.
func (q RelationshipQuery[T]) OrderByDesc(field string) RelationshipQuery[T] {
	q.spec = q.spec.WithOrder(query.Desc(field))
	return q
}

// ThenBy appends a secondary ascending ordering.
func (q RelationshipQuery[T]) ThenBy(field string) RelationshipQuery[T] {
	q.spec = q.spec.WithThenBy(query.Asc(field))
	return q
}

// Skip offsets the result window.
func (q RelationshipQuery[T]) Skip(n int) RelationshipQuery[T] {
	q.spec = q.spec.WithSkip(n)
	return q
}

// Take caps the number of results.
func (q RelationshipQuery[T]) Take(n int) RelationshipQuery[T] {
	q.spec = q.spec.WithTake(n)
	return q
}

// ToList executes the query and returns all matches.
func (q RelationshipQuery[T]) ToList(ctx context.Context) ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}
	stmt, err := query.NewBuilder(q.meta).Build(q.spec, false)
	if err != nil {
		return nil, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for _, record := range records {
		props, err := relationshipProps(record, "r")
		if err != nil {
			return nil, err
		}
		var entity T
		if err := q.g.ser.Deserialize(props, nil, &entity); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// First returns the first match or core.ErrNotFound.
func (q RelationshipQuery[T]) First(ctx context.Context) (T, error) {
	var zero T
	results, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, err
	}
	if len(results) == 0 {
		return zero, fmt.Errorf("%s: %w", q.meta.Label, core.ErrNotFound)
	}
	return results[0], nil
}

// FirstOrNone returns the first match, or nil without error when nothing
// matched.
func (q RelationshipQuery[T]) FirstOrNone(ctx context.Context) (*T, error) {
	results, err := q.Take(1).ToList(ctx)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

// Count returns the number of matches.
func (q RelationshipQuery[T]) Count(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	stmt, err := query.NewBuilder(q.meta).BuildCount(q.spec)
	if err != nil {
		return 0, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return 0, err
	}
	return scalarInt(records, "count")
}

// Any reports whether at least one relationship matches.
func (q RelationshipQuery[T]) Any(ctx context.Context) (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	stmt, err := query.NewBuilder(q.meta).BuildExists(q.spec)
	if err != nil {
		return false, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return false, err
	}
	return scalarBool(records, "exists")
}

// decodeNodeRecords turns result rows into entities. Complex-property
// aliases fan out one row per collection element, so rows are grouped by
// subject id, first-seen order preserved, and each complex node counted
// once.
func decodeNodeRecords[T core.Node](ser *Serializer, meta *schema.EntityMetadata, records []*neo4j.Record) ([]T, error) {
	type subject struct {
		props   map[string]any
		related map[string][]map[string]any
		seen    map[string]bool
	}

	var order []string
	byID := make(map[string]*subject)

	for _, record := range records {
		props, err := nodeProps(record, "n")
		if err != nil {
			return nil, err
		}
		id, _ := props["id"].(string)
		sub, ok := byID[id]
		if !ok {
			sub = &subject{props: props, seen: make(map[string]bool)}
			byID[id] = sub
			order = append(order, id)
		}

		for _, fm := range meta.RelatedFields() {
			raw, ok := record.Get(fm.PropertyName)
			if !ok || raw == nil {
				continue
			}
			cpProps, err := valueProps(raw)
			if err != nil {
				continue
			}
			key := fmt.Sprintf("%s/%v", fm.PropertyName, cpProps["id"])
			if sub.seen[key] {
				continue
			}
			sub.seen[key] = true
			if sub.related == nil {
				sub.related = make(map[string][]map[string]any)
			}
			sub.related[fm.PropertyName] = append(sub.related[fm.PropertyName], cpProps)
		}
	}

	out := make([]T, 0, len(order))
	for _, id := range order {
		sub := byID[id]
		var entity T
		if err := ser.Deserialize(sub.props, sub.related, &entity); err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

func valueProps(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case interface{ GetProperties() map[string]any }:
		return v.GetProperties(), nil
	case map[string]any:
		return v, nil
	}
	return nil, fmt.Errorf("value %T carries no properties", raw)
}

func scalarInt(records []*neo4j.Record, key string) (int64, error) {
	if len(records) == 0 {
		return 0, fmt.Errorf("result missing %q row", key)
	}
	raw, ok := records[0].Get(key)
	if !ok {
		return 0, fmt.Errorf("result missing %q column", key)
	}
	n, ok := raw.(int64)
	if !ok {
		return 0, fmt.Errorf("result column %q is %T, expected int64", key, raw)
	}
	return n, nil
}

func scalarBool(records []*neo4j.Record, key string) (bool, error) {
	if len(records) == 0 {
		return false, fmt.Errorf("result missing %q row", key)
	}
	raw, ok := records[0].Get(key)
	if !ok {
		return false, fmt.Errorf("result missing %q column", key)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("result column %q is %T, expected bool", key, raw)
	}
	return b, nil
}
