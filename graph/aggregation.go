package graph

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/query"
	"github.com/neogm/neogm/schema"
)

// GroupResult is one row of an aggregation query: the grouping key (nil
// when no GroupBy was set) and the computed aggregate values keyed by
// their aliases.
type GroupResult struct {
	Key    any
	Values map[string]any
}

// AggregateQuery accumulates grouping and aggregate expressions over
// nodes of type T. Like the queryables it is a value; every method
// returns a fresh copy.
type AggregateQuery[T core.Node] struct {
	g          *Graph
	meta       *schema.EntityMetadata
	filter     query.Expr
	groupField string
	aggs       []aggExpr
	tx         *Transaction
	err        error
}

type aggExpr struct {
	fn    string
	field string
	alias string
}

// Aggregate starts an aggregation query over nodes of type T.
func Aggregate[T core.Node](g *Graph) AggregateQuery[T] {
	var zero T
	meta, err := g.reg.Get(reflect.TypeOf(zero))
	return AggregateQuery[T]{g: g, meta: meta, err: err}
}

// InTransaction binds the query's reads to an explicit transaction.
func (q AggregateQuery[T]) InTransaction(tx *Transaction) AggregateQuery[T] {
	q.tx = tx
	return q
}

// Where conjoins a row filter applied before aggregation.
func (q AggregateQuery[T]) Where(e query.Expr) AggregateQuery[T] {
	if q.filter == nil {
		q.filter = e
	} else {
		q.filter = query.And(q.filter, e)
	}
	return q
}

// GroupBy groups rows by the named attribute. Without it, aggregates
// compute over all matching rows as a single group.
func (q AggregateQuery[T]) GroupBy(field string) AggregateQuery[T] {
	q.groupField = field
	return q
}

// Count adds a row count aggregate under the alias "count".
func (q AggregateQuery[T]) Count() AggregateQuery[T] {
	return q.with(aggExpr{fn: "count", alias: "count"})
}

// Sum adds a sum aggregate over the named attribute.
func (q AggregateQuery[T]) Sum(field string) AggregateQuery[T] {
	return q.with(aggExpr{fn: "sum", field: field, alias: "sum_" + field})
}

// Avg adds an average aggregate over the named attribute.
func (q AggregateQuery[T]) Avg(field string) AggregateQuery[T] {
	return q.with(aggExpr{fn: "avg", field: field, alias: "avg_" + field})
}

// Min adds a minimum aggregate over the named attribute.
func (q AggregateQuery[T]) Min(field string) AggregateQuery[T] {
	return q.with(aggExpr{fn: "min", field: field, alias: "min_" + field})
}

// Max adds a maximum aggregate over the named attribute.
func (q AggregateQuery[T]) Max(field string) AggregateQuery[T] {
	return q.with(aggExpr{fn: "max", field: field, alias: "max_" + field})
}

func (q AggregateQuery[T]) with(a aggExpr) AggregateQuery[T] {
	q.aggs = append(append([]aggExpr(nil), q.aggs...), a)
	return q
}

// Execute runs the aggregation. With GroupBy it returns one GroupResult
// per distinct key; without, a single result with a nil key.
func (q AggregateQuery[T]) Execute(ctx context.Context) ([]GroupResult, error) {
	if q.err != nil {
		return nil, q.err
	}
	if len(q.aggs) == 0 {
		return nil, fmt.Errorf("aggregation without aggregate expressions: %w", core.ErrUnsupportedExpression)
	}

	stmt, err := q.build()
	if err != nil {
		return nil, err
	}
	records, err := q.g.runRead(ctx, q.tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]GroupResult, 0, len(records))
	for _, record := range records {
		result := GroupResult{Values: make(map[string]any, len(q.aggs))}
		if q.groupField != "" {
			result.Key, _ = record.Get("groupKey")
		}
		for _, a := range q.aggs {
			value, _ := record.Get(a.alias)
			result.Values[a.alias] = value
		}
		out = append(out, result)
	}
	return out, nil
}

func (q AggregateQuery[T]) build() (query.Statement, error) {
	parts := []string{fmt.Sprintf("MATCH (n:%s)", q.meta.Label)}
	params := make(map[string]any)

	if q.filter != nil {
		tr := query.NewTranslator("n")
		frag, err := tr.Translate(q.filter)
		if err != nil {
			return query.Statement{}, err
		}
		parts = append(parts, "WHERE "+frag)
		for k, v := range tr.Params() {
			params[k] = v
		}
	}

	if q.groupField != "" {
		parts = append(parts, fmt.Sprintf("WITH n.%s AS groupKey, n", q.groupField))
	}

	exprs := make([]string, 0, len(q.aggs)+1)
	if q.groupField != "" {
		exprs = append(exprs, "groupKey")
	}
	for _, a := range q.aggs {
		if a.fn == "count" {
			exprs = append(exprs, fmt.Sprintf("count(n) AS %s", a.alias))
			continue
		}
		exprs = append(exprs, fmt.Sprintf("%s(n.%s) AS %s", a.fn, a.field, a.alias))
	}
	parts = append(parts, "RETURN "+strings.Join(exprs, ", "))

	return query.Statement{Query: strings.Join(parts, "\n"), Params: params}, nil
}
