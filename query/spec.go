package query

import "github.com/neogm/neogm/core"

// TraversalSpec describes a relationship-traversal pattern from a source
// entity pattern to the query's subject entity.
type TraversalSpec struct {
	// SourceLabel is the label of the node pattern the traversal starts
	// from.
	SourceLabel string
	// RelType is the relationship type to follow.
	RelType string
	// Direction is how the pattern arrow renders: outgoing "->", incoming
	// "<-", bidirectional "-".
	Direction core.Direction
	// MinDepth and MaxDepth bound the hop range. Both 1 renders no range
	// at all.
	MinDepth int
	MaxDepth int
	// SourceFilter restricts the source pattern; it is combined with the
	// subject filter with AND.
	SourceFilter Expr
}

// Spec is the accumulated state of a fluent query chain. Specs are values:
// every mutator returns a copy, so a base queryable can be extended along
// independent chains without aliasing surprises.
type Spec struct {
	Filter Expr
	// StartFilter and EndFilter restrict the endpoint nodes of a
	// relationship query. They are ignored for node queries.
	StartFilter Expr
	EndFilter   Expr
	Orders      []OrderKey
	SkipCount   *int
	TakeCount   *int
	Fields      Projection
	Traversal   *TraversalSpec
}

// WithFilter returns a copy with e conjoined to the existing filter.
func (s Spec) WithFilter(e Expr) Spec {
	out := s.clone()
	if out.Filter == nil {
		out.Filter = e
	} else {
		out.Filter = And(out.Filter, e)
	}
	return out
}

// WithStartFilter returns a copy with e conjoined to the start-node
// filter of a relationship query.
func (s Spec) WithStartFilter(e Expr) Spec {
	out := s.clone()
	if out.StartFilter == nil {
		out.StartFilter = e
	} else {
		out.StartFilter = And(out.StartFilter, e)
	}
	return out
}

// WithEndFilter returns a copy with e conjoined to the end-node filter of
// a relationship query.
func (s Spec) WithEndFilter(e Expr) Spec {
	out := s.clone()
	if out.EndFilter == nil {
		out.EndFilter = e
	} else {
		out.EndFilter = And(out.EndFilter, e)
	}
	return out
}

// WithOrder returns a copy with the ordering reset to key.
func (s Spec) WithOrder(key OrderKey) Spec {
	out := s.clone()
	out.Orders = []OrderKey{key}
	return out
}

// WithThenBy returns a copy with key appended as a secondary ordering.
func (s Spec) WithThenBy(key OrderKey) Spec {
	out := s.clone()
	out.Orders = append(out.Orders, key)
	return out
}

// WithSkip returns a copy with the skip count set. Skip and take set
// independent fields, so call order does not matter.
func (s Spec) WithSkip(n int) Spec {
	out := s.clone()
	out.SkipCount = &n
	return out
}

// WithTake returns a copy with the take (limit) count set.
func (s Spec) WithTake(n int) Spec {
	out := s.clone()
	out.TakeCount = &n
	return out
}

// WithProjection returns a copy that returns the projection instead of
// whole entities.
func (s Spec) WithProjection(p Projection) Spec {
	out := s.clone()
	out.Fields = append(Projection(nil), p...)
	return out
}

// WithTraversal returns a copy carrying the traversal pattern.
func (s Spec) WithTraversal(t TraversalSpec) Spec {
	out := s.clone()
	out.Traversal = &t
	return out
}

// WithDepth returns a copy with the traversal hop range set. It is only
// meaningful after WithTraversal.
func (s Spec) WithDepth(min, max int) Spec {
	out := s.clone()
	if out.Traversal != nil {
		t := *out.Traversal
		t.MinDepth = min
		t.MaxDepth = max
		out.Traversal = &t
	}
	return out
}

func (s Spec) clone() Spec {
	out := s
	out.Orders = append([]OrderKey(nil), s.Orders...)
	out.Fields = append(Projection(nil), s.Fields...)
	if s.SkipCount != nil {
		v := *s.SkipCount
		out.SkipCount = &v
	}
	if s.TakeCount != nil {
		v := *s.TakeCount
		out.TakeCount = &v
	}
	if s.Traversal != nil {
		t := *s.Traversal
		out.Traversal = &t
	}
	return out
}
