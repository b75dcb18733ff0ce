package graph

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/query"
	"github.com/neogm/neogm/schema"
)

// PathSegment is one traversal step: start node, the relationship
// followed, and the node reached. For multi-hop patterns the relationship
// is the final hop.
type PathSegment[S core.Node, R core.Relationship, E core.Node] struct {
	Start        S
	Relationship R
	End          E
}

// Traversal describes a path query from a set of start nodes across one
// relationship type.
type Traversal struct {
	// StartIDs are the identifiers of the nodes the paths begin at.
	StartIDs []string
	// Direction orients the pattern arrow. Defaults to outgoing.
	Direction core.Direction
	// MinDepth and MaxDepth bound the hop range; both 1 (or zero) means
	// a single hop.
	MinDepth int
	MaxDepth int
	// TargetFilter restricts the reached nodes.
	TargetFilter query.Expr
}

// PathSegments executes a traversal and returns (start, relationship,
// end) triples. This is the foundational traversal operation; the node
// and relationship variants are narrower projections of the same pattern.
func PathSegments[S core.Node, R core.Relationship, E core.Node](ctx context.Context, g *Graph, t Traversal, tx *Transaction) ([]PathSegment[S, R, E], error) {
	stmt, err := buildTraversalStatement[S, R, E](g, t, "RETURN start, r, target")
	if err != nil {
		return nil, err
	}
	records, err := g.runRead(ctx, tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]PathSegment[S, R, E], 0, len(records))
	for _, record := range records {
		var seg PathSegment[S, R, E]

		startProps, err := nodeProps(record, "start")
		if err != nil {
			return nil, err
		}
		if err := g.ser.Deserialize(startProps, nil, &seg.Start); err != nil {
			return nil, err
		}

		relProps, err := traversedRelProps(record, "r")
		if err != nil {
			return nil, err
		}
		if err := g.ser.Deserialize(relProps, nil, &seg.Relationship); err != nil {
			return nil, err
		}

		targetProps, err := nodeProps(record, "target")
		if err != nil {
			return nil, err
		}
		if err := g.ser.Deserialize(targetProps, nil, &seg.End); err != nil {
			return nil, err
		}

		out = append(out, seg)
	}
	return out, nil
}

// TraverseNodes executes a traversal and returns the distinct reached
// nodes.
func TraverseNodes[S core.Node, R core.Relationship, E core.Node](ctx context.Context, g *Graph, t Traversal, tx *Transaction) ([]E, error) {
	stmt, err := buildTraversalStatement[S, R, E](g, t, "RETURN DISTINCT target")
	if err != nil {
		return nil, err
	}
	records, err := g.runRead(ctx, tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]E, 0, len(records))
	for _, record := range records {
		props, err := nodeProps(record, "target")
		if err != nil {
			return nil, err
		}
		var node E
		if err := g.ser.Deserialize(props, nil, &node); err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// TraverseRelationships executes a traversal and returns the distinct
// traversed relationships.
func TraverseRelationships[S core.Node, R core.Relationship, E core.Node](ctx context.Context, g *Graph, t Traversal, tx *Transaction) ([]R, error) {
	stmt, err := buildTraversalStatement[S, R, E](g, t, "RETURN DISTINCT r")
	if err != nil {
		return nil, err
	}
	records, err := g.runRead(ctx, tx, stmt.Query, stmt.Params)
	if err != nil {
		return nil, err
	}

	out := make([]R, 0, len(records))
	for _, record := range records {
		props, err := traversedRelProps(record, "r")
		if err != nil {
			return nil, err
		}
		var rel R
		if err := g.ser.Deserialize(props, nil, &rel); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

func buildTraversalStatement[S core.Node, R core.Relationship, E core.Node](g *Graph, t Traversal, returnClause string) (query.Statement, error) {
	startMeta, err := metaFor[S](g)
	if err != nil {
		return query.Statement{}, err
	}
	relMeta, err := metaFor[R](g)
	if err != nil {
		return query.Statement{}, err
	}
	targetMeta, err := metaFor[E](g)
	if err != nil {
		return query.Statement{}, err
	}

	pattern := traversalPattern(relMeta.Label, t)
	match := fmt.Sprintf("MATCH (start:%s)%s(target:%s)", startMeta.Label, pattern, targetMeta.Label)

	wheres := []string{"start.id IN $start_ids"}
	params := map[string]any{"start_ids": t.StartIDs}
	if t.TargetFilter != nil {
		tr := query.NewTranslator("target")
		frag, err := tr.TranslateOperand("target", t.TargetFilter)
		if err != nil {
			return query.Statement{}, err
		}
		wheres = append(wheres, frag)
		for k, v := range tr.Params() {
			params[k] = v
		}
	}

	q := strings.Join([]string{match, "WHERE " + strings.Join(wheres, " AND "), returnClause}, "\n")
	return query.Statement{Query: q, Params: params}, nil
}

// traversalPattern renders the relationship half of the MATCH pattern
// with direction arrows and hop range.
func traversalPattern(relType string, t Traversal) string {
	hops := ""
	min, max := t.MinDepth, t.MaxDepth
	switch {
	case (min == 0 || min == 1) && (max == 0 || max == 1):
	case min == max:
		hops = fmt.Sprintf("*%d", min)
	case min <= 0:
		hops = fmt.Sprintf("*..%d", max)
	case max <= 0:
		hops = fmt.Sprintf("*%d..", min)
	default:
		hops = fmt.Sprintf("*%d..%d", min, max)
	}

	rel := fmt.Sprintf("[r:%s%s]", relType, hops)
	switch t.Direction {
	case core.Incoming:
		return fmt.Sprintf("<-%s-", rel)
	case core.Bidirectional:
		return fmt.Sprintf("-%s-", rel)
	default:
		return fmt.Sprintf("-%s->", rel)
	}
}

// traversedRelProps extracts relationship properties from a record
// value that may be a single relationship or, for variable-length
// patterns, a list; the final hop wins.
func traversedRelProps(record *neo4j.Record, alias string) (map[string]any, error) {
	raw, ok := record.Get(alias)
	if !ok {
		return nil, fmt.Errorf("record has no value for %q", alias)
	}
	switch v := raw.(type) {
	case dbtype.Relationship:
		return v.Props, nil
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("empty relationship list for %q", alias)
		}
		last, ok := v[len(v)-1].(dbtype.Relationship)
		if !ok {
			return nil, fmt.Errorf("record value %q holds %T, expected relationships", alias, v[len(v)-1])
		}
		return last.Props, nil
	}
	return nil, fmt.Errorf("record value %q is %T, expected a relationship", alias, raw)
}

func metaFor[T any](g *Graph) (*schema.EntityMetadata, error) {
	var zero T
	return g.reg.Get(reflect.TypeOf(zero))
}
