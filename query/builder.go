package query

import (
	"fmt"
	"strings"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/schema"
)

// Statement is a complete Cypher statement with its bound parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// Builder assembles complete Cypher statements for one entity type. The
// clause pipeline is fixed: MATCH, optional traversal pattern, WHERE,
// complex-property OPTIONAL MATCH/WITH pairs, ORDER BY, SKIP, LIMIT,
// RETURN. There is no branching back.
type Builder struct {
	meta  *schema.EntityMetadata
	alias string
}

// NewBuilder creates a builder for the given entity metadata. Nodes use
// the alias "n", relationships "r".
func NewBuilder(meta *schema.EntityMetadata) *Builder {
	alias := "n"
	if meta.IsRelationship {
		alias = "r"
	}
	return &Builder{meta: meta, alias: alias}
}

// Alias returns the subject variable used in emitted queries.
func (b *Builder) Alias() string { return b.alias }

// Build assembles the full statement for a query spec. When
// includeComplex is set, every related field gets an OPTIONAL MATCH so a
// missing related node never eliminates the parent row, and its alias is
// carried through WITH into the return clause.
func (b *Builder) Build(s Spec, includeComplex bool) (Statement, error) {
	var parts []string
	params := make(map[string]any)

	parts = append(parts, b.matchClause(s.Traversal))

	where, err := b.whereClause(s, params)
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		parts = append(parts, where)
	}

	related := b.meta.RelatedFields()
	if !includeComplex || s.Fields != nil {
		related = nil
	}
	carried := []string{b.alias}
	for _, f := range related {
		parts = append(parts, fmt.Sprintf("OPTIONAL MATCH (%s)-[%s_rel:%s]->(%s_node)",
			b.alias, f.PropertyName, f.RelType, f.PropertyName))
		with := fmt.Sprintf("WITH %s, %s_node AS %s", strings.Join(carried, ", "), f.PropertyName, f.PropertyName)
		carried = append(carried, f.PropertyName)
		parts = append(parts, with)
	}

	order, err := TranslateOrder(b.alias, s.Orders)
	if err != nil {
		return Statement{}, err
	}
	// ORDER BY, SKIP and LIMIT attach to a WITH projection so the clause
	// pipeline stays valid Cypher when no complex-property WITH preceded
	// them.
	if (order != "" || s.SkipCount != nil || s.TakeCount != nil) && len(related) == 0 {
		parts = append(parts, "WITH "+strings.Join(carried, ", "))
	}
	if order != "" {
		parts = append(parts, order)
	}
	if s.SkipCount != nil {
		parts = append(parts, fmt.Sprintf("SKIP %d", *s.SkipCount))
	}
	if s.TakeCount != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *s.TakeCount))
	}

	if s.Fields != nil {
		ret, err := TranslateProjection(b.alias, s.Fields)
		if err != nil {
			return Statement{}, err
		}
		parts = append(parts, ret)
	} else {
		parts = append(parts, "RETURN "+strings.Join(carried, ", "))
	}

	return Statement{Query: strings.Join(parts, "\n"), Params: params}, nil
}

// BuildCount assembles the count short form, bypassing ordering,
// pagination and complex-property loading. Filters, including traversal
// and endpoint filters, still apply.
func (b *Builder) BuildCount(s Spec) (Statement, error) {
	return b.buildAggregate(s, fmt.Sprintf("RETURN count(%s) AS count", b.alias))
}

// BuildExists assembles the existence short form.
func (b *Builder) BuildExists(s Spec) (Statement, error) {
	return b.buildAggregate(s, fmt.Sprintf("RETURN count(%s) > 0 AS exists", b.alias))
}

func (b *Builder) buildAggregate(s Spec, returnClause string) (Statement, error) {
	parts := []string{b.matchClause(s.Traversal)}
	params := make(map[string]any)
	where, err := b.whereClause(s, params)
	if err != nil {
		return Statement{}, err
	}
	if where != "" {
		parts = append(parts, where)
	}
	parts = append(parts, returnClause)
	return Statement{Query: strings.Join(parts, "\n"), Params: params}, nil
}

func (b *Builder) matchClause(t *TraversalSpec) string {
	if b.meta.IsRelationship {
		return fmt.Sprintf("MATCH (s)-[%s:%s]->(e)", b.alias, b.meta.Label)
	}
	if t == nil {
		return fmt.Sprintf("MATCH (%s:%s)", b.alias, b.meta.Label)
	}

	pattern := fmt.Sprintf("[rel:%s%s]", t.RelType, hopSpec(t.MinDepth, t.MaxDepth))
	subject := fmt.Sprintf("(%s:%s)", b.alias, b.meta.Label)
	source := "(src)"
	if t.SourceLabel != "" {
		source = fmt.Sprintf("(src:%s)", t.SourceLabel)
	}

	switch t.Direction {
	case core.Incoming:
		return fmt.Sprintf("MATCH %s<-%s-%s", source, pattern, subject)
	case core.Bidirectional:
		return fmt.Sprintf("MATCH %s-%s-%s", source, pattern, subject)
	default:
		return fmt.Sprintf("MATCH %s-%s->%s", source, pattern, subject)
	}
}

func (b *Builder) whereClause(s Spec, params map[string]any) (string, error) {
	type operand struct {
		alias string
		expr  Expr
	}
	var preds []operand
	if s.Traversal != nil && s.Traversal.SourceFilter != nil {
		preds = append(preds, operand{"src", s.Traversal.SourceFilter})
	}
	if s.Filter != nil {
		preds = append(preds, operand{b.alias, s.Filter})
	}
	if b.meta.IsRelationship {
		if s.StartFilter != nil {
			preds = append(preds, operand{"s", s.StartFilter})
		}
		if s.EndFilter != nil {
			preds = append(preds, operand{"e", s.EndFilter})
		}
	}
	if len(preds) == 0 {
		return "", nil
	}

	// One translator per statement: all fragments share a parameter
	// namespace so their ordinals never collide. With more than one
	// predicate each fragment becomes an operand of the joining AND, so
	// a root-level OR keeps its grouping.
	tr := NewTranslator(b.alias)
	frags := make([]string, 0, len(preds))
	for _, p := range preds {
		var frag string
		var err error
		if len(preds) == 1 {
			frag, err = tr.TranslateAs(p.alias, p.expr)
		} else {
			frag, err = tr.TranslateOperand(p.alias, p.expr)
		}
		if err != nil {
			return "", err
		}
		frags = append(frags, frag)
	}
	copyParams(params, tr.Params())
	return "WHERE " + strings.Join(frags, " AND "), nil
}

// hopSpec renders the variable-length part of a relationship pattern.
// min==max==1 is the plain single-hop pattern and renders nothing.
func hopSpec(min, max int) string {
	if (min == 1 || min == 0) && (max == 1 || max == 0) {
		return ""
	}
	if min == max {
		return fmt.Sprintf("*%d", min)
	}
	if min <= 0 {
		return fmt.Sprintf("*..%d", max)
	}
	if max <= 0 {
		return fmt.Sprintf("*%d..", min)
	}
	return fmt.Sprintf("*%d..%d", min, max)
}

func copyParams(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
