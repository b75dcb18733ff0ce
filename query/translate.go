package query

import (
	"fmt"
	"strings"

	"github.com/neogm/neogm/core"
)

// cypherOperators maps comparison operators to their Cypher symbols.
var cypherOperators = map[Op]string{
	OpEq: "=",
	OpNe: "<>",
	OpLt: "<",
	OpLe: "<=",
	OpGt: ">",
	OpGe: ">=",
}

// Translator lowers predicate expressions to Cypher WHERE fragments with
// bound parameters. A Translator carries the parameter ordinal for one
// compilation pass and is not reused across queries.
type Translator struct {
	alias  string
	params map[string]any
}

// NewTranslator creates a translator for predicates over the given
// entity alias.
func NewTranslator(alias string) *Translator {
	return &Translator{alias: alias, params: make(map[string]any)}
}

// Params returns the parameters bound so far.
func (t *Translator) Params() map[string]any { return t.params }

// Translate lowers expr into a filter fragment. Literal values are never
// inlined: each comparison binds a named parameter "{field}_{ordinal}",
// with the ordinal incrementing per comparison across the whole pass.
// Disjunctions nested under a boolean parent are parenthesized so the
// emitted fragment preserves the tree's precedence exactly.
func (t *Translator) Translate(expr Expr) (string, error) {
	return t.TranslateAs(t.alias, expr)
}

// TranslateAs is Translate against a different entity alias. Fragments
// emitted through the same Translator share one parameter namespace, so
// multi-pattern queries can combine them without collisions.
func (t *Translator) TranslateAs(alias string, expr Expr) (string, error) {
	if expr == nil {
		return "", fmt.Errorf("nil predicate: %w", core.ErrUnsupportedExpression)
	}
	return t.emit(alias, expr, true)
}

// TranslateOperand lowers expr as one operand of an enclosing AND. A
// disjunction at the root gets parenthesized so the surrounding
// conjunction cannot rebind its branches.
func (t *Translator) TranslateOperand(alias string, expr Expr) (string, error) {
	frag, err := t.TranslateAs(alias, expr)
	if err != nil {
		return "", err
	}
	if b, ok := expr.(BoolOp); ok && b.Or {
		return "(" + frag + ")", nil
	}
	return frag, nil
}

func (t *Translator) emit(alias string, expr Expr, topLevel bool) (string, error) {
	switch e := expr.(type) {
	case Comparison:
		return t.emitComparison(alias, e)
	case BoolOp:
		return t.emitBoolOp(alias, e, topLevel)
	case NotExpr:
		if e.Child == nil {
			return "", fmt.Errorf("NOT with nil child: %w", core.ErrUnsupportedExpression)
		}
		inner, err := t.emit(alias, e.Child, false)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", fmt.Errorf("expression %T: %w", expr, core.ErrUnsupportedExpression)
	}
}

func (t *Translator) emitComparison(alias string, c Comparison) (string, error) {
	if c.Field == "" {
		return "", fmt.Errorf("comparison without field: %w", core.ErrUnsupportedExpression)
	}
	op, ok := cypherOperators[c.Op]
	if !ok {
		return "", fmt.Errorf("comparison operator %d: %w", c.Op, core.ErrUnsupportedExpression)
	}

	if c.Value == nil {
		switch c.Op {
		case OpEq:
			return fmt.Sprintf("%s.%s IS NULL", alias, c.Field), nil
		case OpNe:
			return fmt.Sprintf("%s.%s IS NOT NULL", alias, c.Field), nil
		default:
			return "", fmt.Errorf("null only supports equality comparisons: %w", core.ErrUnsupportedExpression)
		}
	}

	param := fmt.Sprintf("%s_%d", c.Field, len(t.params))
	t.params[param] = c.Value
	return fmt.Sprintf("%s.%s %s $%s", alias, c.Field, op, param), nil
}

func (t *Translator) emitBoolOp(alias string, b BoolOp, topLevel bool) (string, error) {
	if len(b.Children) < 2 {
		return "", fmt.Errorf("boolean composition needs at least two operands: %w", core.ErrUnsupportedExpression)
	}
	parts := make([]string, 0, len(b.Children))
	for _, child := range b.Children {
		if child == nil {
			return "", fmt.Errorf("nil operand in boolean composition: %w", core.ErrUnsupportedExpression)
		}
		s, err := t.emit(alias, child, false)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	op := " AND "
	if b.Or {
		op = " OR "
	}
	joined := strings.Join(parts, op)
	if topLevel {
		return joined, nil
	}
	return "(" + joined + ")", nil
}

// TranslateOrder renders ORDER BY keys for the given alias. Every key must
// name an attribute directly; anything else is a hard error, ordering
// correctness is not degradable.
func TranslateOrder(alias string, keys []OrderKey) (string, error) {
	if len(keys) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k.Field == "" {
			return "", fmt.Errorf("ordering key without field: %w", core.ErrUnsupportedExpression)
		}
		dir := "ASC"
		if k.Descending {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s.%s %s", alias, k.Field, dir))
	}
	return "ORDER BY " + strings.Join(parts, ", "), nil
}

// TranslateProjection renders a projection RETURN clause from an ordered
// alias-to-attribute table. Each value must be a direct attribute read.
func TranslateProjection(alias string, proj Projection) (string, error) {
	if len(proj) == 0 {
		return "", fmt.Errorf("empty projection: %w", core.ErrUnsupportedExpression)
	}
	parts := make([]string, 0, len(proj))
	for _, p := range proj {
		if p.Field == "" || p.Alias == "" {
			return "", fmt.Errorf("projection entries need both alias and field: %w", core.ErrUnsupportedExpression)
		}
		parts = append(parts, fmt.Sprintf("%s.%s AS %s", alias, p.Field, p.Alias))
	}
	return "RETURN " + strings.Join(parts, ", "), nil
}
