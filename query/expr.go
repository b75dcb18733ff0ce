// Package query contains the query compilation core: the typed predicate
// expression builder, the translator that lowers expressions to Cypher
// fragments with bound parameters, and the builder that assembles complete
// statements.
package query

// Op is a comparison operator in a predicate expression.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Expr is a node in a predicate expression tree. Expressions are built
// with Field(...).Eq(...) style combinators and composed with And, Or and
// Not; the translator walks the tree structurally, so there is nothing to
// parse and no way to construct a shape it cannot handle beyond the
// malformed cases it rejects.
type Expr interface {
	isExpr()
}

// Comparison compares a single entity attribute against a literal value.
// A nil Value together with OpEq or OpNe translates to IS NULL /
// IS NOT NULL.
type Comparison struct {
	Field string
	Op    Op
	Value any
}

func (Comparison) isExpr() {}

// BoolOp composes child expressions with AND or OR.
type BoolOp struct {
	Or       bool
	Children []Expr
}

func (BoolOp) isExpr() {}

// NotExpr negates its child expression.
type NotExpr struct {
	Child Expr
}

func (NotExpr) isExpr() {}

// FieldRef names an entity attribute and offers the comparison
// combinators.
type FieldRef struct {
	name string
}

// Field starts a comparison against the named attribute.
func Field(name string) FieldRef { return FieldRef{name: name} }

// Name returns the attribute name.
func (f FieldRef) Name() string { return f.name }

// Eq compares for equality.
func (f FieldRef) Eq(v any) Expr { return Comparison{Field: f.name, Op: OpEq, Value: v} }

// Ne compares for inequality.
func (f FieldRef) Ne(v any) Expr { return Comparison{Field: f.name, Op: OpNe, Value: v} }

// Lt compares with less-than.
func (f FieldRef) Lt(v any) Expr { return Comparison{Field: f.name, Op: OpLt, Value: v} }

// Le compares with less-or-equal.
func (f FieldRef) Le(v any) Expr { return Comparison{Field: f.name, Op: OpLe, Value: v} }

// Gt compares with greater-than.
func (f FieldRef) Gt(v any) Expr { return Comparison{Field: f.name, Op: OpGt, Value: v} }

// Ge compares with greater-or-equal.
func (f FieldRef) Ge(v any) Expr { return Comparison{Field: f.name, Op: OpGe, Value: v} }

// IsNull matches when the attribute has no value.
func (f FieldRef) IsNull() Expr { return Comparison{Field: f.name, Op: OpEq, Value: nil} }

// IsNotNull matches when the attribute has a value.
func (f FieldRef) IsNotNull() Expr { return Comparison{Field: f.name, Op: OpNe, Value: nil} }

// And composes expressions conjunctively. Single-child calls collapse to
// the child.
func And(exprs ...Expr) Expr {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return BoolOp{Or: false, Children: exprs}
}

// Or composes expressions disjunctively. Single-child calls collapse to
// the child.
func Or(exprs ...Expr) Expr {
	if len(exprs) == 1 {
		return exprs[0]
	}
	return BoolOp{Or: true, Children: exprs}
}

// Not negates an expression.
func Not(e Expr) Expr { return NotExpr{Child: e} }

// OrderKey is a single ordering key with direction.
type OrderKey struct {
	Field      string
	Descending bool
}

// Asc orders ascending by the named attribute.
func Asc(field string) OrderKey { return OrderKey{Field: field} }

// Desc orders descending by the named attribute.
func Desc(field string) OrderKey { return OrderKey{Field: field, Descending: true} }

// ProjectionField maps a source attribute to an output alias in a
// projection return clause.
type ProjectionField struct {
	Alias string
	Field string
}

// Projection is an ordered attribute-to-alias remapping table.
type Projection []ProjectionField
