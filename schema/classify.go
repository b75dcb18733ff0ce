// Package schema decides how entity fields are stored in the graph: the
// simple-vs-complex type classification, the relationship naming convention
// for complex properties, and the per-type field metadata registry.
package schema

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Classification is the result of classifying a field type.
type Classification int

const (
	// Simple types are stored directly as native graph properties.
	Simple Classification = iota
	// CollectionOfSimple is a slice or array whose elements are simple.
	CollectionOfSimple
	// Complex types must be materialized as separate linked nodes.
	Complex
	// CollectionOfComplex is a slice or array of complex elements.
	CollectionOfComplex
)

func (c Classification) String() string {
	switch c {
	case Simple:
		return "simple"
	case CollectionOfSimple:
		return "collection_of_simple"
	case Complex:
		return "complex"
	case CollectionOfComplex:
		return "collection_of_complex"
	}
	return "unknown"
}

// DefaultMaxDepth bounds recursion through nested struct types during
// classification. Self-referential type graphs terminate because each
// nesting level consumes one unit of depth.
const DefaultMaxDepth = 5

var (
	timeType    = reflect.TypeOf(time.Time{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	byteSlice   = reflect.TypeOf([]byte(nil))
	durationTyp = reflect.TypeOf(time.Duration(0))
)

// Classify determines the storage classification of t, recursing at most
// maxDepth levels through nested struct types. At depth exhaustion a type
// is treated as not complex, which routes it to native storage; this
// mirrors the behavior of the mappers this package interoperates with.
func Classify(t reflect.Type, maxDepth int) Classification {
	if t == nil {
		return Simple
	}
	t = deref(t)

	if IsSimpleType(t) {
		return Simple
	}
	if isCollection(t) {
		elem := deref(t.Elem())
		if IsSimpleType(elem) {
			return CollectionOfSimple
		}
		if isComplex(elem, maxDepth) {
			return CollectionOfComplex
		}
		return CollectionOfSimple
	}
	if isComplex(t, maxDepth) {
		return Complex
	}
	return Simple
}

// IsSimpleType reports whether t can be stored directly as a native graph
// property: strings, integers, floats, booleans, byte sequences, time
// values, UUIDs, enumerations (named types over a simple kind), and maps
// (treated as opaquely simple, never recursed into).
func IsSimpleType(t reflect.Type) bool {
	if t == nil {
		return true
	}
	t = deref(t)

	switch t {
	case timeType, uuidType, byteSlice, durationTyp:
		return true
	}

	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Map:
		// Key/value maps are stored as an opaque serialized property.
		return true
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() == reflect.Uint8
	case reflect.Interface:
		// Ambiguous unions are never simple.
		return false
	}
	return false
}

// IsCollectionOfSimple reports whether t is a slice or array of simple
// element types.
func IsCollectionOfSimple(t reflect.Type) bool {
	return Classify(t, DefaultMaxDepth) == CollectionOfSimple
}

// IsComplexType reports whether t must be stored as a separate linked node
// when used as a property, bounding recursion at maxDepth.
func IsComplexType(t reflect.Type, maxDepth int) bool {
	c := Classify(t, maxDepth)
	return c == Complex || c == CollectionOfComplex
}

func deref(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func isCollection(t reflect.Type) bool {
	if t.Kind() != reflect.Slice && t.Kind() != reflect.Array {
		return false
	}
	// []byte is a scalar, not a collection.
	return t.Elem().Kind() != reflect.Uint8
}

func isComplex(t reflect.Type, depth int) bool {
	if depth <= 0 {
		return false
	}
	if IsSimpleType(t) {
		return false
	}
	if isCollection(t) {
		return isComplex(deref(t.Elem()), depth)
	}
	if t.Kind() != reflect.Struct {
		// Channels, funcs and interfaces cannot be persisted; they are
		// rejected during registry construction, not here.
		return false
	}
	if isEntityStruct(t) {
		// Entities may not appear as property values. The registry raises
		// a validation error for such fields; classification itself stays
		// total.
		return false
	}
	return true
}

// isEntityStruct reports whether t embeds the core node or relationship
// base types. Checked structurally to avoid an import cycle with core.
func isEntityStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && (f.Type.Name() == "NodeBase" || f.Type.Name() == "RelationshipBase") {
			return true
		}
	}
	return false
}
