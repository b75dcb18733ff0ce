package schema

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/neogm/neogm/core"
)

// StorageKind determines where a field's value lives in the graph.
type StorageKind int

const (
	// Native fields are stored directly as properties on the node or
	// relationship.
	Native StorageKind = iota
	// Embedded fields serialize the whole value into a single property.
	// Embedded storage sacrifices queryability and is always an explicit
	// opt-in; the classifier never defaults to it.
	Embedded
	// Related fields are materialized as a separate node linked by a
	// typed relationship.
	Related
)

func (k StorageKind) String() string {
	switch k {
	case Native:
		return "native"
	case Embedded:
		return "embedded"
	case Related:
		return "related"
	}
	return "unknown"
}

// Codec selects the serialization format for embedded fields.
type Codec string

const (
	CodecJSON    Codec = "json"
	CodecMsgpack Codec = "msgpack"
)

// FieldMeta describes how a single declared field is stored and queried.
type FieldMeta struct {
	// Name is the Go struct field name.
	Name string
	// PropertyName is the name used in the graph; defaults to the Go
	// field name with a lowered first letter, overridable via tag.
	PropertyName string
	// Index is the field's index chain for reflect.Value.FieldByIndex.
	Index []int
	// Type is the declared Go type of the field.
	Type reflect.Type
	// Class is the classifier's verdict for Type.
	Class Classification
	// Kind is the resolved storage strategy.
	Kind StorageKind
	// Indexed marks the property for index creation.
	Indexed bool
	// Required fields must carry a non-zero value at persistence time
	// unless a default is declared.
	Required bool
	// Default is the declared default literal from the tag, if any.
	Default string
	// HasDefault reports whether Default was declared.
	HasDefault bool
	// RelType is the relationship type used for related fields. Derived
	// from the property naming convention unless overridden.
	RelType string
	// Public marks a related field's relationship as traversable by
	// general queries. Convention-named relationships default to private.
	Public bool
	// Codec is the embedded serialization format, CodecJSON by default.
	Codec Codec
}

// IsCollection reports whether the field holds multiple values.
func (f *FieldMeta) IsCollection() bool {
	return f.Class == CollectionOfSimple || f.Class == CollectionOfComplex
}

// EntityMetadata is the complete field map for one entity type.
type EntityMetadata struct {
	// Type is the entity's Go struct type.
	Type reflect.Type
	// Label is the node label, or the relationship type for relationship
	// entities (uppercased by convention).
	Label string
	// IsRelationship distinguishes relationship entities from nodes.
	IsRelationship bool
	// Fields maps property names to their metadata.
	Fields map[string]*FieldMeta
	// Order preserves declaration order of property names.
	Order []string
}

// RelatedFields returns the metadata for fields stored as related nodes,
// in declaration order.
func (m *EntityMetadata) RelatedFields() []*FieldMeta {
	var out []*FieldMeta
	for _, name := range m.Order {
		if f := m.Fields[name]; f.Kind == Related {
			out = append(out, f)
		}
	}
	return out
}

// Field returns the metadata for a property name, or nil.
func (m *EntityMetadata) Field(propertyName string) *FieldMeta {
	return m.Fields[propertyName]
}

// Labeler lets an entity type override its node label or relationship
// type name.
type Labeler interface {
	GraphLabel() string
}

// Registry builds and caches EntityMetadata per entity type. It is an
// explicit value: construct one at application start and pass it to the
// graph layer. Lookups are lazy build-once with a per-registry lock;
// re-registration replaces the cached entry atomically.
type Registry struct {
	mu       sync.RWMutex
	entries  map[reflect.Type]*EntityMetadata
	maxDepth int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxDepth overrides the classification recursion bound.
func WithMaxDepth(depth int) RegistryOption {
	return func(r *Registry) { r.maxDepth = depth }
}

// NewRegistry creates an empty metadata registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries:  make(map[reflect.Type]*EntityMetadata),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the metadata for t, building and caching it on first use.
// t may be a struct type or pointer to one.
func (r *Registry) Get(t reflect.Type) (*EntityMetadata, error) {
	t = deref(t)

	r.mu.RLock()
	meta, ok := r.entries[t]
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock: another goroutine may have built the
	// entry between the two lock acquisitions.
	if meta, ok := r.entries[t]; ok {
		return meta, nil
	}
	meta, err := r.build(t)
	if err != nil {
		return nil, err
	}
	r.entries[t] = meta
	return meta, nil
}

// Register rebuilds the metadata for t and replaces any cached entry.
// Useful after hot-reloading type definitions in tests.
func (r *Registry) Register(t reflect.Type) (*EntityMetadata, error) {
	t = deref(t)
	meta, err := r.build(t)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.entries[t] = meta
	r.mu.Unlock()
	return meta, nil
}

func (r *Registry) build(t reflect.Type) (*EntityMetadata, error) {
	if t.Kind() != reflect.Struct {
		return nil, &core.ValidationError{EntityType: t.String(), Reason: "entity must be a struct type"}
	}

	meta := &EntityMetadata{
		Type:           t,
		Label:          entityLabel(t),
		IsRelationship: embedsBase(t, "RelationshipBase"),
		Fields:         make(map[string]*FieldMeta),
	}
	if meta.IsRelationship {
		meta.Label = strings.ToUpper(meta.Label)
	}

	if err := r.collectFields(t, nil, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (r *Registry) collectFields(t reflect.Type, indexPrefix []int, meta *EntityMetadata) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), indexPrefix...), i)

		if sf.Anonymous {
			base := deref(sf.Type)
			if base.Kind() == reflect.Struct {
				if err := r.collectFields(base, index, meta); err != nil {
					return err
				}
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("graph")
		if tag == "-" {
			continue
		}

		fm, err := r.buildField(meta.Type, sf, index, tag)
		if err != nil {
			return err
		}
		if fm == nil {
			continue
		}
		if meta.IsRelationship && fm.Kind != Native {
			return &core.ValidationError{
				EntityType: meta.Type.Name(),
				Field:      fm.Name,
				Reason:     "relationships can only carry native properties",
			}
		}
		if prev, ok := meta.Fields[fm.PropertyName]; ok {
			return &core.ValidationError{
				EntityType: meta.Type.Name(),
				Field:      fm.Name,
				Reason:     fmt.Sprintf("property name %q is already mapped by field %s", fm.PropertyName, prev.Name),
			}
		}
		meta.Fields[fm.PropertyName] = fm
		meta.Order = append(meta.Order, fm.PropertyName)
	}
	return nil
}

func (r *Registry) buildField(owner reflect.Type, sf reflect.StructField, index []int, tag string) (*FieldMeta, error) {
	fm := &FieldMeta{
		Name:     sf.Name,
		Index:    index,
		Type:     sf.Type,
		Required: true,
		Codec:    CodecJSON,
	}

	parts := strings.Split(tag, ",")
	if tag != "" && parts[0] != "" {
		fm.PropertyName = parts[0]
	} else {
		fm.PropertyName = lowerFirst(sf.Name)
	}

	explicitKind := false
	for _, opt := range parts[1:] {
		key, val, _ := strings.Cut(opt, "=")
		switch key {
		case "index":
			fm.Indexed = true
		case "optional":
			fm.Required = false
		case "required":
			fm.Required = true
		case "default":
			fm.Default = val
			fm.HasDefault = true
			fm.Required = false
		case "embedded":
			fm.Kind = Embedded
			explicitKind = true
		case "codec":
			fm.Codec = Codec(val)
		case "related":
			fm.Kind = Related
			explicitKind = true
		case "rel":
			fm.Kind = Related
			fm.RelType = val
			explicitKind = true
		case "public":
			fm.Public = true
		case "":
		default:
			return nil, &core.ValidationError{
				EntityType: owner.Name(),
				Field:      sf.Name,
				Reason:     fmt.Sprintf("unknown graph tag option %q", key),
			}
		}
	}

	if isEntityStruct(deref(sf.Type)) || (isCollection(deref(sf.Type)) && isEntityStruct(deref(deref(sf.Type).Elem()))) {
		return nil, &core.ValidationError{
			EntityType: owner.Name(),
			Field:      sf.Name,
			Reason:     "entities may not be nested as property values; model the connection as a relationship",
		}
	}

	fm.Class = Classify(sf.Type, r.maxDepth)
	if !explicitKind {
		switch fm.Class {
		case Simple, CollectionOfSimple:
			fm.Kind = Native
		case Complex, CollectionOfComplex:
			fm.Kind = Related
		}
	}

	if fm.Kind == Related {
		if fm.RelType == "" {
			fm.RelType = PropertyRelationshipName(fm.PropertyName)
		} else if !IsValidRelationshipTypeName(fm.RelType) {
			return nil, &core.ValidationError{
				EntityType: owner.Name(),
				Field:      sf.Name,
				Reason:     fmt.Sprintf("invalid relationship type name %q", fm.RelType),
			}
		}
	}
	if fm.Kind == Embedded && fm.Codec != CodecJSON && fm.Codec != CodecMsgpack {
		return nil, &core.ValidationError{
			EntityType: owner.Name(),
			Field:      sf.Name,
			Reason:     fmt.Sprintf("unknown embedded codec %q", fm.Codec),
		}
	}
	return fm, nil
}

func entityLabel(t reflect.Type) string {
	if l, ok := reflect.New(t).Interface().(Labeler); ok {
		if label := l.GraphLabel(); label != "" {
			return label
		}
	}
	return t.Name()
}

func embedsBase(t reflect.Type, baseName string) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		base := deref(f.Type)
		if base.Name() == baseName {
			return true
		}
		if base.Kind() == reflect.Struct && embedsBase(base, baseName) {
			return true
		}
	}
	return false
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
