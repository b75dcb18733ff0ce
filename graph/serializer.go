package graph

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/neogm/neogm/core"
	"github.com/neogm/neogm/schema"
)

// SequenceNumberProperty is the ordinal stored on complex-property nodes
// that belong to a collection, preserving element order across reloads.
const SequenceNumberProperty = "SequenceNumber"

// SerializedEntity is an entity flattened for storage: native properties
// ready for SET clauses, and complex properties destined for separate
// linked nodes.
type SerializedEntity struct {
	ID    string
	Label string
	// Properties holds native and embedded values keyed by property name.
	// The entity id is carried in ID, not here.
	Properties map[string]any
	// Complex holds the related-field payloads in declaration order.
	Complex []ComplexProperty
	// StartNodeID and EndNodeID are set for relationships only. They are
	// also present in Properties, so a stored relationship record is
	// self-describing.
	StartNodeID string
	EndNodeID   string
}

// ComplexProperty is one related field's payload: the values to store as
// linked nodes and the relationship type connecting them to the parent.
type ComplexProperty struct {
	Field        string
	RelType      string
	IsCollection bool
	// Values holds one element for scalar fields, the slice elements in
	// order for collections. Each element serializes to one linked node.
	Values []reflect.Value
}

// Serializer converts entities to and from their stored representation
// using the field metadata registry. It holds no state beyond the
// registry and is safe for concurrent use.
type Serializer struct {
	reg *schema.Registry
}

// NewSerializer creates a serializer over the given registry.
func NewSerializer(reg *schema.Registry) *Serializer {
	return &Serializer{reg: reg}
}

// Serialize flattens an entity for storage. Native values pass through
// (named types reduced to their underlying kind), embedded values are
// encoded with the field's codec, related values are collected for the
// complex-property pass.
func (s *Serializer) Serialize(entity core.Entity) (*SerializedEntity, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, &core.ValidationError{EntityType: v.Type().String(), Reason: "cannot serialize nil entity"}
		}
		v = v.Elem()
	}

	meta, err := s.reg.Get(v.Type())
	if err != nil {
		return nil, err
	}

	out := &SerializedEntity{
		ID:         entity.ID(),
		Label:      meta.Label,
		Properties: make(map[string]any),
	}
	if rel, ok := entity.(core.Relationship); ok {
		out.StartNodeID = rel.StartNodeID()
		out.EndNodeID = rel.EndNodeID()
	}

	for _, name := range meta.Order {
		fm := meta.Fields[name]
		if fm.PropertyName == "id" {
			continue
		}
		fv := v.FieldByIndex(fm.Index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}

		switch fm.Kind {
		case schema.Native:
			val, err := nativeValue(fv)
			if err != nil {
				return nil, &core.ValidationError{EntityType: meta.Type.Name(), Field: fm.Name, Reason: err.Error()}
			}
			if val != nil {
				out.Properties[fm.PropertyName] = val
			}
		case schema.Embedded:
			encoded, err := encodeEmbedded(fv.Interface(), fm.Codec)
			if err != nil {
				return nil, &core.ValidationError{EntityType: meta.Type.Name(), Field: fm.Name, Reason: err.Error()}
			}
			out.Properties[fm.PropertyName] = encoded
		case schema.Related:
			cp := ComplexProperty{
				Field:        fm.PropertyName,
				RelType:      fm.RelType,
				IsCollection: fm.IsCollection(),
			}
			if cp.IsCollection {
				if fv.Len() == 0 {
					continue
				}
				for i := 0; i < fv.Len(); i++ {
					cp.Values = append(cp.Values, fv.Index(i))
				}
			} else {
				if fv.IsZero() {
					continue
				}
				cp.Values = []reflect.Value{fv}
			}
			out.Complex = append(out.Complex, cp)
		}
	}
	return out, nil
}

// SerializeValue flattens a non-entity struct value into a property map,
// used for complex-property nodes. Nested values are encoded with the
// default codec; complex-property nodes are one level deep by contract.
func (s *Serializer) SerializeValue(v reflect.Value) (map[string]any, error) {
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot serialize nil value")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("complex property must be a struct, got %s", v.Kind())
	}

	props := make(map[string]any)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("graph")
		if tag == "-" {
			continue
		}
		name := propertyName(sf, tag)

		fv := v.Field(i)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}

		if schema.IsSimpleType(fv.Type()) || schema.IsCollectionOfSimple(fv.Type()) {
			val, err := nativeValue(fv)
			if err != nil {
				return nil, err
			}
			if val != nil {
				props[name] = val
			}
			continue
		}
		encoded, err := encodeEmbedded(fv.Interface(), schema.CodecJSON)
		if err != nil {
			return nil, err
		}
		props[name] = encoded
	}
	return props, nil
}

// Deserialize fills an entity struct from stored properties. related
// carries preloaded complex-property values keyed by property name; pass
// nil when none were loaded. Embedded values that fail to decode are left
// untouched rather than failing the whole read, so old rows with a
// different wire shape stay loadable.
func (s *Serializer) Deserialize(props map[string]any, related map[string][]map[string]any, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("deserialize target must be a non-nil pointer")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("deserialize target must point to a struct")
	}

	meta, err := s.reg.Get(v.Type())
	if err != nil {
		return err
	}

	for _, name := range meta.Order {
		fm := meta.Fields[name]
		raw, ok := props[fm.PropertyName]

		fv := v.FieldByIndex(fm.Index)
		switch fm.Kind {
		case schema.Native:
			if !ok || raw == nil {
				continue
			}
			if err := assignNative(fv, raw); err != nil {
				return &core.ValidationError{EntityType: meta.Type.Name(), Field: fm.Name, Reason: err.Error()}
			}
		case schema.Embedded:
			if !ok || raw == nil {
				continue
			}
			decodeEmbedded(fv, raw, fm.Codec)
		case schema.Related:
			values, ok := related[fm.PropertyName]
			if !ok {
				continue
			}
			if err := s.assignRelated(fv, fm, values); err != nil {
				return &core.ValidationError{EntityType: meta.Type.Name(), Field: fm.Name, Reason: err.Error()}
			}
		}
	}
	return nil
}

func (s *Serializer) assignRelated(fv reflect.Value, fm *schema.FieldMeta, values []map[string]any) error {
	if fm.IsCollection() {
		// Stored ordinals win over arrival order.
		values = append([]map[string]any(nil), values...)
		sort.SliceStable(values, func(i, j int) bool {
			a, _ := values[i][SequenceNumberProperty].(int64)
			b, _ := values[j][SequenceNumberProperty].(int64)
			return a < b
		})
		elemType := fv.Type().Elem()
		slice := reflect.MakeSlice(fv.Type(), 0, len(values))
		for _, props := range values {
			elem, err := buildValue(elemType, props)
			if err != nil {
				return err
			}
			slice = reflect.Append(slice, elem)
		}
		fv.Set(slice)
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	elem, err := buildValue(fv.Type(), values[0])
	if err != nil {
		return err
	}
	fv.Set(elem)
	return nil
}

// buildValue constructs a struct value of type t from a property map.
func buildValue(t reflect.Type, props map[string]any) (reflect.Value, error) {
	ptr := t.Kind() == reflect.Pointer
	st := t
	if ptr {
		st = t.Elem()
	}
	out := reflect.New(st).Elem()

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("graph")
		if tag == "-" {
			continue
		}
		raw, ok := props[propertyName(sf, tag)]
		if !ok || raw == nil {
			continue
		}
		fv := out.Field(i)
		if schema.IsSimpleType(fv.Type()) || schema.IsCollectionOfSimple(fv.Type()) {
			if err := assignNative(fv, raw); err != nil {
				return reflect.Value{}, err
			}
			continue
		}
		decodeEmbedded(fv, raw, schema.CodecJSON)
	}

	if ptr {
		p := reflect.New(st)
		p.Elem().Set(out)
		return p, nil
	}
	return out, nil
}

// nativeValue converts a Go field value to a driver-storable value.
// Named scalar types (enums) reduce to their underlying kind; simple
// collections become []any.
func nativeValue(v reflect.Value) (any, error) {
	t := v.Type()
	switch t {
	case timeType:
		return v.Interface(), nil
	case durationType:
		// Durations store as int64 nanoseconds.
		return v.Int(), nil
	case uuidType:
		return v.Interface().(uuid.UUID).String(), nil
	}

	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			reflect.Copy(reflect.ValueOf(b), v)
			return b, nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := nativeValue(v.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case reflect.Map:
		// Maps are opaquely simple: stored as one JSON property.
		return encodeEmbedded(v.Interface(), schema.CodecJSON)
	case reflect.Struct:
		// Depth-exhausted nested values route to native storage; encode
		// them like embedded values so they still round-trip.
		return encodeEmbedded(v.Interface(), schema.CodecJSON)
	}
	return nil, fmt.Errorf("type %s cannot be stored as a native property", t)
}

// assignNative sets a struct field from a driver value, converting
// between the driver's scalar kinds (int64, float64, string, bool) and
// the declared field type.
func assignNative(fv reflect.Value, raw any) error {
	if fv.Kind() == reflect.Pointer {
		p := reflect.New(fv.Type().Elem())
		if err := assignNative(p.Elem(), raw); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Type() == fv.Type() {
		fv.Set(rv)
		return nil
	}

	switch fv.Type() {
	case uuidType:
		if s, ok := raw.(string); ok {
			id, err := uuid.Parse(s)
			if err != nil {
				return err
			}
			fv.Set(reflect.ValueOf(id))
			return nil
		}
	case timeType:
		if t, ok := raw.(time.Time); ok {
			fv.Set(reflect.ValueOf(t))
			return nil
		}
	}

	switch fv.Kind() {
	case reflect.String:
		if s, ok := raw.(string); ok {
			fv.SetString(s)
			return nil
		}
	case reflect.Bool:
		if b, ok := raw.(bool); ok {
			fv.SetBool(b)
			return nil
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch n := raw.(type) {
		case int64:
			fv.SetInt(n)
			return nil
		case float64:
			fv.SetInt(int64(n))
			return nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if n, ok := raw.(int64); ok {
			fv.SetUint(uint64(n))
			return nil
		}
	case reflect.Float32, reflect.Float64:
		switch n := raw.(type) {
		case float64:
			fv.SetFloat(n)
			return nil
		case int64:
			fv.SetFloat(float64(n))
			return nil
		}
	case reflect.Slice:
		if fv.Type().Elem().Kind() == reflect.Uint8 {
			if b, ok := raw.([]byte); ok {
				fv.SetBytes(b)
				return nil
			}
		}
		if list, ok := raw.([]any); ok {
			slice := reflect.MakeSlice(fv.Type(), 0, len(list))
			for _, item := range list {
				elem := reflect.New(fv.Type().Elem()).Elem()
				if err := assignNative(elem, item); err != nil {
					return err
				}
				slice = reflect.Append(slice, elem)
			}
			fv.Set(slice)
			return nil
		}
	case reflect.Map:
		if s, ok := raw.(string); ok {
			decodeEmbedded(fv, s, schema.CodecJSON)
			return nil
		}
	case reflect.Struct:
		if s, ok := raw.(string); ok {
			decodeEmbedded(fv, s, schema.CodecJSON)
			return nil
		}
	}

	if rv.Type().ConvertibleTo(fv.Type()) {
		fv.Set(rv.Convert(fv.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign stored %T to field type %s", raw, fv.Type())
}

// encodeEmbedded serializes a value with the chosen codec. JSON values
// store as strings; msgpack values store as base64 strings so they pass
// through the driver's string property type.
func encodeEmbedded(value any, codec schema.Codec) (any, error) {
	switch codec {
	case schema.CodecMsgpack:
		data, err := msgpack.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("msgpack encode: %w", err)
		}
		return base64.StdEncoding.EncodeToString(data), nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("json encode: %w", err)
		}
		return string(data), nil
	}
}

// decodeEmbedded decodes a stored embedded value into fv. Decoding is
// tolerant: on any failure the field keeps its current value, so schema
// drift in stored data never makes rows unreadable.
func decodeEmbedded(fv reflect.Value, raw any, codec schema.Codec) {
	s, ok := raw.(string)
	if !ok {
		if rv := reflect.ValueOf(raw); rv.Type().AssignableTo(fv.Type()) {
			fv.Set(rv)
		}
		return
	}

	target := fv.Addr().Interface()
	switch codec {
	case schema.CodecMsgpack:
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return
		}
		_ = msgpack.Unmarshal(data, target)
	default:
		_ = json.Unmarshal([]byte(s), target)
	}
}

func propertyName(sf reflect.StructField, tag string) string {
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return lowerFirst(sf.Name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'A' && s[0] <= 'Z' {
		return string(s[0]+'a'-'A') + s[1:]
	}
	return s
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
)
