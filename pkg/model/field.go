package model

import (
	"fmt"
	"sort"
)

// FieldType enumerates the value shapes a field can carry.
type FieldType uint8

const (
	TypeString FieldType = iota
	TypeBool
	TypeInt
	TypeStringList
)

// String returns the type name used in error messages.
func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeStringList:
		return "string list"
	default:
		return "invalid"
	}
}

// Raw is the untyped view of a field value consumed by the generic diff,
// load, and render machinery. V holds a string, bool, int, or []string
// when State is Set, and nil otherwise.
type Raw struct {
	State State
	V     any
}

// RawOf returns a Set Raw carrying v.
func RawOf(v any) Raw {
	return Raw{State: Set, V: v}
}

// RawNull returns an explicitly cleared Raw.
func RawNull() Raw {
	return Raw{State: Null}
}

// RawUnset returns an unspecified Raw.
func RawUnset() Raw {
	return Raw{State: Unset}
}

// Equal reports whether two raw values are equivalent in state and content.
func (r Raw) Equal(o Raw) bool {
	if r.State != o.State {
		return false
	}
	if r.State != Set {
		return true
	}
	switch a := r.V.(type) {
	case string:
		b, ok := o.V.(string)
		return ok && a == b
	case bool:
		b, ok := o.V.(bool)
		return ok && a == b
	case int:
		b, ok := o.V.(int)
		return ok && a == b
	case []string:
		b, ok := o.V.([]string)
		if !ok || len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FieldDescriptor describes one field of an entity: its wire name, value
// shape, default, capability flags, and a typed accessor. Generic
// machinery consults descriptor tables instead of runtime introspection.
type FieldDescriptor struct {
	Name    string
	Type    FieldType
	Default any

	// Capability flags.
	Key          bool // uniquely identifies an instance within its parent list
	ExternalOnly bool // provider-assigned, absent from user config
	ModelOnly    bool // config-only, never exchanged with the provider
	ReadOnly     bool // provider-assigned, rejected when set in config
	Nested       bool // holds nested model objects, handled by tree logic

	// Bind returns a pointer to the entity's typed Value field:
	// *Value[string], *Value[bool], *Value[int], or *Value[[]string].
	// Nil for nested fields.
	Bind func(ModelObject) any
}

// GetRaw reads the field's current raw value from o.
func (d FieldDescriptor) GetRaw(o ModelObject) Raw {
	switch p := d.Bind(o).(type) {
	case *Value[string]:
		return p.Raw()
	case *Value[bool]:
		return p.Raw()
	case *Value[int]:
		return p.Raw()
	case *Value[[]string]:
		return p.Raw()
	default:
		panic(fmt.Sprintf("model: field %q has unsupported binding %T", d.Name, p))
	}
}

// SetRaw writes r into the field on o, coercing loosely typed input
// (YAML integers, []any lists) into the declared field type.
func (d FieldDescriptor) SetRaw(o ModelObject, r Raw) error {
	switch p := d.Bind(o).(type) {
	case *Value[string]:
		return assignValue(p, d, r, coerceString)
	case *Value[bool]:
		return assignValue(p, d, r, coerceBool)
	case *Value[int]:
		return assignValue(p, d, r, coerceInt)
	case *Value[[]string]:
		return assignValue(p, d, r, coerceStringList)
	default:
		return fmt.Errorf("model: field %q has unsupported binding %T", d.Name, p)
	}
}

func assignValue[T any](p *Value[T], d FieldDescriptor, r Raw, coerce func(any) (T, bool)) error {
	switch r.State {
	case Unset:
		*p = UnsetOf[T]()
	case Null:
		*p = NullOf[T]()
	case Set:
		v, ok := coerce(r.V)
		if !ok {
			return fmt.Errorf("field %q expects a %s value, got %T", d.Name, d.Type, r.V)
		}
		*p = Of(v)
	}
	return nil
}

func coerceString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func coerceBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

// coerceStringList canonicalizes list fields by sorting a copy. Every
// list field in the model is a set (events, topics, reviewers, status
// check contexts), and the provider returns them in arbitrary order, so
// sorted storage keeps equality order-insensitive.
func coerceStringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		out := make([]string, len(l))
		copy(out, l)
		sort.Strings(out)
		return out, true
	case []any:
		out := make([]string, 0, len(l))
		for _, e := range l {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		sort.Strings(out)
		return out, true
	}
	return nil, false
}

// fieldByName returns the descriptor with the given wire name.
func fieldByName(fields []FieldDescriptor, name string) (FieldDescriptor, bool) {
	for _, d := range fields {
		if d.Name == name {
			return d, true
		}
	}
	return FieldDescriptor{}, false
}
