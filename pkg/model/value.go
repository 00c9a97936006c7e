package model

// State identifies how a field value was provided.
type State uint8

const (
	// Unset means the field was not specified at all; it inherits the
	// provider default and is never diffed or sent on the wire.
	Unset State = iota
	// Null means the field was explicitly cleared.
	Null
	// Set means the field carries a concrete value.
	Set
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Unset:
		return "unset"
	case Null:
		return "null"
	case Set:
		return "set"
	default:
		return "invalid"
	}
}

// Value is a three-state field container. The zero Value is Unset, which
// keeps "not specified" distinct from an explicit null or empty value.
type Value[T any] struct {
	state State
	v     T
}

// Of returns a Value carrying v.
func Of[T any](v T) Value[T] {
	return Value[T]{state: Set, v: v}
}

// NullOf returns an explicitly cleared Value.
func NullOf[T any]() Value[T] {
	return Value[T]{state: Null}
}

// UnsetOf returns an unspecified Value. Equivalent to the zero Value.
func UnsetOf[T any]() Value[T] {
	return Value[T]{}
}

// State reports the value's state.
func (v Value[T]) State() State {
	return v.state
}

// IsSet reports whether the value carries concrete data.
func (v Value[T]) IsSet() bool {
	return v.state == Set
}

// IsNull reports whether the value was explicitly cleared.
func (v Value[T]) IsNull() bool {
	return v.state == Null
}

// IsUnset reports whether the value was never specified.
func (v Value[T]) IsUnset() bool {
	return v.state == Unset
}

// Get returns the carried value and whether one is present.
func (v Value[T]) Get() (T, bool) {
	return v.v, v.state == Set
}

// Or returns the carried value, or def when the value is not Set.
func (v Value[T]) Or(def T) T {
	if v.state == Set {
		return v.v
	}
	return def
}

// Raw returns the untyped view used by generic field machinery.
func (v Value[T]) Raw() Raw {
	if v.state != Set {
		return Raw{State: v.state}
	}
	return Raw{State: Set, V: v.v}
}

// Effective returns the value that will hold after reconciliation:
// expected when set, otherwise current, otherwise the default. Exclusion
// predicates consult it so that post-apply state governs which fields are
// inert.
func Effective[T any](expected, current Value[T], def T) T {
	if v, ok := expected.Get(); ok {
		return v
	}
	return current.Or(def)
}
