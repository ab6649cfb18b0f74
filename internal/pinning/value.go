package pinning

import (
	"errors"
	"fmt"
)

// ErrUnsupportedValueKind is returned when an annotation is not one of the
// closed set of scalar kinds.
var ErrUnsupportedValueKind = errors.New("pinning: unsupported annotation value kind")

// ValueKind enumerates the closed set of scalar kinds an annotation may hold.
type ValueKind string

const (
	ValueString ValueKind = "string"
	ValueInt    ValueKind = "int"
	ValueFloat  ValueKind = "float"
	ValueBool   ValueKind = "bool"
)

// Value is a tagged scalar used for pin and validator annotations. It
// replaces the dynamic option bags of the original design with an explicit
// closed variant; anything outside the four kinds is rejected up front.
type Value struct {
	Kind ValueKind `json:"kind"`
	Str  string    `json:"str,omitempty"`
	Int  int64     `json:"int,omitempty"`
	Flt  float64   `json:"float,omitempty"`
	Bool bool      `json:"bool,omitempty"`
}

// StringValue builds a string-kinded Value.
func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

// IntValue builds an int-kinded Value.
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }

// FloatValue builds a float-kinded Value.
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Flt: f} }

// BoolValue builds a bool-kinded Value.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// ValueOf converts a decoded scalar (e.g. from YAML) into a Value.
// Non-scalar or unknown types return ErrUnsupportedValueKind.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return StringValue(t), nil
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case float64:
		return FloatValue(t), nil
	case bool:
		return BoolValue(t), nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValueKind, v)
	}
}

// String renders the scalar for logs and reports.
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueInt:
		return fmt.Sprintf("%d", v.Int)
	case ValueFloat:
		return fmt.Sprintf("%g", v.Flt)
	case ValueBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return ""
	}
}
