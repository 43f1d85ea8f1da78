package attr

import (
	"fmt"
	"math"
	"reflect"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Kind represents the type of a Value.
//
// The set of kinds is deliberately closed: it mirrors the parameter
// shapes a traced operation may bind as span attributes. Anything
// outside the set is rendered through its default string form at
// construction time, so no reflection happens on the hot path.
type Kind int

const (
	// KindAbsent marks a value that must not become an attribute,
	// such as a nil pointer or nil interface parameter.
	KindAbsent Kind = iota
	KindString
	KindInt64
	KindFloat64
	KindBool
	// KindFields marks a value whose Attributer map is merged into
	// the span instead of being set under a single key.
	KindFields
)

// Value is a union type that can hold any bindable attribute value.
// Basic types (int64, float64, bool) are stored inline without
// allocation.
type Value struct {
	kind   Kind
	num    uint64
	str    string
	fields Attributer
}

// Kind returns the type of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// StringValue creates a Value from a string.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// Int64Value creates a Value from an int64.
func Int64Value(n int64) Value {
	return Value{kind: KindInt64, num: uint64(n)}
}

// Float64Value creates a Value from a float64.
func Float64Value(f float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(f)}
}

// BoolValue creates a Value from a bool.
func BoolValue(b bool) Value {
	var n uint64
	if b {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

// FieldsValue creates a Value that expands an Attributer's map.
// A nil Attributer yields an absent value, including the typed-nil
// case (a nil pointer hiding inside a non-nil interface), which would
// otherwise deref nil when the map is projected.
func FieldsValue(a Attributer) Value {
	if a == nil || isNil(a) {
		return Value{}
	}
	return Value{kind: KindFields, fields: a}
}

// AnyValue creates a Value from an arbitrary parameter. Members of the
// closed kind set are stored natively, Attributers expand their field
// map, and everything else falls back to its default string form.
// A nil value is absent and will never be emitted.
func AnyValue(v any) Value {
	switch val := v.(type) {
	case nil:
		return Value{}
	case string:
		return StringValue(val)
	case int:
		return Int64Value(int64(val))
	case int32:
		return Int64Value(int64(val))
	case int64:
		return Int64Value(val)
	case float32:
		return Float64Value(float64(val))
	case float64:
		return Float64Value(val)
	case bool:
		return BoolValue(val)
	case Attributer:
		return FieldsValue(val)
	default:
		if isNil(val) {
			return Value{}
		}
		return StringValue(fmt.Sprintf("%v", val))
	}
}

// isNil reports whether v is a typed nil hiding inside a non-nil
// interface.
func isNil(v any) bool {
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// Fielder returns the Attributer backing a KindFields value, or nil.
func (v Value) Fielder() Attributer {
	if v.kind != KindFields {
		return nil
	}
	return v.fields
}

// Emit converts the value into zero or more OpenTelemetry attributes
// under the given key. Absent values emit nothing; field values emit
// one attribute per non-blank map entry and ignore the key.
func (v Value) Emit(key string) []attribute.KeyValue {
	switch v.kind {
	case KindString:
		return []attribute.KeyValue{attribute.String(key, v.str)}
	case KindInt64:
		return []attribute.KeyValue{attribute.Int64(key, int64(v.num))}
	case KindFloat64:
		return []attribute.KeyValue{attribute.Float64(key, math.Float64frombits(v.num))}
	case KindBool:
		return []attribute.KeyValue{attribute.Bool(key, v.num != 0)}
	case KindFields:
		return fieldAttributes(v.fields)
	default:
		return nil
	}
}

// String returns a string representation of the value.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt64:
		return strconv.FormatInt(int64(v.num), 10)
	case KindFloat64:
		return strconv.FormatFloat(math.Float64frombits(v.num), 'g', -1, 64)
	case KindBool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case KindFields:
		return fmt.Sprintf("%v", v.fields.TraceAttributes())
	default:
		return ""
	}
}
