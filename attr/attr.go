// Package attr provides the attribute vocabulary for traced operations.
//
// An Attr binds one operation parameter to a span attribute key. The
// value side is a closed union (string, int64, float64, bool, an
// Attributer field map, or a stringified fallback); absent values, such
// as nil pointers, are skipped entirely rather than emitted as empty
// attributes.
package attr

import (
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// Attr is a key-value pair bound to a span as an attribute.
type Attr struct {
	Key   string
	Value Value
}

// String creates a string attribute.
func String(key, value string) Attr {
	return Attr{Key: key, Value: StringValue(value)}
}

// Int creates an int attribute (stored as int64).
func Int(key string, value int) Attr {
	return Attr{Key: key, Value: Int64Value(int64(value))}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: Int64Value(value)}
}

// Float64 creates a float64 attribute.
func Float64(key string, value float64) Attr {
	return Attr{Key: key, Value: Float64Value(value)}
}

// Bool creates a bool attribute.
func Bool(key string, value bool) Attr {
	return Attr{Key: key, Value: BoolValue(value)}
}

// Stringer creates an attribute from a fmt.Stringer. A nil stringer is
// absent and will be skipped.
func Stringer(key string, value fmt.Stringer) Attr {
	if value == nil || isNil(value) {
		return Attr{Key: key}
	}
	return Attr{Key: key, Value: StringValue(value.String())}
}

// Any creates an attribute from an arbitrary parameter value.
// See AnyValue for the supported shapes.
func Any(key string, value any) Attr {
	return Attr{Key: key, Value: AnyValue(value)}
}

// Fields creates an attribute whose Attributer map is merged into the
// span. The per-entry keys come from the map, so no key is declared
// here. A nil Attributer is absent and will be skipped.
func Fields(a Attributer) Attr {
	return Attr{Value: FieldsValue(a)}
}

// Emit converts the attribute into zero or more OpenTelemetry
// attributes. Absent values and blank keys emit nothing.
func (a Attr) Emit() []attribute.KeyValue {
	if a.Value.kind != KindFields && strings.TrimSpace(a.Key) == "" {
		return nil
	}
	return a.Value.Emit(a.Key)
}

// String returns a string representation of the attribute.
func (a Attr) String() string {
	return a.Key + "=" + a.Value.String()
}

// WithKey returns a new attribute with the given key.
func (a Attr) WithKey(key string) Attr {
	return Attr{Key: key, Value: a.Value}
}

// fieldAttributes flattens an Attributer's map into OpenTelemetry
// attributes, filtering blank keys and values. Entries are emitted in
// sorted key order so output is deterministic.
func fieldAttributes(a Attributer) []attribute.KeyValue {
	fields := a.TraceAttributes()
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(fields[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]attribute.KeyValue, len(keys))
	for i, k := range keys {
		kvs[i] = attribute.String(k, fields[k])
	}
	return kvs
}
