package attr

import (
	"sort"

	"go.opentelemetry.io/otel/attribute"
)

// Set is an immutable collection of attributes, sorted by key.
// Duplicate keys are deduplicated (last value wins). Absent values are
// dropped at construction so a Set only ever holds emittable entries.
type Set struct {
	attrs []Attr
}

// NewSet creates a new Set from the given attributes.
// Attributes are sorted by key and duplicates are deduplicated; Fields
// attributes keep their map expansion and sort under the empty key.
func NewSet(attrs ...Attr) Set {
	kept := make([]Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Value.Kind() == KindAbsent {
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		return Set{}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Key < kept[j].Key
	})

	// Deduplicate (keep last value for each key). Fields attributes
	// carry no key of their own and are never collapsed.
	deduped := kept[:0]
	for i, a := range kept {
		if i > 0 && a.Key != "" && kept[i-1].Key == a.Key {
			deduped[len(deduped)-1] = a
		} else {
			deduped = append(deduped, a)
		}
	}

	return Set{attrs: deduped}
}

// Len returns the number of attributes in the set.
func (s Set) Len() int {
	return len(s.attrs)
}

// Attrs returns a slice of the attributes.
// The returned slice should not be modified.
func (s Set) Attrs() []Attr {
	return s.attrs
}

// Get returns the value for the given key, or zero Value if not found.
func (s Set) Get(key string) (Value, bool) {
	i := sort.Search(len(s.attrs), func(i int) bool {
		return s.attrs[i].Key >= key
	})
	if i < len(s.attrs) && s.attrs[i].Key == key {
		return s.attrs[i].Value, true
	}
	return Value{}, false
}

// Has returns true if the set contains the given key.
func (s Set) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Merge creates a new Set by merging this set with additional
// attributes. Attributes in 'other' override those in this set if keys
// match.
func (s Set) Merge(other ...Attr) Set {
	if len(other) == 0 {
		return s
	}
	if len(s.attrs) == 0 {
		return NewSet(other...)
	}

	combined := make([]Attr, 0, len(s.attrs)+len(other))
	combined = append(combined, s.attrs...)
	combined = append(combined, other...)
	return NewSet(combined...)
}

// Range iterates over all attributes in the set.
func (s Set) Range(fn func(Attr) bool) {
	for _, a := range s.attrs {
		if !fn(a) {
			return
		}
	}
}

// Keys returns a slice of all keys in the set.
func (s Set) Keys() []string {
	keys := make([]string, len(s.attrs))
	for i, a := range s.attrs {
		keys[i] = a.Key
	}
	return keys
}

// Emit converts the whole set into OpenTelemetry attributes.
func (s Set) Emit() []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(s.attrs))
	for _, a := range s.attrs {
		kvs = append(kvs, a.Emit()...)
	}
	return kvs
}

// EmptySet is an empty attribute set.
var EmptySet = Set{}
