package attr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetSortsByKey(t *testing.T) {
	s := NewSet(
		String("c", "3"),
		String("a", "1"),
		String("b", "2"),
	)

	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
}

func TestNewSetDeduplicatesLastWins(t *testing.T) {
	s := NewSet(
		String("order.status", "PENDING"),
		String("order.status", "CONFIRMED"),
	)

	require.Equal(t, 1, s.Len())
	v, ok := s.Get("order.status")
	require.True(t, ok)
	assert.Equal(t, "CONFIRMED", v.String())
}

func TestNewSetDropsAbsent(t *testing.T) {
	s := NewSet(
		String("order.id", "O-1"),
		Any("customer", nil),
		Fields(nil),
	)

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has("order.id"))
}

func TestNewSetKeepsFieldsEntries(t *testing.T) {
	s := NewSet(
		Fields(orderFields{"a": "1"}),
		Fields(orderFields{"b": "2"}),
		String("c", "3"),
	)

	// Fields attributes carry no key and must never be collapsed as
	// duplicates of one another.
	assert.Equal(t, 3, s.Len())
}

func TestGetMissing(t *testing.T) {
	s := NewSet(String("a", "1"))

	v, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, KindAbsent, v.Kind())
}

func TestMerge(t *testing.T) {
	base := NewSet(
		String("operation", "create"),
		String("order.status", "PENDING"),
	)

	merged := base.Merge(
		String("order.status", "CONFIRMED"),
		Int("order.items", 2),
	)

	assert.Equal(t, 3, merged.Len())
	v, ok := merged.Get("order.status")
	require.True(t, ok)
	assert.Equal(t, "CONFIRMED", v.String())

	// Original set is untouched.
	v, ok = base.Get("order.status")
	require.True(t, ok)
	assert.Equal(t, "PENDING", v.String())
}

func TestMergeEmpty(t *testing.T) {
	s := NewSet(String("a", "1"))
	assert.Equal(t, s, s.Merge())
	assert.Equal(t, 1, EmptySet.Merge(String("a", "1")).Len())
}

func TestRangeStopsEarly(t *testing.T) {
	s := NewSet(String("a", "1"), String("b", "2"), String("c", "3"))

	var seen int
	s.Range(func(Attr) bool {
		seen++
		return seen < 2
	})
	assert.Equal(t, 2, seen)
}

func TestSetEmit(t *testing.T) {
	s := NewSet(
		String("order.id", "O-1"),
		Fields(orderFields{"order.status": "PENDING"}),
		Int("order.items", 2),
	)

	kvs := s.Emit()
	assert.Len(t, kvs, 3)
}
