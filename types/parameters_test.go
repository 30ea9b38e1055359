package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersWith(t *testing.T) {
	var p Parameters
	assert.True(t, p.IsEmpty())

	q := p.With("b", 1).With("a", "x").With("b", 2)
	assert.True(t, p.IsEmpty(), "With must not modify the receiver")
	assert.Equal(t, []string{"b", "a"}, q.Keys())
	v, ok := q.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2.0, v, "numbers are stored as float64")
	assert.Equal(t, "x", q.String("a"))
	assert.Equal(t, "", q.String("b"))

	r := q.Without("b")
	assert.Equal(t, []string{"a"}, r.Keys())
	assert.Equal(t, 2, q.Len())
}

func TestParametersMergeIntersect(t *testing.T) {
	a := NewParameters("x", 1, "y", "same")
	b := NewParameters("y", "same", "z", true)

	merged := a.Merge(b)
	assert.Equal(t, []string{"x", "y", "z"}, merged.Keys())

	common := a.Intersect(b)
	assert.Equal(t, []string{"y"}, common.Keys())

	c := NewParameters("y", "different")
	assert.True(t, a.Intersect(c).IsEmpty())
}

func TestParametersEqual(t *testing.T) {
	a := NewParameters("x", 1, "y", "s")
	b := NewParameters("y", "s", "x", 1.0)
	assert.True(t, a.Equal(b), "order does not matter")
	assert.True(t, a.Equal(b.With("z", nil)), "null values count as absent")
	assert.False(t, a.Equal(b.With("z", false)))
}

func TestParametersJSON(t *testing.T) {
	p := NewParameters(ArrayKey, "string", "list", []string{"a", "b"}, "nested", map[string]any{"n": 3})
	data, err := p.MarshalJSON()
	require.NoError(t, err)

	var back Parameters
	require.NoError(t, back.UnmarshalJSON(data))
	assert.True(t, p.Equal(back))
	assert.Equal(t, []string{ArrayKey, "list", "nested"}, back.Keys(), "keys are sorted on read")

	fromMap := ParametersFromMap(map[string]any{"b": 1, "a": 2})
	assert.Equal(t, []string{"a", "b"}, fromMap.Keys())
	assert.Equal(t, map[string]any{"a": 2.0, "b": 1.0}, fromMap.Map())
}
