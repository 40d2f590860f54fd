package arena

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroHandleNeverResolves(t *testing.T) {
	var a Arena[string]
	a.Insert("first")

	_, ok := a.Get(Handle{})
	assert.False(t, ok)

	_, err := a.Remove(Handle{})
	assert.True(t, errors.Is(err, ErrStale))
	assert.Equal(t, 1, a.Len())
}

func TestInsertGetRemove(t *testing.T) {
	var a Arena[int]
	h := a.Insert(42)
	require.False(t, h.IsZero())

	v, ok := a.Get(h)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	removed, err := a.Remove(h)
	require.NoError(t, err)
	assert.Equal(t, 42, removed)
	assert.Equal(t, 0, a.Len())

	_, ok = a.Get(h)
	assert.False(t, ok)
}

func TestDoubleRemoveIsRejected(t *testing.T) {
	var a Arena[int]
	h := a.Insert(1)
	dup := h

	_, err := a.Remove(h)
	require.NoError(t, err)

	_, err = a.Remove(dup)
	assert.True(t, errors.Is(err, ErrStale))
}

func TestReusedSlotGetsNewGeneration(t *testing.T) {
	var a Arena[string]
	old := a.Insert("old")
	_, err := a.Remove(old)
	require.NoError(t, err)

	fresh := a.Insert("fresh")
	assert.Equal(t, old.index, fresh.index)
	assert.NotEqual(t, old.generation, fresh.generation)

	_, ok := a.Get(old)
	assert.False(t, ok)

	_, err = a.Remove(old)
	assert.True(t, errors.Is(err, ErrStale))

	v, ok := a.Get(fresh)
	require.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestEachAndDrain(t *testing.T) {
	var a Arena[int]
	a.Insert(1)
	mid := a.Insert(2)
	a.Insert(3)
	_, _ = a.Remove(mid)

	var seen []int
	a.Each(func(_ Handle, v int) { seen = append(seen, v) })
	assert.Equal(t, []int{1, 3}, seen)

	var drained []int
	a.Drain(func(v int) { drained = append(drained, v) })
	assert.Equal(t, []int{1, 3}, drained)
	assert.Equal(t, 0, a.Len())
}
