package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destenson/dsvision/internal/core"
)

func TestRegistryAllocateFreeReusesSmallestID(t *testing.T) {
	r := NewRegistry(3)

	a, err := r.Allocate("uri-a")
	require.NoError(t, err)
	b, err := r.Allocate("uri-b")
	require.NoError(t, err)
	assert.Equal(t, core.SourceId(0), a)
	assert.Equal(t, core.SourceId(1), b)

	r.Free(a)
	c, err := r.Allocate("uri-c")
	require.NoError(t, err)
	assert.Equal(t, core.SourceId(0), c, "freed slot is reused as the smallest free index")
}

func TestRegistryAllocateFullReturnsResourceLimit(t *testing.T) {
	r := NewRegistry(1)
	_, err := r.Allocate("uri-a")
	require.NoError(t, err)

	_, err = r.Allocate("uri-b")
	assert.ErrorIs(t, err, core.ErrResourceLimit)
}

func TestRegistryGetSetStateAndEnabled(t *testing.T) {
	r := NewRegistry(2)
	id, err := r.Allocate("uri-a")
	require.NoError(t, err)

	r.SetState(id, core.SourcePlaying)
	r.SetEnabled(id, true)

	entry, ok := r.Get(id)
	require.True(t, ok)
	assert.Equal(t, core.SourcePlaying, entry.State)
	assert.True(t, entry.Enabled)
}

func TestRegistryFreeIsIdempotent(t *testing.T) {
	r := NewRegistry(2)
	id, err := r.Allocate("uri-a")
	require.NoError(t, err)

	r.Free(id)
	r.Free(id)
	assert.Equal(t, 0, r.Count())
	assert.False(t, r.IsOccupied(id))
}

func TestRegistryIDsAscending(t *testing.T) {
	r := NewRegistry(4)
	_, _ = r.Allocate("a")
	b, _ := r.Allocate("b")
	_, _ = r.Allocate("c")
	r.Free(b)
	d, _ := r.Allocate("d")

	assert.Equal(t, core.SourceId(1), d, "d reuses b's freed slot")
	assert.Equal(t, []core.SourceId{0, 1, 2}, r.IDs())
}

func TestRegistryDefaultMaxSize(t *testing.T) {
	r := NewRegistry(0)
	assert.Equal(t, DefaultMaxSources, r.MaxSize())
}
