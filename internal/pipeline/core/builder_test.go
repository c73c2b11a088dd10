package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dscore "github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/platform"
)

func mockPlatform(t *testing.T) *platform.Platform {
	t.Helper()
	p, err := platform.Probe("mock", nil)
	require.NoError(t, err)
	return p
}

func TestBuilderBuildsLinksAndProperties(t *testing.T) {
	p := mockPlatform(t)

	pl, err := NewBuilder(p).
		AddElement(dscore.RoleDecoder, "decoder", map[string]any{"uri": "file://x.ts"}).
		AddElement(dscore.RoleInference, "infer", nil).
		SetProperty("infer", "conf-threshold", 0.5).
		Link("decoder", "infer").
		Build()
	require.NoError(t, err)

	el, ok := pl.GetByName("infer")
	require.True(t, ok)
	v, ok := el.Property("conf-threshold")
	require.True(t, ok)
	assert.Equal(t, 0.5, v)

	assert.Equal(t, []string{"decoder", "infer"}, pl.Names())
	assert.Equal(t, StateReady, pl.State())
}

func TestBuilderRejectsDuplicateNames(t *testing.T) {
	p := mockPlatform(t)
	_, err := NewBuilder(p).
		AddElement(dscore.RoleDecoder, "decoder", nil).
		AddElement(dscore.RoleDecoder, "decoder", nil).
		Build()
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestBuilderRejectsLinkToMissingElement(t *testing.T) {
	p := mockPlatform(t)
	_, err := NewBuilder(p).
		AddElement(dscore.RoleDecoder, "decoder", nil).
		Link("decoder", "nonexistent").
		Build()
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestBuilderStartPaused(t *testing.T) {
	p := mockPlatform(t)
	pl, err := NewBuilder(p).StartPaused(true).
		AddElement(dscore.RoleDecoder, "decoder", nil).
		Build()
	require.NoError(t, err)
	assert.Equal(t, StatePaused, pl.State())
}

func TestPipelineSetStateOutcomes(t *testing.T) {
	p := mockPlatform(t)
	pl, err := NewBuilder(p).AddElement(dscore.RoleDecoder, "decoder", nil).Build()
	require.NoError(t, err)

	assert.Equal(t, StateChangeAsync, pl.SetState(StatePlaying))
	assert.Equal(t, StatePlaying, pl.State())

	assert.Equal(t, StateChangeSuccess, pl.SetState(StatePlaying), "no-op transition reports success")

	assert.Equal(t, StateChangeSuccess, pl.SetState(StateNull))
	assert.Equal(t, StateNull, pl.State())
}

func TestPipelineWaitForStateAlreadyThere(t *testing.T) {
	p := mockPlatform(t)
	pl, err := NewBuilder(p).AddElement(dscore.RoleDecoder, "decoder", nil).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, pl.WaitForState(ctx, StateReady, time.Second))
}

func TestPipelineWaitForStateTimesOut(t *testing.T) {
	p := mockPlatform(t)
	pl, err := NewBuilder(p).AddElement(dscore.RoleDecoder, "decoder", nil).Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err = pl.WaitForState(ctx, StatePlaying, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrStateTimeout)
}

func TestPipelineGetByNameMissing(t *testing.T) {
	p := mockPlatform(t)
	pl, err := NewBuilder(p).AddElement(dscore.RoleDecoder, "decoder", nil).Build()
	require.NoError(t, err)

	_, ok := pl.GetByName("nonexistent")
	assert.False(t, ok)
}
