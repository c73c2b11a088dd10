package platform

import (
	"testing"

	"github.com/destenson/dsvision/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_FallsThroughToStandard(t *testing.T) {
	p, err := Probe("", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendStandard, p.Name())
	assert.True(t, p.Capabilities().SupportsInference)
	assert.False(t, p.Capabilities().SupportsOSD)
}

func TestProbe_ForceMock(t *testing.T) {
	p, err := Probe("mock", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendMock, p.Name())
}

func TestProbe_ForceUnknown(t *testing.T) {
	_, err := Probe("quantum", nil)
	require.Error(t, err)
}

func TestProbe_ForceDeepStreamHonoredEvenWhenUnavailable(t *testing.T) {
	p, err := Probe("deepstream", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendDeepStream, p.Name())

	_, err = p.CreateElement(core.RoleDecoder, "dec0", nil)
	require.Error(t, err)
}

func TestStandardBackend_RejectsUnknownCodec(t *testing.T) {
	p, err := Probe("standard", nil)
	require.NoError(t, err)

	_, err = p.CreateElement(core.RoleDecoder, "dec0", map[string]any{"codec": "not-a-codec"})
	require.Error(t, err)

	el, err := p.CreateElement(core.RoleDecoder, "dec0", map[string]any{"codec": "h264"})
	require.NoError(t, err)
	assert.Equal(t, "dec0", el.Name())
}

func TestStandardBackend_NoHardwareOSD(t *testing.T) {
	p, err := Probe("standard", nil)
	require.NoError(t, err)
	_, err = p.CreateElement(core.RoleOsd, "osd0", nil)
	require.Error(t, err)
}
