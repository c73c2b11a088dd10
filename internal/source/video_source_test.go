package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/platform"
)

func TestParseURIValidSchemes(t *testing.T) {
	cases := []struct {
		uri     string
		scheme  Scheme
		rest    string
		pattern string
	}{
		{"file:///tmp/clip.ts", SchemeFile, "/tmp/clip.ts", ""},
		{"rtsp://cam.local/stream", SchemeRTSP, "cam.local/stream", ""},
		{"rtspt://cam.local/stream", SchemeRTSPT, "cam.local/stream", ""},
		{"http://cam.local/stream.m3u8", SchemeHTTP, "cam.local/stream.m3u8", ""},
		{"https://cam.local/stream.m3u8", SchemeHTTPS, "cam.local/stream.m3u8", ""},
		{"videotestsrc://smpte", SchemeVideoTestSrc, "smpte", "smpte"},
	}
	for _, c := range cases {
		p, err := ParseURI(c.uri)
		require.NoError(t, err, c.uri)
		assert.Equal(t, c.scheme, p.Scheme, c.uri)
		assert.Equal(t, c.rest, p.Rest, c.uri)
		assert.Equal(t, c.pattern, p.Pattern, c.uri)
	}
}

func TestParseURIRejectsEmpty(t *testing.T) {
	_, err := ParseURI("")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParseURIRejectsUnknownScheme(t *testing.T) {
	_, err := ParseURI("ftp://host/path")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestParseURIRejectsMissingScheme(t *testing.T) {
	_, err := ParseURI("just-a-path")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func newMockVideoSource(t *testing.T, uri string) *VideoSource {
	t.Helper()
	p, err := platform.Probe("mock", nil)
	require.NoError(t, err)
	vs, err := NewVideoSource(core.SourceId(0), uri, p)
	require.NoError(t, err)
	return vs
}

func TestVideoSourceStartsIdleWithExpectedPadName(t *testing.T) {
	vs := newMockVideoSource(t, "videotestsrc://ball")
	assert.Equal(t, core.SourceIdle, vs.State())
	assert.Equal(t, "sink_0", vs.PadName())
	assert.Equal(t, core.SourceId(0), vs.ID())
}

func TestVideoSourceSetState(t *testing.T) {
	vs := newMockVideoSource(t, "videotestsrc://ball")
	vs.SetState(core.SourcePlaying)
	assert.Equal(t, core.SourcePlaying, vs.State())
}

func TestVideoSourceNextTimestampNSIsMonotonicWithoutPTSReader(t *testing.T) {
	vs := newMockVideoSource(t, "videotestsrc://ball")
	first := vs.NextTimestampNS()
	time.Sleep(time.Millisecond)
	second := vs.NextTimestampNS()
	assert.Greater(t, second, first, "non-ts sources fall back to a monotonic synthetic clock")
}

func TestVideoSourceCloseIsSafeWithoutPTSReader(t *testing.T) {
	vs := newMockVideoSource(t, "videotestsrc://ball")
	assert.NoError(t, vs.Close())
}

func TestVideoSourceCloseWithMissingTSFileDoesNotFailConstruction(t *testing.T) {
	// newTSPTSReader fails silently (file does not exist); construction
	// must still succeed and fall back to the synthetic clock.
	vs := newMockVideoSource(t, "file:///nonexistent/clip.ts")
	assert.GreaterOrEqual(t, vs.NextTimestampNS(), uint64(0))
	assert.NoError(t, vs.Close())
}
