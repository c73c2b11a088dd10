package bridge

import (
	"testing"
	"time"

	"github.com/destenson/dsvision/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBridgeBound verifies that with a capacity of 30, pushing 40 frames
// with increasing timestamps leaves exactly 30 buffered and drops at
// least 10.
func TestBridgeBound(t *testing.T) {
	b := New(30, time.Hour) // latency bound disabled via a large window; test pure capacity eviction
	base := time.Now()

	for i := 0; i < 40; i++ {
		b.UpdateObjects(nil, base.Add(time.Duration(i)*time.Millisecond), uint64(i), 1.0)
	}

	stats := b.Stats()
	assert.Equal(t, 30, stats.BufferSize)
	assert.GreaterOrEqual(t, stats.FramesDropped, uint64(10))
}

// TestGetCurrentObjects verifies that after UpdateObjects(objs, t),
// GetCurrentObjects returns (objs, t) until the next update.
func TestGetCurrentObjects(t *testing.T) {
	b := New(DefaultCapacity, DefaultMaxLatency)
	ts := time.Now()
	objs := []core.ObjectMeta{{ObjectID: 1, ClassID: 0}}

	b.UpdateObjects(objs, ts, 1, 5)

	got, gotTS, ok := b.GetCurrentObjects()
	require.True(t, ok)
	assert.Equal(t, objs, got)
	assert.True(t, ts.Equal(gotTS))

	b.UpdateObjects(nil, ts.Add(time.Millisecond), 2, 5)
	got, _, ok = b.GetCurrentObjects()
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestLatencyBasedEviction(t *testing.T) {
	b := New(30, 50*time.Millisecond)
	base := time.Now()

	b.UpdateObjects(nil, base, 1, 1)
	b.UpdateObjects(nil, base.Add(200*time.Millisecond), 2, 1)

	stats := b.Stats()
	assert.Equal(t, 1, stats.BufferSize)
	assert.Equal(t, uint64(1), stats.FramesDropped)
}

func TestGetFrameMetadataClosestMatch(t *testing.T) {
	b := New(DefaultCapacity, time.Hour)
	base := time.Now()
	b.UpdateObjects(nil, base, 0, 1)
	b.UpdateObjects(nil, base.Add(100*time.Millisecond), 1, 1)
	b.UpdateObjects(nil, base.Add(300*time.Millisecond), 2, 1)

	frame, ok := b.GetFrameMetadata(base.Add(120 * time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, uint64(1), frame.FrameNumber)
}

func TestSyncWithPipelineEvictsStale(t *testing.T) {
	b := New(DefaultCapacity, 50*time.Millisecond)
	base := time.Now()
	b.UpdateObjects(nil, base, 0, 1)

	b.SyncWithPipeline(base.Add(time.Second))
	stats := b.Stats()
	assert.Equal(t, 0, stats.BufferSize)
	assert.Equal(t, uint64(1), stats.FramesDropped)
}
