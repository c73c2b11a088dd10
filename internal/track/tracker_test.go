package track

import (
	"testing"

	"github.com/destenson/dsvision/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCentroidTrackingAcrossMotion verifies a tracked object keeps its
// identity and accumulates trajectory points as it moves between frames.
func TestCentroidTrackingAcrossMotion(t *testing.T) {
	tr := New(DefaultConfig())

	frame1 := []core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 100, Top: 100, Width: 50, Height: 50}}}
	objs := tr.Update(frame1)
	require.Len(t, objs, 1)
	assert.Equal(t, uint64(0), objs[0].ID)
	assert.InDelta(t, 125, objs[0].CentroidX, 1e-6)
	assert.InDelta(t, 125, objs[0].CentroidY, 1e-6)
	assert.Len(t, objs[0].Trajectory, 1)

	frame2 := []core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 110, Top: 105, Width: 50, Height: 50}}}
	objs = tr.Update(frame2)
	require.Len(t, objs, 1)
	assert.Equal(t, uint64(0), objs[0].ID)
	assert.Len(t, objs[0].Trajectory, 2)
}

// TestDisappearanceExpiry verifies a tracked object is dropped once its
// disappeared-frame count exceeds the configured budget.
func TestDisappearanceExpiry(t *testing.T) {
	tr := New(Config{MaxDisappeared: 2, MaxDistance: DefaultMaxDistance})

	tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}}})

	tr.Update(nil)
	tr.Update(nil)
	objs := tr.Update(nil)

	assert.Empty(t, objs)
}

func TestMaxDistanceRejectsFarMatch(t *testing.T) {
	tr := New(Config{MaxDisappeared: DefaultMaxDisappeared, MaxDistance: 10})

	tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}}})
	objs := tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 1000, Top: 1000, Width: 10, Height: 10}}})

	// far detection should register as a new track, not match the old one
	ids := map[uint64]bool{}
	for _, o := range objs {
		ids[o.ID] = true
	}
	assert.Len(t, objs, 2)
	assert.True(t, ids[0])
	assert.True(t, ids[1])
}

func TestTrajectoryBoundedTo100Points(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}}})

	for i := 0; i < 150; i++ {
		tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: float64(i), Top: float64(i), Width: 10, Height: 10}}})
	}

	objs := tr.Update([]core.Detection{{ClassID: 0, BBox: core.BoundingBox{Left: 151, Top: 151, Width: 10, Height: 10}}})
	require.Len(t, objs, 1)
	assert.LessOrEqual(t, len(objs[0].Trajectory), maxTrajectoryPoints)
}
