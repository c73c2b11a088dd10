package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceIdFormatting(t *testing.T) {
	id := SourceId(7)
	assert.Equal(t, "source-7", id.String())
	assert.Equal(t, "sink_7", id.SourcePadName())
}

func TestBoundingBoxDerived(t *testing.T) {
	b := BoundingBox{Left: 10, Top: 20, Width: 30, Height: 40}
	assert.Equal(t, 40.0, b.Right())
	assert.Equal(t, 60.0, b.Bottom())
	assert.Equal(t, 1200.0, b.Area())
	cx, cy := b.Center()
	assert.Equal(t, 25.0, cx)
	assert.Equal(t, 40.0, cy)
}

func TestBoundingBoxIoUDisjoint(t *testing.T) {
	a := BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}
	b := BoundingBox{Left: 100, Top: 100, Width: 10, Height: 10}
	assert.Equal(t, 0.0, a.IoU(b))
}

func TestBoundingBoxIoUIdentical(t *testing.T) {
	a := BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}
	assert.Equal(t, 1.0, a.IoU(a))
}

func TestBoundingBoxIoUIdenticalDegenerate(t *testing.T) {
	a := BoundingBox{}
	assert.Equal(t, 0.0, a.IoU(a), "zero-area identical boxes report 0, not 1")
}

func TestBoundingBoxIoUPartialOverlap(t *testing.T) {
	a := BoundingBox{Left: 0, Top: 0, Width: 10, Height: 10}
	b := BoundingBox{Left: 5, Top: 0, Width: 10, Height: 10}
	// intersection 5x10=50, union 100+100-50=150
	assert.InDelta(t, 50.0/150.0, a.IoU(b), 1e-9)
}

func TestObjectMetaIsTracked(t *testing.T) {
	untracked := ObjectMeta{ObjectID: UntrackedObjectID}
	assert.False(t, untracked.IsTracked())

	tracked := ObjectMeta{ObjectID: 42}
	assert.True(t, tracked.IsTracked())
}

func TestBatchMetaAppendRespectsMaxFrames(t *testing.T) {
	batch := BatchMeta{MaxFrames: 2}
	assert.True(t, batch.Append(FrameMeta{FrameNum: 1}))
	assert.True(t, batch.Append(FrameMeta{FrameNum: 2}))
	assert.False(t, batch.Append(FrameMeta{FrameNum: 3}))
	assert.Len(t, batch.Frames, 2)
}

func TestElementRoleAndSourceStateStrings(t *testing.T) {
	assert.Equal(t, "Inference", RoleInference.String())
	assert.Equal(t, "Unknown", ElementRole(99).String())
	assert.Equal(t, "Playing", SourcePlaying.String())
	assert.Equal(t, "Unknown", SourceState(99).String())
}

func TestCapabilitiesHasElement(t *testing.T) {
	caps := Capabilities{AvailableElements: map[string]struct{}{"nvinfer": {}}}
	assert.True(t, caps.HasElement("nvinfer"))
	assert.False(t, caps.HasElement("nvtracker"))
}
