package multistream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destenson/dsvision/internal/platform"
	"github.com/destenson/dsvision/internal/source"
)

func newTestManager(t *testing.T) *StreamManager {
	t.Helper()
	plat, err := platform.Probe("mock", nil)
	require.NoError(t, err)

	registry := source.NewRegistry(4)
	bus := source.NewEventBus(0)
	ctrl := source.NewController(registry, plat, nil, bus, false, nil)
	ftCtrl := source.NewFaultTolerantController(ctrl, source.DefaultRecoveryConfig(), nil)

	pool := NewPool(newEmptyPipelines(2))

	cfg := DefaultManagerConfig()
	cfg.Resource.MaxConcurrentStreams = 4
	cfg.Resource.MaxCPUPercent = 100
	cfg.Resource.MaxRSSBytes = 0

	mgr, err := NewStreamManager(cfg, ftCtrl, pool, nil)
	require.NoError(t, err)
	return mgr
}

func TestStreamManagerAddAndRemove(t *testing.T) {
	mgr := newTestManager(t)

	id, err := mgr.AddStream("videotestsrc://smpte")
	require.NoError(t, err)

	st, ok := mgr.GetStreamState(id)
	require.True(t, ok)
	assert.Equal(t, "videotestsrc://smpte", st.URI)

	stats := mgr.GetStats()
	assert.Equal(t, 1, stats.StreamCount)
	require.Len(t, stats.Schedules, 1)
	assert.Equal(t, id, stats.Schedules[0].SourceID)

	require.NoError(t, mgr.RemoveStream(id, source.DefaultRemovalConfig()))
	_, ok = mgr.GetStreamState(id)
	assert.False(t, ok)
}

func TestStreamManagerTickReturnsDueStream(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.AddStream("videotestsrc://smpte")
	require.NoError(t, err)

	sch, ok := mgr.Tick(time.Now())
	require.True(t, ok)
	assert.Equal(t, id, sch.SourceID)
}

func TestStreamManagerApplyAdaptiveQuality(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.AddStream("videotestsrc://smpte")
	require.NoError(t, err)

	mgr.ApplyAdaptiveQuality(false)
	sch, ok := mgr.scheduler.Get(id)
	require.True(t, ok)
	assert.InDelta(t, 0.8, sch.QualityFactor, 1e-9)
}

func TestStreamManagerRecordError(t *testing.T) {
	mgr := newTestManager(t)
	id, err := mgr.AddStream("videotestsrc://smpte")
	require.NoError(t, err)

	mgr.RecordError(id, assert.AnError)
	st, ok := mgr.GetStreamState(id)
	require.True(t, ok)
	assert.Equal(t, assert.AnError.Error(), st.LastError)
}
