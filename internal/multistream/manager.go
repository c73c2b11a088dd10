package multistream

import (
	"context"
	"log/slog"
	"time"

	"github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/source"
)

// ManagerConfig bundles the sub-component configs StreamManager wires
// together.
type ManagerConfig struct {
	Resource           ResourceConfig
	DefaultQuality     float64
	DefaultPriority    Priority
	ProcessingInterval time.Duration
}

// DefaultManagerConfig matches internal/config's defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Resource:           DefaultResourceConfig(),
		DefaultQuality:     1.0,
		DefaultPriority:    PriorityNormal,
		ProcessingInterval: 16 * time.Millisecond,
	}
}

// StreamManager is the top-level façade over the source controller, the
// pipeline pool, the priority scheduler, and the resource manager. It
// exposes AddStream/RemoveStream/GetAllStreamStates/GetStats/
// ApplyAdaptiveQuality/RestartStream as its public surface.
type StreamManager struct {
	cfg       ManagerConfig
	ctrl      *source.FaultTolerantController
	pool      *PipelinePool
	scheduler *StreamScheduler
	resources *ResourceManager
	states    *StreamStateManager
	logger    *slog.Logger

	// slotOf remembers which pool slot a source was handed, so RemoveStream
	// can release it.
	slotOf map[core.SourceId]string
}

// NewStreamManager wires the sub-components into a façade. ctrl and pool
// are constructed by the caller (ctrl needs a platform backend, pool needs
// built pipelines); resources and the scheduler are created here.
func NewStreamManager(cfg ManagerConfig, ctrl *source.FaultTolerantController, pool *PipelinePool, logger *slog.Logger) (*StreamManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	resources, err := NewResourceManager(cfg.Resource, logger)
	if err != nil {
		return nil, err
	}
	return &StreamManager{
		cfg:       cfg,
		ctrl:      ctrl,
		pool:      pool,
		scheduler: NewScheduler(),
		resources: resources,
		states:    NewStateManager(),
		logger:    logger,
		slotOf:    make(map[core.SourceId]string),
	}, nil
}

// Start launches the background resource poller.
func (m *StreamManager) Start(ctx context.Context) {
	m.resources.Start(ctx)
}

// Stop halts the background resource poller and the fault-tolerant
// controller's restart scheduling.
func (m *StreamManager) Stop() {
	m.resources.Stop()
	m.ctrl.Stop()
}

// AddStream admits a new stream if the resource manager allows it, adds it
// to the source controller, acquires a pipeline-pool slot, and schedules it.
func (m *StreamManager) AddStream(uri string) (core.SourceId, error) {
	if !m.resources.CanAddStream() {
		return 0, core.NewSourceError(0, uri, core.ErrResourceLimit)
	}

	id, err := m.ctrl.Add(uri)
	if err != nil {
		return 0, err
	}

	m.states.Add(id, uri)
	m.states.SetState(id, core.SourcePlaying)

	slotID, _, err := m.pool.Acquire()
	if err != nil {
		_ = m.ctrl.Remove(id, source.RemovalConfig{Force: true, Timeout: time.Second})
		m.states.Remove(id)
		return 0, err
	}
	m.slotOf[id] = slotID

	m.scheduler.Add(&StreamSchedule{
		SourceID:           id,
		PipelineID:         slotID,
		Priority:           m.cfg.DefaultPriority,
		NextProcessTime:    time.Now(),
		ProcessingInterval: m.cfg.ProcessingInterval,
		QualityFactor:      m.cfg.DefaultQuality,
	})

	m.resources.SetStreamCount(m.states.Count())
	return id, nil
}

// RemoveStream tears a stream down: releases its pipeline-pool slot,
// removes its schedule entry, and removes it from the source controller.
func (m *StreamManager) RemoveStream(id core.SourceId, cfg source.RemovalConfig) error {
	if slotID, ok := m.slotOf[id]; ok {
		m.pool.Release(slotID)
		delete(m.slotOf, id)
	}
	m.scheduler.Remove(id)
	m.states.Remove(id)
	m.resources.SetStreamCount(m.states.Count())
	return m.ctrl.Remove(id, cfg)
}

// RestartStream is remove+add of the same URI through this manager's own
// RemoveStream and AddStream: the re-added stream keeps the original URI
// and gets the registry's smallest free SourceId, which may be the old one.
func (m *StreamManager) RestartStream(id core.SourceId) (core.SourceId, error) {
	st, ok := m.states.Get(id)
	if !ok {
		return 0, core.NewSourceError(id, "", core.ErrInvalidInput)
	}
	if err := m.RemoveStream(id, source.RemovalConfig{Force: true, Timeout: time.Second}); err != nil {
		return 0, err
	}
	return m.AddStream(st.URI)
}

// GetAllStreamStates returns every tracked stream's state.
func (m *StreamManager) GetAllStreamStates() []StreamState {
	return m.states.All()
}

// GetStreamState returns one stream's state.
func (m *StreamManager) GetStreamState(id core.SourceId) (StreamState, bool) {
	return m.states.Get(id)
}

// Stats is the aggregate snapshot returned by GetStats.
type Stats struct {
	StreamCount int
	Usage       Usage
	Schedules   []StreamSchedule
}

// GetStats returns an aggregate snapshot of stream count, resource usage,
// and per-stream schedules.
func (m *StreamManager) GetStats() Stats {
	schedules := make([]StreamSchedule, 0, m.scheduler.Len())
	for _, st := range m.states.All() {
		if sch, ok := m.scheduler.Get(st.SourceID); ok {
			schedules = append(schedules, sch)
		}
	}
	return Stats{
		StreamCount: m.states.Count(),
		Usage:       m.resources.Usage(),
		Schedules:   schedules,
	}
}

// ApplyAdaptiveQuality reduces quality on every stream when resource usage
// is saturated, and increases it back when usage eases. The decision is
// driven off the resource manager's smoothed reading. increase=false means
// "reduce," applying DefaultReductionFactor to both QualityFactor and
// ProcessingInterval; increase=true applies DefaultIncreaseFactor.
func (m *StreamManager) ApplyAdaptiveQuality(increase bool) {
	factor := DefaultReductionFactor
	if increase {
		factor = DefaultIncreaseFactor
	}
	for _, st := range m.states.All() {
		m.scheduler.AdjustQuality(st.SourceID, increase, factor)
	}
}

// Tick pops the next due stream from the scheduler, if any, and is the
// caller's entry point for per-stream processing work; StreamManager
// itself does not run the processing, it only answers "whose turn is it,"
// via the priority-queue pop/push-back cycle.
func (m *StreamManager) Tick(now time.Time) (*StreamSchedule, bool) {
	return m.scheduler.Next(now)
}

// RecordError forwards an out-of-band error observation into the state
// manager (surfaced via get_stream_state().last_error) and marks the stream
// Error. The resource manager's stream count is not touched.
func (m *StreamManager) RecordError(id core.SourceId, err error) {
	m.states.RecordError(id, err.Error())
	m.states.SetState(id, core.SourceError)
}
