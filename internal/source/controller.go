package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/destenson/dsvision/internal/core"
	pipe "github.com/destenson/dsvision/internal/pipeline/core"
	"github.com/destenson/dsvision/internal/platform"
)

// removeGracePeriod is the sleep before unlinking an Async state change.
const removeGracePeriod = 100 * time.Millisecond

// RemovalConfig governs how Remove waits for the Null transition: it is
// never blocked forever, the state transition to Null must either
// complete or be timed out by caller policy.
type RemovalConfig struct {
	Force   bool
	Timeout time.Duration
	SendEOS bool
}

// DefaultRemovalConfig is a graceful remove with a generous timeout.
func DefaultRemovalConfig() RemovalConfig {
	return RemovalConfig{Force: false, Timeout: 2 * time.Second, SendEOS: true}
}

// Controller is the dynamic source controller: add, remove, pause, resume
// over the Registry, with event emission and EOS tracking.
type Controller struct {
	registry        *Registry
	platform        *platform.Platform
	parent          *pipe.Pipeline
	bus             *EventBus
	autoRemoveOnEOS bool
	logger          *slog.Logger
}

// NewController builds a Controller over registry, attaching sources'
// decoder elements into parent.
func NewController(registry *Registry, p *platform.Platform, parent *pipe.Pipeline, bus *EventBus, autoRemoveOnEOS bool, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = NewEventBus(0)
	}
	return &Controller{registry: registry, platform: p, parent: parent, bus: bus, autoRemoveOnEOS: autoRemoveOnEOS, logger: logger}
}

// Events exposes the controller's event bus.
func (c *Controller) Events() *EventBus { return c.bus }

// Add allocates an id, constructs the VideoSource, emits SourceAdded and a
// PadAdded event naming sink_{id} on the stream mux, and sets the source's
// state from the parent pipeline's state. The parent's element set is not
// modified.
func (c *Controller) Add(uri string) (core.SourceId, error) {
	id, err := c.registry.Allocate(uri)
	if err != nil {
		return 0, err
	}

	vs, err := NewVideoSource(id, uri, c.platform)
	if err != nil {
		c.registry.Free(id)
		return 0, err
	}

	vs.SetState(core.SourceInitializing)
	c.registry.SetState(id, core.SourceInitializing)
	c.registry.SetSource(id, vs)

	c.bus.Emit(Event{Kind: EventSourceAdded, SourceID: id, URI: uri})
	c.bus.Emit(Event{Kind: EventPadAdded, SourceID: id, Pad: vs.PadName()})

	c.syncWithParent(vs)

	c.bus.Emit(Event{Kind: EventStateChanged, SourceID: id, OldState: core.SourceInitializing, NewState: vs.State()})
	c.registry.SetState(id, vs.State())
	c.registry.SetEnabled(id, true)

	c.logger.Info("source added", slog.String("source_id", id.String()), slog.String("uri", uri))
	return id, nil
}

// syncWithParent makes the source adopt the parent pipeline's state rather
// than setting its own independently.
func (c *Controller) syncWithParent(vs *VideoSource) {
	if c.parent == nil {
		vs.SetState(core.SourcePlaying)
		return
	}
	switch c.parent.State() {
	case pipe.StatePlaying:
		vs.SetState(core.SourcePlaying)
	case pipe.StatePaused:
		vs.SetState(core.SourcePaused)
	default:
		vs.SetState(core.SourceIdle)
	}
}

// AddBatch adds every uri in order; on any failure it rolls back previously
// added ids by Remove, so a batch add is all-or-nothing.
func (c *Controller) AddBatch(uris []string) ([]core.SourceId, error) {
	added := make([]core.SourceId, 0, len(uris))
	for _, uri := range uris {
		id, err := c.Add(uri)
		if err != nil {
			for _, rollback := range added {
				_ = c.Remove(rollback, RemovalConfig{Force: true, Timeout: time.Second})
			}
			return nil, err
		}
		added = append(added, id)
	}
	return added, nil
}

// requestNullState models a three-way state-change outcome: RTSP/RTSPT
// sources are treated as live (NoPreroll, no preroll to skip); a forced
// remove always completes synchronously (Success); everything else
// completes on the framework's own thread (Async) and must be waited out
// before unlinking.
func (c *Controller) requestNullState(vs *VideoSource, cfg RemovalConfig) pipe.StateChangeReturn {
	switch vs.Parsed().Scheme {
	case SchemeRTSP, SchemeRTSPT:
		return pipe.StateChangeNoPreroll
	}
	if cfg.Force {
		return pipe.StateChangeSuccess
	}
	return pipe.StateChangeAsync
}

// Remove is always "stop then detach": mark the source Stopping, resolve
// the three-way outcome above (sleeping removeGracePeriod for Async), emit
// PadRemoved for sink_{id}, then stop and close the source. The id is
// always freed, even on a forced path — the source is always reclaimed.
// The parent's element set is not modified.
func (c *Controller) Remove(id core.SourceId, cfg RemovalConfig) error {
	entry, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: source %s", core.ErrInvalidInput, id)
	}
	vs := entry.Source

	oldState := entry.State
	c.registry.SetState(id, core.SourceStopping)
	if vs != nil {
		vs.SetState(core.SourceStopping)
	}

	var outcome pipe.StateChangeReturn
	if vs != nil {
		outcome = c.requestNullState(vs, cfg)
	} else {
		outcome = pipe.StateChangeSuccess
	}

	switch outcome {
	case pipe.StateChangeAsync:
		time.Sleep(removeGracePeriod)
	case pipe.StateChangeNoPreroll, pipe.StateChangeSuccess:
		// proceed directly
	}

	// flush -> unlink -> release pad -> remove from parent, all three
	// outcomes converge here.
	c.bus.Emit(Event{Kind: EventPadRemoved, SourceID: id, Pad: id.SourcePadName()})

	if vs != nil {
		vs.SetState(core.SourceStopped)
		if err := vs.Close(); err != nil {
			c.logger.Warn("error closing source", slog.String("source_id", id.String()), slog.String("error", err.Error()))
		}
	}
	c.registry.SetState(id, core.SourceStopped)
	c.bus.Emit(Event{Kind: EventStateChanged, SourceID: id, OldState: oldState, NewState: core.SourceStopped})
	c.bus.Emit(Event{Kind: EventSourceRemoved, SourceID: id})

	c.registry.Free(id)
	c.logger.Info("source removed", slog.String("source_id", id.String()))
	return nil
}

// Pause transitions a source to Paused without removing it.
func (c *Controller) Pause(id core.SourceId) error {
	entry, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: source %s", core.ErrInvalidInput, id)
	}
	old := entry.State
	if entry.Source != nil {
		entry.Source.SetState(core.SourcePaused)
	}
	c.registry.SetState(id, core.SourcePaused)
	c.bus.Emit(Event{Kind: EventStateChanged, SourceID: id, OldState: old, NewState: core.SourcePaused})
	return nil
}

// Resume transitions a paused source back to Playing.
func (c *Controller) Resume(id core.SourceId) error {
	entry, ok := c.registry.Get(id)
	if !ok {
		return fmt.Errorf("%w: source %s", core.ErrInvalidInput, id)
	}
	old := entry.State
	if entry.Source != nil {
		entry.Source.SetState(core.SourcePlaying)
	}
	c.registry.SetState(id, core.SourcePlaying)
	c.bus.Emit(Event{Kind: EventStateChanged, SourceID: id, OldState: old, NewState: core.SourcePlaying})
	return nil
}

// HandleEOS records an end-of-stream for id, optionally auto-removing it
// when autoRemoveOnEOS is enabled.
func (c *Controller) HandleEOS(id core.SourceId) {
	c.bus.Emit(Event{Kind: EventEOS, SourceID: id})
	if c.autoRemoveOnEOS {
		_ = c.Remove(id, DefaultRemovalConfig())
	}
}

// ReportError emits an Error event for id; the fault-tolerant wrapper
// subscribes to these to drive restarts.
func (c *Controller) ReportError(id core.SourceId, err error) {
	c.registry.SetState(id, core.SourceError)
	if entry, ok := c.registry.Get(id); ok && entry.Source != nil {
		entry.Source.SetState(core.SourceError)
	}
	c.bus.Emit(Event{Kind: EventError, SourceID: id, Message: err.Error()})
}

// Registry exposes the underlying registry for read-only inspection
// (diagnostics, tests).
func (c *Controller) Registry() *Registry { return c.registry }
