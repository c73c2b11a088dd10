package source

import (
	"sync"

	"github.com/destenson/dsvision/internal/core"
)

// EventKind enumerates the controller lifecycle events a source can emit.
type EventKind int

const (
	EventSourceAdded EventKind = iota
	EventSourceRemoved
	EventStateChanged
	EventPadAdded
	EventPadRemoved
	EventEOS
	EventError
	EventWarning
)

func (k EventKind) String() string {
	switch k {
	case EventSourceAdded:
		return "SourceAdded"
	case EventSourceRemoved:
		return "SourceRemoved"
	case EventStateChanged:
		return "StateChanged"
	case EventPadAdded:
		return "PadAdded"
	case EventPadRemoved:
		return "PadRemoved"
	case EventEOS:
		return "Eos"
	case EventError:
		return "Error"
	case EventWarning:
		return "Warning"
	default:
		return "Unknown"
	}
}

// Event is the union payload for every controller event kind.
type Event struct {
	Kind     EventKind
	SourceID core.SourceId
	URI      string
	Pad      string
	OldState core.SourceState
	NewState core.SourceState
	Message  string
}

// EventBus fans events out to synchronous callbacks and a bounded channel:
// a callback list is invoked synchronously at emit time, and a bounded
// channel also broadcasts them. Callbacks are always invoked with no lock
// held, so a callback is free to call back into the bus or the controller.
type EventBus struct {
	mu        sync.RWMutex
	callbacks []func(Event)
	ch        chan Event
}

// NewEventBus creates a bus with a channel of the given capacity.
func NewEventBus(channelCapacity int) *EventBus {
	if channelCapacity <= 0 {
		channelCapacity = 256
	}
	return &EventBus{ch: make(chan Event, channelCapacity)}
}

// Subscribe registers a synchronous callback invoked on every emitted event.
func (b *EventBus) Subscribe(cb func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, cb)
}

// Events returns the broadcast channel for consumers that prefer polling
// over callbacks.
func (b *EventBus) Events() <-chan Event { return b.ch }

// Emit invokes every callback synchronously, then attempts a non-blocking
// send on the channel. A full channel drops the broadcast rather than
// blocking the emitter, since emit must never be called under a lock.
func (b *EventBus) Emit(e Event) {
	b.mu.RLock()
	cbs := make([]func(Event), len(b.callbacks))
	copy(cbs, b.callbacks)
	b.mu.RUnlock()

	for _, cb := range cbs {
		cb(e)
	}

	select {
	case b.ch <- e:
	default:
	}
}
