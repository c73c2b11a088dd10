package multistream

import (
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/core"
)

// StreamState is a stream's externally-visible status: lifecycle state,
// last error, and basic counters.
type StreamState struct {
	SourceID     core.SourceId
	URI          string
	State        core.SourceState
	LastError    string
	RestartCount int
	AddedAt      time.Time
	UpdatedAt    time.Time
}

// StreamStateManager is a read-write map of a stream's last-known state,
// keyed by SourceId. It also tracks the last error text per source, so
// callers can surface a human-readable reason for the most recent failure.
type StreamStateManager struct {
	mu     sync.RWMutex
	states map[core.SourceId]*StreamState
}

// NewStateManager constructs an empty manager.
func NewStateManager() *StreamStateManager {
	return &StreamStateManager{states: make(map[core.SourceId]*StreamState)}
}

// Add registers a new stream's initial state.
func (m *StreamStateManager) Add(id core.SourceId, uri string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	m.states[id] = &StreamState{
		SourceID:  id,
		URI:       uri,
		State:     core.SourceInitializing,
		AddedAt:   now,
		UpdatedAt: now,
	}
}

// Remove drops a stream's state record.
func (m *StreamStateManager) Remove(id core.SourceId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
}

// SetState updates a stream's lifecycle state.
func (m *StreamStateManager) SetState(id core.SourceId, s core.SourceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return
	}
	st.State = s
	st.UpdatedAt = time.Now()
}

// RecordError stores the last error text for a stream and bumps its
// restart count.
func (m *StreamStateManager) RecordError(id core.SourceId, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return
	}
	st.LastError = errMsg
	st.RestartCount++
	st.UpdatedAt = time.Now()
}

// Get returns a copy of a stream's current state.
func (m *StreamStateManager) Get(id core.SourceId) (StreamState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[id]
	if !ok {
		return StreamState{}, false
	}
	return *st, true
}

// All returns a snapshot of every tracked stream's state.
func (m *StreamStateManager) All() []StreamState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StreamState, 0, len(m.states))
	for _, st := range m.states {
		out = append(out, *st)
	}
	return out
}

// Count returns the number of tracked streams.
func (m *StreamStateManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}
