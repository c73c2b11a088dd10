// Package source implements the dynamic source lifecycle: the video
// source, its registry, the controller that adds/removes sources against
// a running pipeline, and a fault-tolerant wrapper around the controller.
package source

import (
	"fmt"
	"sync"

	"github.com/destenson/dsvision/internal/core"
)

// DefaultMaxSources is the default bound on concurrently registered
// sources.
const DefaultMaxSources = 30

// SourceEntry is one occupied registry slot.
type SourceEntry struct {
	URI     string
	Source  *VideoSource
	State   core.SourceState
	Enabled bool
}

// Registry is a bounded, indexable collection of sources with slot reuse.
// Invariants maintained by every mutator: (a) an id is occupied iff the
// mapping contains it; (b) a freshly allocated id is the smallest free
// index; (c) no two entries share an id.
type Registry struct {
	mu       sync.RWMutex
	maxSize  int
	occupied []bool
	entries  map[core.SourceId]*SourceEntry
}

// NewRegistry creates a Registry bounded to maxSize concurrent sources.
func NewRegistry(maxSize int) *Registry {
	if maxSize <= 0 {
		maxSize = DefaultMaxSources
	}
	return &Registry{
		maxSize:  maxSize,
		occupied: make([]bool, maxSize),
		entries:  make(map[core.SourceId]*SourceEntry, maxSize),
	}
}

// Allocate reserves the smallest free SourceId and stores entry under it.
// Returns core.ErrResourceLimit if the registry is full.
func (r *Registry) Allocate(uri string) (core.SourceId, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < r.maxSize; i++ {
		if !r.occupied[i] {
			id := core.SourceId(i)
			r.occupied[i] = true
			r.entries[id] = &SourceEntry{URI: uri, State: core.SourceIdle}
			return id, nil
		}
	}
	return 0, fmt.Errorf("%w: registry full at %d sources", core.ErrResourceLimit, r.maxSize)
}

// Free releases id back to the pool. Safe to call on an already-free id.
func (r *Registry) Free(id core.SourceId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freeLocked(id)
}

func (r *Registry) freeLocked(id core.SourceId) {
	if int(id) < 0 || int(id) >= r.maxSize {
		return
	}
	r.occupied[id] = false
	delete(r.entries, id)
}

// Get returns a copy-safe snapshot of the entry for id.
func (r *Registry) Get(id core.SourceId) (SourceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return SourceEntry{}, false
	}
	return *e, true
}

// SetState updates the recorded state for id, if present.
func (r *Registry) SetState(id core.SourceId, state core.SourceState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.State = state
	}
}

// SetEnabled updates the enabled flag for id, if present.
func (r *Registry) SetEnabled(id core.SourceId, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Enabled = enabled
	}
}

// SetSource attaches the constructed VideoSource to an already-allocated id.
func (r *Registry) SetSource(id core.SourceId, src *VideoSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.Source = src
	}
}

// IsOccupied reports whether bit id is set in the occupancy bitmap.
func (r *Registry) IsOccupied(id core.SourceId) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) < 0 || int(id) >= r.maxSize {
		return false
	}
	return r.occupied[id]
}

// Count returns the number of occupied slots.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, occ := range r.occupied {
		if occ {
			n++
		}
	}
	return n
}

// MaxSize returns the registry's capacity.
func (r *Registry) MaxSize() int { return r.maxSize }

// IDs returns all currently occupied ids in ascending order.
func (r *Registry) IDs() []core.SourceId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]core.SourceId, 0, len(r.entries))
	for i := 0; i < r.maxSize; i++ {
		if r.occupied[i] {
			ids = append(ids, core.SourceId(i))
		}
	}
	return ids
}
