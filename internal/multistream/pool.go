package multistream

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	pipecore "github.com/destenson/dsvision/internal/pipeline/core"
)

// slot is one pooled pipeline and its current load.
type slot struct {
	id       string
	pipeline *pipecore.Pipeline
	load     int
}

// PipelinePool is a fixed-size set of pre-built pipelines shared across
// streams. Allocation is least-loaded-first with a fallback to round robin
// on ties; release decrements the slot's load counter and never goes
// negative.
type PipelinePool struct {
	mu       sync.Mutex
	slots    []*slot
	nextTurn int // round-robin cursor used to break load ties
}

// NewPool constructs a pool from already-built pipelines, one slot per
// pipeline. Pipelines are built by the caller via pipeline/core.Builder,
// since the pool itself has no opinion on element graph shape.
func NewPool(pipelines []*pipecore.Pipeline) *PipelinePool {
	slots := make([]*slot, 0, len(pipelines))
	for _, p := range pipelines {
		slots = append(slots, &slot{id: uuid.NewString(), pipeline: p})
	}
	return &PipelinePool{slots: slots}
}

// Acquire selects the least-loaded slot, breaking ties by round robin, and
// increments its load counter, returning the slot id and pipeline.
func (pp *PipelinePool) Acquire() (string, *pipecore.Pipeline, error) {
	pp.mu.Lock()
	defer pp.mu.Unlock()

	if len(pp.slots) == 0 {
		return "", nil, fmt.Errorf("multistream: pipeline pool is empty")
	}

	best := -1
	bestLoad := int(^uint(0) >> 1) // max int
	n := len(pp.slots)
	for i := 0; i < n; i++ {
		idx := (pp.nextTurn + i) % n
		s := pp.slots[idx]
		if s.load < bestLoad {
			bestLoad = s.load
			best = idx
		}
	}

	s := pp.slots[best]
	s.load++
	pp.nextTurn = (best + 1) % n
	return s.id, s.pipeline, nil
}

// Release decrements a slot's load counter, never going negative.
func (pp *PipelinePool) Release(slotID string) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	for _, s := range pp.slots {
		if s.id == slotID {
			if s.load > 0 {
				s.load--
			}
			return
		}
	}
}

// Load returns a slot's current load, for diagnostics.
func (pp *PipelinePool) Load(slotID string) (int, bool) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	for _, s := range pp.slots {
		if s.id == slotID {
			return s.load, true
		}
	}
	return 0, false
}

// Size returns the number of pipeline slots in the pool.
func (pp *PipelinePool) Size() int {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	return len(pp.slots)
}
