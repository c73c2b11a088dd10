package multistream

import (
	"container/heap"
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/core"
)

// Priority is a stream's scheduling priority. Streams are ordered by
// higher priority first, then earlier next_process_time.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String names a Priority level.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MinQualityFactor and MaxQualityFactor bound StreamSchedule.QualityFactor.
const (
	MinQualityFactor = 0.1
	MaxQualityFactor = 1.0
)

// MinProcessingInterval and MaxProcessingInterval bound
// StreamSchedule.ProcessingInterval, the frame-rate-throttle half of the
// adaptive-quality pair (the other half is QualityFactor).
const (
	MinProcessingInterval = 16 * time.Millisecond
	MaxProcessingInterval = 100 * time.Millisecond
)

// DefaultReductionFactor and DefaultIncreaseFactor are the multipliers
// StreamManager.ApplyAdaptiveQuality passes to ApplyQualityReduction/
// ApplyQualityIncrease when degrading or recovering stream quality under
// resource pressure.
const (
	DefaultReductionFactor = 0.8
	DefaultIncreaseFactor  = 1.2
)

// StreamSchedule is one stream's scheduling record.
type StreamSchedule struct {
	SourceID           core.SourceId
	PipelineID         string
	Priority           Priority
	NextProcessTime    time.Time
	ProcessingInterval time.Duration
	QualityFactor      float64

	index int // heap bookkeeping, maintained by container/heap
}

// ApplyQualityReduction multiplies QualityFactor by factor, floored at
// MinQualityFactor, and lowers the effective frame rate by the same
// factor: ProcessingInterval is divided by factor and grows, clamped at
// MaxProcessingInterval. Used for adaptive degradation under resource
// pressure.
func (s *StreamSchedule) ApplyQualityReduction(factor float64) {
	s.QualityFactor *= factor
	if s.QualityFactor < MinQualityFactor {
		s.QualityFactor = MinQualityFactor
	}
	if factor > 0 && s.ProcessingInterval > 0 {
		interval := time.Duration(float64(s.ProcessingInterval) / factor)
		if interval > MaxProcessingInterval {
			interval = MaxProcessingInterval
		}
		s.ProcessingInterval = interval
	}
}

// ApplyQualityIncrease multiplies QualityFactor by factor, capped at
// MaxQualityFactor, and raises the effective frame rate by the same
// factor: ProcessingInterval shrinks accordingly, clamped at
// MinProcessingInterval. Used for recovery once resource pressure eases.
func (s *StreamSchedule) ApplyQualityIncrease(factor float64) {
	s.QualityFactor *= factor
	if s.QualityFactor > MaxQualityFactor {
		s.QualityFactor = MaxQualityFactor
	}
	if factor > 0 && s.ProcessingInterval > 0 {
		interval := time.Duration(float64(s.ProcessingInterval) / factor)
		if interval < MinProcessingInterval {
			interval = MinProcessingInterval
		}
		s.ProcessingInterval = interval
	}
}

// scheduleHeap is a container/heap max-heap ordered by (priority desc,
// next_process_time asc).
type scheduleHeap []*StreamSchedule

func (h scheduleHeap) Len() int { return len(h) }

func (h scheduleHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority > h[j].Priority
	}
	return h[i].NextProcessTime.Before(h[j].NextProcessTime)
}

func (h scheduleHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *scheduleHeap) Push(x any) {
	s := x.(*StreamSchedule)
	s.index = len(*h)
	*h = append(*h, s)
}

func (h *scheduleHeap) Pop() any {
	old := *h
	n := len(old)
	s := old[n-1]
	old[n-1] = nil
	s.index = -1
	*h = old[:n-1]
	return s
}

// StreamScheduler orders streams for processing by priority and due time.
// It is a priority queue: pop the highest-priority, earliest-due stream,
// process it, push it back with an updated next_process_time.
type StreamScheduler struct {
	mu      sync.Mutex
	heap    scheduleHeap
	entries map[core.SourceId]*StreamSchedule
}

// NewScheduler constructs an empty scheduler.
func NewScheduler() *StreamScheduler {
	s := &StreamScheduler{entries: make(map[core.SourceId]*StreamSchedule)}
	heap.Init(&s.heap)
	return s
}

// Add inserts a new stream's schedule. If the source is already scheduled,
// its entry is replaced.
func (s *StreamScheduler) Add(sch *StreamSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.entries[sch.SourceID]; ok {
		s.removeLocked(existing)
	}
	s.entries[sch.SourceID] = sch
	heap.Push(&s.heap, sch)
}

// Remove drops a source's schedule entirely, used when a stream is torn
// down.
func (s *StreamScheduler) Remove(id core.SourceId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.entries[id]
	if !ok {
		return
	}
	s.removeLocked(sch)
	delete(s.entries, id)
}

func (s *StreamScheduler) removeLocked(sch *StreamSchedule) {
	if sch.index < 0 || sch.index >= len(s.heap) {
		return
	}
	heap.Remove(&s.heap, sch.index)
}

// Next pops the highest-priority, earliest-due stream that is due (its
// NextProcessTime has arrived), re-queues it with an advanced
// NextProcessTime, and returns it. Returns nil, false if no stream is due.
func (s *StreamScheduler) Next(now time.Time) (*StreamSchedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return nil, false
	}
	top := s.heap[0]
	if top.NextProcessTime.After(now) {
		return nil, false
	}

	sch := heap.Pop(&s.heap).(*StreamSchedule)
	sch.NextProcessTime = now.Add(sch.ProcessingInterval)
	heap.Push(&s.heap, sch)
	return sch, true
}

// Get returns a copy of a source's current schedule.
func (s *StreamScheduler) Get(id core.SourceId) (StreamSchedule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.entries[id]
	if !ok {
		return StreamSchedule{}, false
	}
	return *sch, true
}

// Len reports the number of scheduled streams.
func (s *StreamScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// AdjustQuality applies a quality reduction or increase by factor to a
// source's schedule in place, rescaling both QualityFactor and
// ProcessingInterval.
func (s *StreamScheduler) AdjustQuality(id core.SourceId, increase bool, factor float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sch, ok := s.entries[id]
	if !ok {
		return
	}
	if increase {
		sch.ApplyQualityIncrease(factor)
	} else {
		sch.ApplyQualityReduction(factor)
	}
}
