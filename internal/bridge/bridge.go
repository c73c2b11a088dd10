// Package bridge implements the metadata bridge: a bounded,
// timestamp-indexed ring of per-frame detection sets carrying results from
// inference to the renderer with bounded latency and monotonic frame
// ordering.
package bridge

import (
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/core"
)

// DefaultCapacity is the bridge's default buffer depth, in frames.
const DefaultCapacity = 30

// DefaultMaxLatency is the bridge's default eviction latency.
const DefaultMaxLatency = 100 * time.Millisecond

// FrameMetadata is one buffered frame's detection set.
type FrameMetadata struct {
	Timestamp        time.Time
	Objects          []core.ObjectMeta
	FrameNumber      uint64
	ProcessingTimeMS float64
}

// Stats is the bridge's statistics snapshot.
type Stats struct {
	FramesProcessed uint64
	FramesDropped   uint64
	AvgLatencyMS    float64
	PeakLatencyMS   float64
	BufferSize      int
}

// Bridge is a bounded FIFO of per-frame detection sets. All operations
// go through a single reader-writer lock (writers exclusive, readers
// shared); readers see a consistent snapshot.
type Bridge struct {
	mu         sync.RWMutex
	capacity   int
	maxLatency time.Duration
	frames     []FrameMetadata
	current    *FrameMetadata

	framesProcessed uint64
	framesDropped   uint64
	latencySumMS    float64
	peakLatencyMS   float64
}

// New creates a Bridge with the given capacity and max latency. Zero
// values fall back to the package defaults.
func New(capacity int, maxLatency time.Duration) *Bridge {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if maxLatency <= 0 {
		maxLatency = DefaultMaxLatency
	}
	return &Bridge{capacity: capacity, maxLatency: maxLatency}
}

// UpdateObjects appends a new frame's detections at timestamp ts. Two
// independent eviction checks run: a latency-based evict-from-front when
// ts is too far ahead of the oldest buffered frame, and a capacity-based
// evict-from-front when the buffer is already full. Both count toward
// frames_dropped as separate call sites, not merged.
func (b *Bridge) UpdateObjects(objects []core.ObjectMeta, ts time.Time, frameNumber uint64, processingTimeMS float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.evictByLatencyLocked(ts)
	b.evictByCapacityLocked()

	frame := FrameMetadata{Timestamp: ts, Objects: objects, FrameNumber: frameNumber, ProcessingTimeMS: processingTimeMS}
	b.frames = append(b.frames, frame)
	b.current = &frame

	b.framesProcessed++
	b.latencySumMS += processingTimeMS
	if processingTimeMS > b.peakLatencyMS {
		b.peakLatencyMS = processingTimeMS
	}
}

// evictByLatencyLocked evicts the front of the buffer while the new
// timestamp is ahead of the oldest buffered frame by more than the
// configured max latency.
func (b *Bridge) evictByLatencyLocked(ts time.Time) {
	for len(b.frames) > 0 && ts.Sub(b.frames[0].Timestamp) > b.maxLatency {
		b.frames = b.frames[1:]
		b.framesDropped++
	}
}

// evictByCapacityLocked evicts the front of the buffer while it is at
// capacity: a second, independent eviction site from the latency check.
func (b *Bridge) evictByCapacityLocked() {
	for len(b.frames) >= b.capacity {
		b.frames = b.frames[1:]
		b.framesDropped++
	}
}

// GetCurrentObjects returns the most recently written frame's objects and
// timestamp. The result stays stable until the next UpdateObjects call.
func (b *Bridge) GetCurrentObjects() ([]core.ObjectMeta, time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.current == nil {
		return nil, time.Time{}, false
	}
	return append([]core.ObjectMeta(nil), b.current.Objects...), b.current.Timestamp, true
}

// GetFrameMetadata returns the buffered frame closest to ts by absolute
// timestamp difference. Used for display lookups.
func (b *Bridge) GetFrameMetadata(ts time.Time) (FrameMetadata, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.frames) == 0 {
		return FrameMetadata{}, false
	}

	best := b.frames[0]
	bestDiff := absDuration(ts.Sub(best.Timestamp))
	for _, f := range b.frames[1:] {
		diff := absDuration(ts.Sub(f.Timestamp))
		if diff < bestDiff {
			best = f
			bestDiff = diff
		}
	}
	return best, true
}

// SyncWithPipeline evicts everything older than now minus the configured
// max latency. now supplies "now" so callers can pass a pipeline clock
// instead of wall time.
func (b *Bridge) SyncWithPipeline(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.maxLatency)
	for len(b.frames) > 0 && b.frames[0].Timestamp.Before(cutoff) {
		b.frames = b.frames[1:]
		b.framesDropped++
	}
}

// Stats returns the bridge's current statistics snapshot.
func (b *Bridge) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	avg := 0.0
	if b.framesProcessed > 0 {
		avg = b.latencySumMS / float64(b.framesProcessed)
	}
	return Stats{
		FramesProcessed: b.framesProcessed,
		FramesDropped:   b.framesDropped,
		AvgLatencyMS:    avg,
		PeakLatencyMS:   b.peakLatencyMS,
		BufferSize:      len(b.frames),
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
