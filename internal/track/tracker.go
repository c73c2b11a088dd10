// Package track implements the centroid-based multi-object tracker:
// greedy nearest-neighbor identity assignment across frames, with bounded
// trajectory memory.
package track

import (
	"math"
	"sort"
	"sync"

	"github.com/destenson/dsvision/internal/core"
)

// DefaultMaxDisappeared is the default disappearance budget, in frames,
// before a tracked object is dropped.
const DefaultMaxDisappeared = 30

// DefaultMaxDistance is the default greedy-match distance gate in pixels.
const DefaultMaxDistance = 50.0

// maxTrajectoryPoints bounds TrackedObject.Trajectory: oldest points are
// dropped once the trajectory grows past this length.
const maxTrajectoryPoints = 100

// TrackedObject is one identity the tracker is currently following.
type TrackedObject struct {
	ID               uint64
	CentroidX        float32
	CentroidY        float32
	BBox             core.BoundingBox
	ClassID          int
	ClassName        string
	Confidence       float64
	DisappearedCount uint32
	Trajectory       []Point
}

// Point is one (x, y) sample in a TrackedObject's trajectory.
type Point struct {
	X, Y float32
}

// Config governs the tracker's matching thresholds.
type Config struct {
	MaxDisappeared uint32
	MaxDistance    float64
}

// DefaultConfig returns the tracker's default thresholds.
func DefaultConfig() Config {
	return Config{MaxDisappeared: DefaultMaxDisappeared, MaxDistance: DefaultMaxDistance}
}

// Tracker holds the centroid tracker's live state. All mutation goes
// through Update, which is safe for concurrent use, but no two goroutines
// should call Update concurrently for the same tracker: a tracker belongs
// to exactly one stream's detection loop, which calls it in frame order.
type Tracker struct {
	mu      sync.Mutex
	cfg     Config
	nextID  uint64
	objects map[uint64]*TrackedObject
}

// New creates a Tracker with cfg's thresholds.
func New(cfg Config) *Tracker {
	if cfg.MaxDisappeared == 0 {
		cfg.MaxDisappeared = DefaultMaxDisappeared
	}
	if cfg.MaxDistance == 0 {
		cfg.MaxDistance = DefaultMaxDistance
	}
	return &Tracker{cfg: cfg, objects: make(map[uint64]*TrackedObject)}
}

// Update advances the tracker by one frame's detections and returns the
// current set of tracked objects.
func (t *Tracker) Update(detections []core.Detection) []TrackedObject {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(detections) == 0 {
		return t.ageOutLocked()
	}

	if len(t.objects) == 0 {
		for _, d := range detections {
			t.registerLocked(d)
		}
		return t.snapshotLocked()
	}

	return t.matchLocked(detections)
}

// ageOutLocked handles the empty-input case: increment disappeared_count
// on all tracked objects, remove any exceeding max_disappeared, return the
// survivors.
func (t *Tracker) ageOutLocked() []TrackedObject {
	for id, obj := range t.objects {
		obj.DisappearedCount++
		if obj.DisappearedCount > t.cfg.MaxDisappeared {
			delete(t.objects, id)
		}
	}
	return t.snapshotLocked()
}

// registerLocked assigns a fresh monotonically increasing id to a new
// detection.
func (t *Tracker) registerLocked(d core.Detection) {
	cx, cy := d.BBox.Center()
	id := t.nextID
	t.nextID++
	t.objects[id] = &TrackedObject{
		ID:         id,
		CentroidX:  float32(cx),
		CentroidY:  float32(cy),
		BBox:       d.BBox,
		ClassID:    d.ClassID,
		ClassName:  d.ClassName,
		Confidence: d.Confidence,
		Trajectory: []Point{{X: float32(cx), Y: float32(cy)}},
	}
}

type pairDistance struct {
	trackID  uint64
	detIdx   int
	distance float64
}

// matchLocked is the general case: compute the full distance matrix,
// greedily match by ascending distance (rejecting pairs beyond
// max_distance), update matched tracks, age out unmatched tracks, and
// register unmatched detections as new tracks.
func (t *Tracker) matchLocked(detections []core.Detection) []TrackedObject {
	trackIDs := make([]uint64, 0, len(t.objects))
	for id := range t.objects {
		trackIDs = append(trackIDs, id)
	}

	pairs := make([]pairDistance, 0, len(trackIDs)*len(detections))
	for _, tid := range trackIDs {
		obj := t.objects[tid]
		for di, d := range detections {
			cx, cy := d.BBox.Center()
			dist := euclidean(float64(obj.CentroidX), float64(obj.CentroidY), cx, cy)
			pairs = append(pairs, pairDistance{trackID: tid, detIdx: di, distance: dist})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].distance < pairs[j].distance })

	matchedTracks := make(map[uint64]struct{}, len(trackIDs))
	matchedDets := make(map[int]struct{}, len(detections))

	for _, p := range pairs {
		if p.distance > t.cfg.MaxDistance {
			break // pairs are sorted ascending; nothing further can qualify
		}
		if _, used := matchedTracks[p.trackID]; used {
			continue
		}
		if _, used := matchedDets[p.detIdx]; used {
			continue
		}
		t.updateMatchLocked(p.trackID, detections[p.detIdx])
		matchedTracks[p.trackID] = struct{}{}
		matchedDets[p.detIdx] = struct{}{}
	}

	for _, tid := range trackIDs {
		if _, ok := matchedTracks[tid]; ok {
			continue
		}
		obj := t.objects[tid]
		obj.DisappearedCount++
		if obj.DisappearedCount > t.cfg.MaxDisappeared {
			delete(t.objects, tid)
		}
	}

	for di, d := range detections {
		if _, ok := matchedDets[di]; !ok {
			t.registerLocked(d)
		}
	}

	return t.snapshotLocked()
}

// updateMatchLocked applies a matched detection to an existing track:
// update centroid, bbox, confidence, reset disappeared_count, append to
// trajectory (bounded).
func (t *Tracker) updateMatchLocked(id uint64, d core.Detection) {
	obj := t.objects[id]
	cx, cy := d.BBox.Center()
	obj.CentroidX = float32(cx)
	obj.CentroidY = float32(cy)
	obj.BBox = d.BBox
	obj.ClassID = d.ClassID
	obj.ClassName = d.ClassName
	obj.Confidence = d.Confidence
	obj.DisappearedCount = 0

	obj.Trajectory = append(obj.Trajectory, Point{X: float32(cx), Y: float32(cy)})
	if len(obj.Trajectory) > maxTrajectoryPoints {
		obj.Trajectory = obj.Trajectory[len(obj.Trajectory)-maxTrajectoryPoints:]
	}
}

func (t *Tracker) snapshotLocked() []TrackedObject {
	out := make([]TrackedObject, 0, len(t.objects))
	for _, obj := range t.objects {
		cp := *obj
		cp.Trajectory = append([]Point(nil), obj.Trajectory...)
		out = append(out, cp)
	}
	return out
}

func euclidean(x1, y1, x2, y2 float64) float64 {
	dx := x1 - x2
	dy := y1 - y2
	return math.Sqrt(dx*dx + dy*dy)
}
