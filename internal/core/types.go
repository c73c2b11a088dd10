package core

import "fmt"

// SourceId is a small integer drawn from [0, MaxSources).
type SourceId int

// String formats a SourceId as "source-{n}".
func (id SourceId) String() string {
	return fmt.Sprintf("source-%d", int(id))
}

// SourcePadName returns the stream mux's request pad name for this source,
// named sink_{id} where id is the SourceId.
func (id SourceId) SourcePadName() string {
	return fmt.Sprintf("sink_%d", int(id))
}

// SourceState is the lifecycle state of a VideoSource. Monotonic except
// that Error/Stopped may transition back to Initializing on restart.
type SourceState int

const (
	SourceIdle SourceState = iota
	SourceInitializing
	SourcePlaying
	SourcePaused
	SourceStopping
	SourceStopped
	SourceError
)

func (s SourceState) String() string {
	switch s {
	case SourceIdle:
		return "Idle"
	case SourceInitializing:
		return "Initializing"
	case SourcePlaying:
		return "Playing"
	case SourcePaused:
		return "Paused"
	case SourceStopping:
		return "Stopping"
	case SourceStopped:
		return "Stopped"
	case SourceError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ElementRole is a canonical, closed set of pipeline element roles that the
// platform abstraction maps onto concrete backend elements.
type ElementRole int

const (
	RoleStreamMux ElementRole = iota
	RoleInference
	RoleTracker
	RoleTiler
	RoleOsd
	RoleVideoConvert
	RoleVideoSink
	RoleDecoder
)

func (r ElementRole) String() string {
	switch r {
	case RoleStreamMux:
		return "StreamMux"
	case RoleInference:
		return "Inference"
	case RoleTracker:
		return "Tracker"
	case RoleTiler:
		return "Tiler"
	case RoleOsd:
		return "Osd"
	case RoleVideoConvert:
		return "VideoConvert"
	case RoleVideoSink:
		return "VideoSink"
	case RoleDecoder:
		return "Decoder"
	default:
		return "Unknown"
	}
}

// Capabilities describes what a backend can do. Callers gate optional
// stages on these fields; a missing capability degrades to an identity
// passthrough, never a fatal error.
type Capabilities struct {
	SupportsInference bool
	SupportsTracking  bool
	SupportsOSD       bool
	SupportsBatching  bool
	SupportsHWDecode  bool
	MaxBatchSize      int
	AvailableElements map[string]struct{}
}

// HasElement reports whether name is among the backend's available element
// classes.
func (c Capabilities) HasElement(name string) bool {
	_, ok := c.AvailableElements[name]
	return ok
}

// BoundingBox is a pixel-space box. Left/Top/Width/Height are the
// canonical fields; Right/Bottom/Center/Area are derived.
type BoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

func (b BoundingBox) Right() float64  { return b.Left + b.Width }
func (b BoundingBox) Bottom() float64 { return b.Top + b.Height }
func (b BoundingBox) Area() float64   { return b.Width * b.Height }

func (b BoundingBox) Center() (float64, float64) {
	return b.Left + b.Width/2, b.Top + b.Height/2
}

// IoU computes intersection-over-union of a and b: 0 if disjoint.
// Degenerate (zero-area) boxes also return 0 unless a and b are the
// identical box with positive area, in which case IoU(a,a) == 1.0.
func (a BoundingBox) IoU(b BoundingBox) float64 {
	if a == b {
		if a.Area() <= 0 {
			return 0
		}
		return 1.0
	}

	left := max(a.Left, b.Left)
	top := max(a.Top, b.Top)
	right := min(a.Right(), b.Right())
	bottom := min(a.Bottom(), b.Bottom())

	if right <= left || bottom <= top {
		return 0
	}

	intersection := (right - left) * (bottom - top)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// Detection is a single labeled detection output by the detection engine.
type Detection struct {
	ClassID    int
	ClassName  string
	Confidence float64
	BBox       BoundingBox
}

// UntrackedObjectID is the ObjectMeta.ObjectID sentinel for an object that
// has not been assigned a tracker identity (u64::MAX == untracked).
const UntrackedObjectID = ^uint64(0)

// ObjectMeta mirrors a DeepStream-flavored per-object metadata record.
type ObjectMeta struct {
	ObjectID            uint64
	ClassID             int
	UniqueComponentID   int // primary=1, secondary=2
	DetectorBBox        BoundingBox
	TrackerBBox         BoundingBox
	EffectiveBBox       BoundingBox // clipped to frame bounds
	DetectionConfidence float64
	TrackerConfidence   float64
	Label               string
	Classifications     []string
	Parent              *ObjectMeta
	TrackingAge         uint32
}

// IsTracked reports whether this object carries a tracker identity: for
// every ObjectMeta with ObjectID != UntrackedObjectID, IsTracked is true.
func (o ObjectMeta) IsTracked() bool {
	return o.ObjectID != UntrackedObjectID
}

// FrameMeta is the per-frame metadata record attached to a decoded frame.
type FrameMeta struct {
	SourceID  SourceId
	BatchID   uint64
	FrameNum  uint64
	PTS       uint64 // nanoseconds
	NTPTS     uint64
	Width     int
	Height    int
	Inferred  bool
	Objects   []ObjectMeta
}

// BatchMeta groups frames from distinct sources processed together by
// inference.
type BatchMeta struct {
	BatchID   uint64
	MaxFrames int
	Frames    []FrameMeta
}

// Append adds f to the batch if room remains, preserving the invariant
// len(Frames) <= MaxFrames. Returns false if the batch is already full.
func (b *BatchMeta) Append(f FrameMeta) bool {
	if len(b.Frames) >= b.MaxFrames {
		return false
	}
	b.Frames = append(b.Frames, f)
	return true
}
