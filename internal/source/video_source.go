package source

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/platform"
)

// Scheme is a recognized source URI scheme.
type Scheme string

const (
	SchemeFile        Scheme = "file"
	SchemeRTSP        Scheme = "rtsp"
	SchemeRTSPT       Scheme = "rtspt"
	SchemeHTTP        Scheme = "http"
	SchemeHTTPS       Scheme = "https"
	SchemeVideoTestSrc Scheme = "videotestsrc"
)

var validSchemes = map[Scheme]struct{}{
	SchemeFile: {}, SchemeRTSP: {}, SchemeRTSPT: {}, SchemeHTTP: {}, SchemeHTTPS: {}, SchemeVideoTestSrc: {},
}

// ParsedURI is a source URI split into scheme, remainder, and (for the
// videotestsrc:// sentinel) a pattern fragment, e.g. videotestsrc://smpte,
// videotestsrc://ball, videotestsrc://noise.
type ParsedURI struct {
	Scheme  Scheme
	Rest    string // everything after "scheme://"
	Pattern string // videotestsrc pattern name, empty for other schemes
}

// ParseURI validates and splits a source URI. Empty and unknown-scheme
// URIs are rejected with InvalidInput.
func ParseURI(uri string) (ParsedURI, error) {
	if uri == "" {
		return ParsedURI{}, fmt.Errorf("%w: empty source URI", core.ErrInvalidInput)
	}
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return ParsedURI{}, fmt.Errorf("%w: source URI %q has no scheme", core.ErrInvalidInput, uri)
	}
	scheme := Scheme(strings.ToLower(uri[:idx]))
	if _, ok := validSchemes[scheme]; !ok {
		return ParsedURI{}, fmt.Errorf("%w: unknown scheme %q", core.ErrInvalidInput, scheme)
	}
	rest := uri[idx+3:]
	p := ParsedURI{Scheme: scheme, Rest: rest}
	if scheme == SchemeVideoTestSrc {
		p.Pattern = rest
	}
	return p, nil
}

// VideoSource owns a decoded, timestamped frame stream: id, URI, a concrete
// decode element, current state, and opaque pad handles.
type VideoSource struct {
	mu        sync.RWMutex
	id        core.SourceId
	uri       string
	parsed    ParsedURI
	decoder   platform.Element
	state     core.SourceState
	padName   string
	ptsReader *tsPTSReader // non-nil only for file://*.ts sources with a recovered video track
	clockZero time.Time    // synthetic-clock origin, used once ptsReader is nil/exhausted
}

// NewVideoSource constructs a source bound to id/uri, creating its decoder
// element from the given platform. The source starts Idle.
func NewVideoSource(id core.SourceId, uri string, p *platform.Platform) (*VideoSource, error) {
	parsed, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	params := map[string]any{"uri": uri, "scheme": string(parsed.Scheme)}
	decoder, err := p.CreateElement(core.RoleDecoder, fmt.Sprintf("decoder_%d", int(id)), params)
	if err != nil {
		return nil, core.NewSourceError(id, uri, err)
	}

	vs := &VideoSource{
		id:        id,
		uri:       uri,
		parsed:    parsed,
		decoder:   decoder,
		state:     core.SourceIdle,
		padName:   id.SourcePadName(),
		clockZero: time.Now(),
	}

	// file://*.ts sources are demuxed to recover real PES presentation
	// timestamps rather than relying on a synthetic clock. A demux failure
	// here is not fatal to source construction — it just means
	// NextTimestampNS falls back to the synthetic clock.
	if parsed.Scheme == SchemeFile && strings.HasSuffix(strings.ToLower(parsed.Rest), ".ts") {
		if r, tsErr := newTSPTSReader(parsed.Rest); tsErr == nil {
			vs.ptsReader = r
		}
	}

	return vs, nil
}

func (s *VideoSource) ID() core.SourceId         { return s.id }
func (s *VideoSource) URI() string               { return s.uri }
func (s *VideoSource) PadName() string           { return s.padName }
func (s *VideoSource) Parsed() ParsedURI         { return s.parsed }
func (s *VideoSource) Decoder() platform.Element { return s.decoder }

// NextTimestampNS returns the next frame's presentation timestamp in
// nanoseconds. For file://*.ts sources with a recovered video track this
// is the real demuxed PTS; otherwise (and once a .ts source's video track
// is exhausted) it is a synthetic monotonic clock reading relative to when
// the source was constructed. Frame pacing is driven separately by each
// detection loop's processing interval, not by the timestamp source.
func (s *VideoSource) NextTimestampNS() uint64 {
	if s.ptsReader != nil {
		if ns, ok := s.ptsReader.Next(); ok {
			return ns
		}
		s.ptsReader = nil
	}
	return uint64(time.Since(s.clockZero).Nanoseconds())
}

// Close releases any resources NewVideoSource opened, such as the .ts
// demux file handle. Safe to call on a source with no such resources.
func (s *VideoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ptsReader != nil {
		err := s.ptsReader.Close()
		s.ptsReader = nil
		return err
	}
	return nil
}

// State returns the source's current lifecycle state.
func (s *VideoSource) State() core.SourceState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SetState records a new lifecycle state. Monotonic except that Error/
// Stopped may transition back to Initializing on restart — enforcement of
// that monotonicity is the controller's responsibility since it alone
// knows about restarts; this setter is a plain store.
func (s *VideoSource) SetState(state core.SourceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}
