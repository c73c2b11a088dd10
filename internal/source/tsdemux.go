package source

import (
	"errors"
	"io"
	"os"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// tsPTSReader recovers real MPEG-TS presentation timestamps from a
// file://*.ts source, driving FrameMeta.pts instead of a synthetic clock.
// It is trimmed to timestamp extraction only — this module never
// re-encodes or re-muxes media, so the sample payloads themselves are
// discarded at the callback boundary.
type tsPTSReader struct {
	file *os.File
	pts  chan int64 // 90kHz PTS ticks, one per video access unit
}

// newTSPTSReader opens path and starts demuxing it in the background. If
// the file has no H264/H265 video track, the pts channel receives no values
// and is closed once the file has been read, so Next reports false and
// callers fall back to a synthetic clock.
func newTSPTSReader(path string) (*tsPTSReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	reader := &mpegts.Reader{R: f}
	if err := reader.Initialize(); err != nil {
		_ = f.Close()
		return nil, err
	}

	r := &tsPTSReader{file: f, pts: make(chan int64, 256)}

	for _, track := range reader.Tracks() {
		switch track.Codec.(type) {
		case *mpegts.CodecH264:
			_ = reader.OnDataH264(track, func(pts, _ int64, _ [][]byte) error {
				r.emit(pts)
				return nil
			})
		case *mpegts.CodecH265:
			_ = reader.OnDataH265(track, func(pts, _ int64, _ [][]byte) error {
				r.emit(pts)
				return nil
			})
		}
	}
	reader.OnDecodeError(func(error) {})

	go r.run(reader)
	return r, nil
}

func (r *tsPTSReader) emit(pts int64) {
	select {
	case r.pts <- pts:
	default:
		// Backpressure: the consumer is behind. Dropping a timestamp here
		// only delays that one frame's sync, it doesn't desync the stream,
		// since the next successful receive still carries a monotonic PTS.
	}
}

func (r *tsPTSReader) run(reader *mpegts.Reader) {
	defer close(r.pts)
	defer func() { _ = r.file.Close() }()
	for {
		if err := reader.Read(); err != nil {
			if !errors.Is(err, io.EOF) {
				return
			}
			return
		}
	}
}

// Next returns the next frame's presentation timestamp in nanoseconds
// (converting from MPEG-TS's 90kHz clock), and false once the file is
// exhausted or carried no video track.
func (r *tsPTSReader) Next() (ns uint64, ok bool) {
	pts, ok := <-r.pts
	if !ok {
		return 0, false
	}
	return uint64(pts) * 100000 / 9, true
}

// Close releases the underlying file if it hasn't already reached EOF.
func (r *tsPTSReader) Close() error {
	return r.file.Close()
}
