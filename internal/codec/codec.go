// Package codec provides a minimal video codec registry: canonical names,
// known aliases, and demuxability gating. It exists so the standard
// backend's Decoder role (internal/platform) can reject a source codec it
// cannot actually demux before an element is ever built, rather than
// failing deep inside a decode pipeline.
package codec

import "strings"

// Video represents a video codec recognized by the decoder gating path.
type Video string

// Video codec constants. These are the codecs a source URI's codec
// parameter may name; coverage follows what file:// and rtsp:// sources in
// the example pack actually carry (MPEG-TS-muxed H.264/H.265, plus the
// older MPEG family), not a general transcoding target list.
const (
	VideoH264  Video = "h264" // H.264/AVC
	VideoH265  Video = "h265" // H.265/HEVC
	VideoVP8   Video = "vp8"  // VP8
	VideoVP9   Video = "vp9"  // VP9
	VideoAV1   Video = "av1"  // AV1
	VideoMPEG1 Video = "mpeg1"
	VideoMPEG2 Video = "mpeg2"
	VideoMPEG4 Video = "mpeg4"
)

// String returns the string representation of the video codec.
func (v Video) String() string {
	return string(v)
}

// videoInfo contains metadata about a video codec.
type videoInfo struct {
	// Canonical name (h264, h265, etc.)
	Name Video
	// All known aliases that map to this codec.
	Aliases []string
	// Whether this codec can be demuxed by the linked mediacommon MPEG-TS
	// demuxer. Refined at init time by mediacommon_detect.go against
	// whatever mediacommon build is actually linked.
	Demuxable bool
}

// videoRegistry contains all video codec definitions.
var videoRegistry = map[Video]*videoInfo{
	VideoH264: {
		Name:      VideoH264,
		Aliases:   []string{"h264", "avc", "avc1", "h.264"},
		Demuxable: true,
	},
	VideoH265: {
		Name:      VideoH265,
		Aliases:   []string{"h265", "hevc", "hev1", "hvc1", "h.265"},
		Demuxable: true,
	},
	VideoVP8: {
		Name:      VideoVP8,
		Aliases:   []string{"vp8"},
		Demuxable: false,
	},
	VideoVP9: {
		Name:      VideoVP9,
		Aliases:   []string{"vp9", "vp09"},
		Demuxable: false,
	},
	VideoAV1: {
		Name:      VideoAV1,
		Aliases:   []string{"av1", "av01"},
		Demuxable: false,
	},
	VideoMPEG1: {
		Name:      VideoMPEG1,
		Aliases:   []string{"mpeg1", "mpeg1video"},
		Demuxable: true,
	},
	VideoMPEG2: {
		Name:      VideoMPEG2,
		Aliases:   []string{"mpeg2", "mpeg2video"},
		Demuxable: true,
	},
	VideoMPEG4: {
		Name:      VideoMPEG4,
		Aliases:   []string{"mpeg4"},
		Demuxable: true,
	},
}

// videoAliasIndex maps all aliases to their canonical codec.
var videoAliasIndex map[string]Video

func init() {
	videoAliasIndex = make(map[string]Video)
	for codec, info := range videoRegistry {
		for _, alias := range info.Aliases {
			videoAliasIndex[strings.ToLower(alias)] = codec
		}
	}
}

// ParseVideo parses a string (codec name or alias) to a Video codec.
// Returns the canonical codec and whether the parse was successful.
func ParseVideo(s string) (Video, bool) {
	if s == "" {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	codec, ok := videoAliasIndex[s]
	return codec, ok
}

// IsDemuxable returns true if the video codec can be demuxed by the linked
// mediacommon MPEG-TS demuxer.
func (v Video) IsDemuxable() bool {
	info, ok := videoRegistry[v]
	if !ok {
		return true // assume demuxable for unknown (most common codecs are)
	}
	return info.Demuxable
}

// IsVideoDemuxable checks if a video codec string is demuxable by
// mediacommon. Convenience wrapper that parses and checks demuxability in
// one call.
func IsVideoDemuxable(codecName string) bool {
	codec, ok := ParseVideo(codecName)
	if !ok {
		return true // assume demuxable for unknown (most common codecs are H.264/H.265)
	}
	return codec.IsDemuxable()
}
