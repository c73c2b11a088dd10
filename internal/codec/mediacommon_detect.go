// Package codec provides runtime detection of mediacommon codec support.
// This file detects which video codecs are supported by the mediacommon
// library at init time, automatically adapting when upstream adds new
// codecs, rather than hardcoding a demuxability table that can drift out
// of sync with the linked build.
package codec

import (
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mpegts"
)

// mediacommonSupportedCodecs tracks which video codec types exist in
// mediacommon. Detected at init time using type assertions.
var mediacommonSupportedCodecs = struct {
	H264  bool
	H265  bool
	MPEG1 bool
	MPEG4 bool
}{}

func init() {
	// Detect supported video codecs by checking if types exist in
	// mediacommon, via type assertions against the mpegts.Codec interface.

	var h264 mpegts.Codec = &mpegts.CodecH264{}
	mediacommonSupportedCodecs.H264 = !isUnsupportedCodec(h264)

	var h265 mpegts.Codec = &mpegts.CodecH265{}
	mediacommonSupportedCodecs.H265 = !isUnsupportedCodec(h265)

	var mpeg1 mpegts.Codec = &mpegts.CodecMPEG1Video{}
	mediacommonSupportedCodecs.MPEG1 = !isUnsupportedCodec(mpeg1)

	var mpeg4 mpegts.Codec = &mpegts.CodecMPEG4Video{}
	mediacommonSupportedCodecs.MPEG4 = !isUnsupportedCodec(mpeg4)

	updateRegistryWithDetectedSupport()
}

// isUnsupportedCodec checks if a codec is the CodecUnsupported sentinel type.
func isUnsupportedCodec(c mpegts.Codec) bool {
	_, isUnsupported := c.(*mpegts.CodecUnsupported)
	return isUnsupported
}

// updateRegistryWithDetectedSupport updates the Demuxable flags in
// videoRegistry based on what mediacommon actually supports.
func updateRegistryWithDetectedSupport() {
	if info, ok := videoRegistry[VideoH264]; ok {
		info.Demuxable = mediacommonSupportedCodecs.H264
	}
	if info, ok := videoRegistry[VideoH265]; ok {
		info.Demuxable = mediacommonSupportedCodecs.H265
	}
	if info, ok := videoRegistry[VideoMPEG1]; ok {
		info.Demuxable = mediacommonSupportedCodecs.MPEG1
	}
	if info, ok := videoRegistry[VideoMPEG4]; ok {
		info.Demuxable = mediacommonSupportedCodecs.MPEG4
	}
}

// IsMediacommonCodecSupported returns whether mediacommon supports demuxing
// the named video codec. Detected at runtime based on what types are
// exported from the linked mediacommon build.
func IsMediacommonCodecSupported(codecName string) bool {
	video, ok := ParseVideo(codecName)
	if !ok {
		return false
	}
	return video.IsDemuxable()
}
