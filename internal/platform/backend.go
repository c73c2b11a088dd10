package platform

import (
	"fmt"

	"github.com/destenson/dsvision/internal/codec"
	"github.com/destenson/dsvision/internal/core"
)

// backend is the sealed set of concrete element-creation strategies: a
// fixed set of concrete backends (DeepStream, Standard, Mock) chosen once
// at startup and stored behind a single indirection for the life of the
// process.
type backend interface {
	Name() string
	Capabilities() core.Capabilities
	CreateElement(role core.ElementRole, name string, params map[string]any) (Element, error)
}

// deepStreamBackend models the hardware-accelerated NVIDIA DeepStream
// deployment. Its plugin classes are never importable in this pure-Go
// module (there is no CGO binding to the DeepStream SDK in the example
// pack), so probing it always fails and control falls through to
// StandardBackend; the type exists so FORCE_BACKEND=deepstream still
// resolves to a named backend rather than silently degrading.
type deepStreamBackend struct{}

func (deepStreamBackend) Name() string { return "deepstream" }

func (deepStreamBackend) Capabilities() core.Capabilities {
	return core.Capabilities{
		SupportsInference: true,
		SupportsTracking:  true,
		SupportsOSD:       true,
		SupportsBatching:  true,
		SupportsHWDecode:  true,
		MaxBatchSize:      32,
		AvailableElements: map[string]struct{}{},
	}
}

var errDeepStreamUnavailable = fmt.Errorf("%w: deepstream plugin classes not present in this build", core.ErrNotInitialized)

func (deepStreamBackend) CreateElement(role core.ElementRole, name string, params map[string]any) (Element, error) {
	return nil, core.NewElementError(name, role, errDeepStreamUnavailable)
}

// available reports false unconditionally: there is nothing to probe for in
// a CGO-free module. Kept as a method (rather than a constant) so a future
// build tag carrying real DeepStream bindings can override it.
func (deepStreamBackend) available() bool { return false }

// standardBackend is the generic-software backend: standard GStreamer-style
// plugin classes plus ONNX CPU inference. This is the backend with genuine
// logic — its Decoder role consults the codec registry (internal/codec)
// for capability gating. MPEG-TS timestamp recovery for .ts sources is
// done by internal/source's VideoSource, whichever backend is active.
type standardBackend struct{}

func (standardBackend) Name() string { return "standard" }

func (standardBackend) Capabilities() core.Capabilities {
	return core.Capabilities{
		SupportsInference: true,
		SupportsTracking:  true,
		SupportsOSD:       false, // no hardware OSD plugin; render falls back to x/image, see internal/render
		SupportsBatching:  true,
		SupportsHWDecode:  false,
		MaxBatchSize:      8,
		AvailableElements: map[string]struct{}{
			"decodebin":    {},
			"videoconvert": {},
			"appsink":      {},
			"streammux":    {},
		},
	}
}

func (standardBackend) available() bool { return true }

func (b standardBackend) CreateElement(role core.ElementRole, name string, params map[string]any) (Element, error) {
	el := newBaseElement(role, name, params)
	switch role {
	case core.RoleDecoder:
		if codecName, ok := params["codec"].(string); ok && codecName != "" {
			v, known := codec.ParseVideo(codecName)
			if !known {
				return nil, core.NewElementError(name, role,
					fmt.Errorf("%w: unrecognized video codec %q", core.ErrConfiguration, codecName))
			}
			if !v.IsDemuxable() {
				return nil, core.NewElementError(name, role,
					fmt.Errorf("%w: video codec %q not demuxable by the linked mediacommon build", core.ErrConfiguration, codecName))
			}
		}
	case core.RoleOsd:
		// Standard backend never exposes a hardware OSD element; callers
		// must check Capabilities().SupportsOSD before requesting one.
		return nil, core.NewElementError(name, role,
			fmt.Errorf("%w: standard backend has no hardware OSD", core.ErrNotInitialized))
	}
	return el, nil
}

// mockBackend is the passthrough backend used for tests and environments
// with no media framework at all. Every role succeeds trivially with a
// plain property-bag element; nothing is decoded.
type mockBackend struct{}

func (mockBackend) Name() string { return "mock" }

func (mockBackend) Capabilities() core.Capabilities {
	return core.Capabilities{
		SupportsInference: true,
		SupportsTracking:  true,
		SupportsOSD:       false,
		SupportsBatching:  false,
		SupportsHWDecode:  false,
		MaxBatchSize:      1,
		AvailableElements: map[string]struct{}{"mock": {}},
	}
}

func (mockBackend) available() bool { return true }

func (mockBackend) CreateElement(role core.ElementRole, name string, params map[string]any) (Element, error) {
	return newBaseElement(role, name, params), nil
}
