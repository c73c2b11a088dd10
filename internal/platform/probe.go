package platform

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/destenson/dsvision/internal/core"
)

// BackendName identifies one of the sealed backends.
type BackendName string

const (
	BackendDeepStream BackendName = "deepstream"
	BackendStandard   BackendName = "standard"
	BackendMock       BackendName = "mock"
)

// Platform wraps the chosen backend behind a single indirection for the
// life of the process, dispatching dynamically over whichever backend was
// selected at startup.
type Platform struct {
	name     BackendName
	impl     backend
	capsOnce sync.Once
	caps     core.Capabilities
}

// Name reports which backend was selected.
func (p *Platform) Name() BackendName { return p.name }

// Capabilities returns the active backend's capability record.
func (p *Platform) Capabilities() core.Capabilities {
	p.capsOnce.Do(func() { p.caps = p.impl.Capabilities() })
	return p.caps
}

// CreateElement delegates to the active backend. Failures are returned as
// a typed *core.ElementError, never a panic — callers get explicit typed
// error returns instead of exception-style control flow.
func (p *Platform) CreateElement(role core.ElementRole, name string, params map[string]any) (Element, error) {
	el, err := p.impl.CreateElement(role, name, params)
	if err != nil {
		return nil, err
	}
	return el, nil
}

// probeOrder is priority order: accelerated, then software, then mock.
var probeOrder = []struct {
	name BackendName
	impl backend
}{
	{BackendDeepStream, deepStreamBackend{}},
	{BackendStandard, standardBackend{}},
	{BackendMock, mockBackend{}},
}

// availabler is implemented by every backend so Probe can test whether its
// required plugin classes load without a type switch per backend.
type availabler interface {
	available() bool
}

// Probe runs once at startup and selects the highest-capability backend
// whose required plugin classes all load. forceBackend, when non-empty,
// must be honored exactly and overrides probing entirely, even if that
// backend reports itself unavailable — an explicit override is a
// configuration error, not a silent fallback.
func Probe(forceBackend string, logger *slog.Logger) (*Platform, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if forceBackend != "" {
		for _, candidate := range probeOrder {
			if string(candidate.name) == forceBackend {
				logger.Info("platform backend forced", slog.String("backend", string(candidate.name)))
				return &Platform{name: candidate.name, impl: candidate.impl}, nil
			}
		}
		return nil, fmt.Errorf("%w: unknown FORCE_BACKEND %q", core.ErrConfiguration, forceBackend)
	}

	for _, candidate := range probeOrder {
		avail, ok := candidate.impl.(availabler)
		if ok && !avail.available() {
			logger.Debug("platform backend unavailable", slog.String("backend", string(candidate.name)))
			continue
		}
		logger.Info("platform backend selected", slog.String("backend", string(candidate.name)))
		return &Platform{name: candidate.name, impl: candidate.impl}, nil
	}

	return nil, fmt.Errorf("%w: no platform backend available", core.ErrNotInitialized)
}
