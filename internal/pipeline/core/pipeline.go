package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/platform"
)

// statePollInterval is the fixed poll period for WaitForState.
const statePollInterval = 100 * time.Millisecond

// Pipeline is the built element graph: an insertion-ordered set of named
// elements, the links between them, and a coarse lifecycle state.
type Pipeline struct {
	mu       sync.RWMutex
	elements map[string]platform.Element
	order    []string
	links    []link
	logger   *slog.Logger
	state    State
}

// GetByName returns the element registered under name, or (nil, false) if
// no such element exists.
func (p *Pipeline) GetByName(name string) (platform.Element, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	el, ok := p.elements[name]
	return el, ok
}

// Names returns element names in insertion order.
func (p *Pipeline) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

// State returns the pipeline's current coarse lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// SetState requests a transition and reports which of the three outcomes
// occurred. A transition to StateNull always reports StateChangeSuccess
// in this element abstraction (there is no underlying streaming thread to
// race with); StatePlaying reports StateChangeAsync to model the
// framework completing preroll off the caller's thread.
func (p *Pipeline) SetState(target State) StateChangeReturn {
	p.mu.Lock()
	defer p.mu.Unlock()

	if target == p.state {
		return StateChangeSuccess
	}

	p.state = StateTransitioning
	switch target {
	case StateNull:
		p.state = StateNull
		return StateChangeSuccess
	case StatePlaying:
		p.state = StatePlaying
		return StateChangeAsync
	default:
		p.state = target
		return StateChangeSuccess
	}
}

// WaitForState polls every 100ms until the pipeline reaches target or
// timeout elapses.
func (p *Pipeline) WaitForState(ctx context.Context, target State, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(statePollInterval)
	defer ticker.Stop()

	if p.State() == target {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if p.State() == target {
				return nil
			}
			if time.Now().After(deadline) {
				return ErrStateTimeout
			}
		}
	}
}
