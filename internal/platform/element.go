// Package platform implements the backend-abstracted element creation
// layer: a single query, CreateElement(role, name, params), that hides
// whether the process is running against hardware-accelerated,
// generic-software, or mock deployments.
package platform

import (
	"sync"

	"github.com/destenson/dsvision/internal/core"
)

// Element is a named, backend-owned pipeline element. Platform-specific
// property sets (gpu-id, batch timeout, memory mode) are applied inside
// the backend via SetProperty, not by callers.
type Element interface {
	Name() string
	Role() core.ElementRole
	SetProperty(key string, value any) error
	Property(key string) (any, bool)
}

// baseElement is the concrete Element shared by all three backends; only
// the params a given backend cares about differ.
type baseElement struct {
	mu    sync.RWMutex
	name  string
	role  core.ElementRole
	props map[string]any
}

func newBaseElement(role core.ElementRole, name string, params map[string]any) *baseElement {
	props := make(map[string]any, len(params))
	for k, v := range params {
		props[k] = v
	}
	return &baseElement{name: name, role: role, props: props}
}

func (e *baseElement) Name() string          { return e.name }
func (e *baseElement) Role() core.ElementRole { return e.role }

func (e *baseElement) SetProperty(key string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.props[key] = value
	return nil
}

func (e *baseElement) Property(key string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.props[key]
	return v, ok
}
