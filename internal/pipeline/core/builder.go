package core

import (
	"log/slog"

	dscore "github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/platform"
)

// propertySet is a pending SetProperty call, applied during Build() in the
// order recorded so later calls win over earlier ones for the same key.
type propertySet struct {
	name  string
	key   string
	value any
}

type link struct {
	src string
	dst string
}

// Builder provides the fluent composition surface: add element, set
// property, link, build. It follows a WithX-chaining, final-validating-Build
// pattern generalized to element-graph construction.
type Builder struct {
	platform *platform.Platform
	order    []string // insertion-ordered element names
	roles    map[string]dscore.ElementRole
	params   map[string]map[string]any
	props    []propertySet
	links    []link
	logger   *slog.Logger

	autoFlushBus bool
	useClock     bool
	startPaused  bool
}

// NewBuilder creates a Builder bound to an already-probed platform.
func NewBuilder(p *platform.Platform) *Builder {
	return &Builder{
		platform: p,
		roles:    make(map[string]dscore.ElementRole),
		params:   make(map[string]map[string]any),
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger used for build-time diagnostics.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// AutoFlushBus, UseClock, and StartPaused are the only boolean controls on
// the builder.
func (b *Builder) AutoFlushBus(enabled bool) *Builder { b.autoFlushBus = enabled; return b }
func (b *Builder) UseClock(enabled bool) *Builder     { b.useClock = enabled; return b }
func (b *Builder) StartPaused(enabled bool) *Builder  { b.startPaused = enabled; return b }

// AddElement records an element to be created by role during Build(). name
// must be unique within this builder; duplicates are reported at Build()
// time so the caller can chain freely without checking every call.
func (b *Builder) AddElement(role dscore.ElementRole, name string, params map[string]any) *Builder {
	b.order = append(b.order, name)
	b.roles[name] = role
	if params != nil {
		b.params[name] = params
	}
	return b
}

// SetProperty queues a property assignment on a previously added element
// name, applied once the element is constructed during Build().
func (b *Builder) SetProperty(name, key string, value any) *Builder {
	b.props = append(b.props, propertySet{name: name, key: key, value: value})
	return b
}

// Link records a src -> dst connection, resolved during Build().
func (b *Builder) Link(src, dst string) *Builder {
	b.links = append(b.links, link{src: src, dst: dst})
	return b
}

// Build performs, in order: validate names unique -> create all elements
// via the platform -> resolve links (error if any name missing) -> apply
// queued properties -> optionally start paused.
func (b *Builder) Build() (*Pipeline, error) {
	seen := make(map[string]struct{}, len(b.order))
	for _, name := range b.order {
		if _, dup := seen[name]; dup {
			return nil, NewConfigurationError("name", name+": "+ErrDuplicateName.Error())
		}
		seen[name] = struct{}{}
	}

	elements := make(map[string]platform.Element, len(b.order))
	for _, name := range b.order {
		el, err := b.platform.CreateElement(b.roles[name], name, b.params[name])
		if err != nil {
			return nil, err
		}
		elements[name] = el
	}

	for _, l := range b.links {
		if _, ok := elements[l.src]; !ok {
			return nil, NewLinkError(l.src, l.dst, ErrElementNotFound)
		}
		if _, ok := elements[l.dst]; !ok {
			return nil, NewLinkError(l.src, l.dst, ErrElementNotFound)
		}
	}

	for _, p := range b.props {
		el, ok := elements[p.name]
		if !ok {
			return nil, NewConfigurationError(p.name, ErrElementNotFound.Error())
		}
		if err := el.SetProperty(p.key, p.value); err != nil {
			return nil, err
		}
	}

	pl := &Pipeline{
		elements: elements,
		order:    append([]string(nil), b.order...),
		links:    append([]link(nil), b.links...),
		logger:   b.logger,
		state:    StateNull,
	}

	if b.startPaused {
		pl.state = StatePaused
	} else {
		pl.state = StateReady
	}

	return pl, nil
}
