package netsim

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/platform"
)

// Simulator constructs a linear queue -> identity(drop) -> valve(drop)
// subgraph and applies Conditions to it. It is inserted between two
// existing pipeline elements by name; it is not itself a canonical role in
// internal/core's closed ElementRole set, since it is a testing-only
// collaborator, not part of the production element graph.
type Simulator struct {
	mu         sync.Mutex
	conditions Conditions
	queue      platform.Element
	identity   platform.Element
	valve      platform.Element
	dropTimer  *time.Timer
	rng        *rand.Rand
	logger     *slog.Logger
}

// New constructs a Simulator wired to the given queue/identity/valve
// elements (typically created via the platform abstraction with roles
// chosen by the caller; netsim does not itself create elements since it
// has no canonical ElementRole).
func New(queue, identity, valve platform.Element, logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		queue: queue, identity: identity, valve: valve,
		//nolint:gosec // simulated packet loss does not need a cryptographic RNG
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger,
	}
}

// Apply updates all three elements' properties to reflect c, atomically
// under a single lock, and reflects to the underlying elements
// immediately.
func (s *Simulator) Apply(c Conditions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions = c

	budget, unlimited := c.BandwidthBudgetBytes()
	_ = s.queue.SetProperty("max-size-time", 0) // unbounded time; only byte budget is constrained
	if unlimited {
		_ = s.queue.SetProperty("max-size-bytes", 0)
	} else {
		_ = s.queue.SetProperty("max-size-bytes", budget)
	}

	_ = s.identity.SetProperty("drop-probability", c.PacketLossPercent/100.0)
	_ = s.identity.SetProperty("duplicate-probability", c.DuplicateProbability/100.0)
	_ = s.identity.SetProperty("jitter-ms", c.JitterMS)
	_ = s.identity.SetProperty("latency-ms", c.LatencyMS)
	_ = s.identity.SetProperty("allow-reordering", c.AllowReordering)
	_ = s.identity.SetProperty("min-delay-ms", c.MinDelayMS)
	_ = s.identity.SetProperty("max-delay-ms", c.MaxDelayMS)
	_ = s.identity.SetProperty("delay-probability", c.DelayProbabilityPct/100.0)

	_ = s.valve.SetProperty("drop", c.ConnectionDropped)
}

// Current returns the last-applied conditions.
func (s *Simulator) Current() Conditions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conditions
}

// ShouldDropPacket is a helper the caller's probe/pad-handler invokes per
// packet to realize the probabilistic drop behavior the identity element's
// drop-probability property describes; it decides drops only, not
// duplication or reordering. It is exposed here so this
// behavior is testable without a real media framework underneath it.
func (s *Simulator) ShouldDropPacket() bool {
	s.mu.Lock()
	p := s.conditions.PacketLossPercent
	s.mu.Unlock()
	return s.rng.Float64()*100 < p
}

// ShouldDuplicatePacket mirrors ShouldDropPacket for the duplicate path.
func (s *Simulator) ShouldDuplicatePacket() bool {
	s.mu.Lock()
	p := s.conditions.DuplicateProbability
	s.mu.Unlock()
	return s.rng.Float64()*100 < p
}

// DropConnection sets the valve's drop property unconditionally.
func (s *Simulator) DropConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions.ConnectionDropped = true
	_ = s.valve.SetProperty("drop", true)
}

// RestoreConnection clears the valve's drop property.
func (s *Simulator) RestoreConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conditions.ConnectionDropped = false
	_ = s.valve.SetProperty("drop", false)
}

// SimulateConnectionDrop drops the connection and spawns a timer that
// restores it after duration. Calling it again before the timer fires
// replaces the pending restore.
func (s *Simulator) SimulateConnectionDrop(duration time.Duration) {
	s.DropConnection()

	s.mu.Lock()
	if s.dropTimer != nil {
		s.dropTimer.Stop()
	}
	s.dropTimer = time.AfterFunc(duration, s.RestoreConnection)
	s.mu.Unlock()
}
