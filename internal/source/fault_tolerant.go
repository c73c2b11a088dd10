package source

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/destenson/dsvision/internal/core"
)

// RecoveryConfig governs the per-source recovery manager: max retries,
// backoff base, and jitter.
type RecoveryConfig struct {
	MaxRetries          int
	BackoffBase         time.Duration
	BackoffMax          time.Duration
	JitterFraction      float64 // 0..1, fraction of the computed backoff to jitter by
	CircuitThreshold    int
	CircuitCooldown     time.Duration
}

// DefaultRecoveryConfig matches internal/config's defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		MaxRetries:       5,
		BackoffBase:      500 * time.Millisecond,
		BackoffMax:       30 * time.Second,
		JitterFraction:   0.2,
		CircuitThreshold: 3,
		CircuitCooldown:  30 * time.Second,
	}
}

// recoveryState tracks one source's retry count and circuit breaker.
type recoveryState struct {
	breaker *circuitBreaker
	retries int
	uri     string
}

// FaultTolerantController wraps Controller with per-source retry,
// exponential backoff, and circuit breakers. It subscribes to the wrapped
// controller's Error events and drives restarts: remove+add of the same
// URI.
type FaultTolerantController struct {
	mu       sync.Mutex
	inner    *Controller
	cfg      RecoveryConfig
	states   map[core.SourceId]*recoveryState
	logger   *slog.Logger
	rand     *rand.Rand
	stopping bool
}

// NewFaultTolerantController wraps inner and subscribes to its events.
func NewFaultTolerantController(inner *Controller, cfg RecoveryConfig, logger *slog.Logger) *FaultTolerantController {
	if logger == nil {
		logger = slog.Default()
	}
	ft := &FaultTolerantController{
		inner:  inner,
		cfg:    cfg,
		states: make(map[core.SourceId]*recoveryState),
		logger: logger,
		//nolint:gosec // jitter does not need a cryptographic RNG
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	inner.Events().Subscribe(ft.handleEvent)
	return ft
}

func (ft *FaultTolerantController) handleEvent(e Event) {
	switch e.Kind {
	case EventSourceAdded:
		ft.mu.Lock()
		ft.states[e.SourceID] = &recoveryState{
			breaker: newCircuitBreaker(ft.cfg.CircuitThreshold, ft.cfg.CircuitCooldown),
			uri:     e.URI,
		}
		ft.mu.Unlock()
	case EventSourceRemoved:
		ft.mu.Lock()
		delete(ft.states, e.SourceID)
		ft.mu.Unlock()
	case EventError:
		ft.onError(e.SourceID, e.Message)
	}
}

// Add delegates to the inner controller; the resulting EventSourceAdded
// seeds this source's recovery state via handleEvent.
func (ft *FaultTolerantController) Add(uri string) (core.SourceId, error) {
	return ft.inner.Add(uri)
}

// AddBatch delegates to the inner controller's all-or-nothing batch add.
func (ft *FaultTolerantController) AddBatch(uris []string) ([]core.SourceId, error) {
	return ft.inner.AddBatch(uris)
}

// Remove delegates to the inner controller.
func (ft *FaultTolerantController) Remove(id core.SourceId, cfg RemovalConfig) error {
	return ft.inner.Remove(id, cfg)
}

// Events exposes the wrapped controller's event bus so callers can observe
// both the raw lifecycle events and the restarts this layer drives.
func (ft *FaultTolerantController) Events() *EventBus { return ft.inner.Events() }

// Registry exposes the underlying registry for read-only inspection.
func (ft *FaultTolerantController) Registry() *Registry { return ft.inner.Registry() }

// LastError returns the most recent human-readable error recorded for id.
func (ft *FaultTolerantController) LastError(id core.SourceId) string {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	st, ok := ft.states[id]
	if !ok {
		return ""
	}
	_, msg := st.breaker.State()
	return msg
}

// CircuitPhase reports the breaker phase for id, mostly for diagnostics
// and tests.
func (ft *FaultTolerantController) CircuitPhase(id core.SourceId) CircuitPhase {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	st, ok := ft.states[id]
	if !ok {
		return CircuitClosed
	}
	phase, _ := st.breaker.State()
	return phase
}

// Stop prevents any further restart attempts from being scheduled, used
// during orderly shutdown.
func (ft *FaultTolerantController) Stop() {
	ft.mu.Lock()
	ft.stopping = true
	ft.mu.Unlock()
}

// onError looks up the source's recovery state and, if the circuit allows
// it, sleeps the computed backoff and restarts the source on its own
// goroutine so the event-bus callback, which must never block, returns
// immediately.
func (ft *FaultTolerantController) onError(id core.SourceId, msg string) {
	ft.mu.Lock()
	stopping := ft.stopping
	st, ok := ft.states[id]
	ft.mu.Unlock()
	if stopping || !ok {
		return
	}

	now := time.Now()
	st.breaker.RecordFailure(now, msg)
	if !st.breaker.AllowAttempt(now) {
		ft.logger.Warn("circuit open, restart suppressed",
			slog.String("source_id", id.String()), slog.String("error", msg))
		return
	}

	ft.mu.Lock()
	if st.retries >= ft.cfg.MaxRetries {
		ft.mu.Unlock()
		ft.logger.Error("max retries exceeded, giving up on source",
			slog.String("source_id", id.String()), slog.Int("retries", st.retries))
		return
	}
	st.retries++
	attempt := st.retries
	uri := st.uri
	ft.mu.Unlock()

	backoff := ft.computeBackoff(attempt)
	ft.logger.Info("scheduling source restart",
		slog.String("source_id", id.String()), slog.Duration("backoff", backoff), slog.Int("attempt", attempt))

	go ft.restartAfter(id, uri, backoff, st)
}

// computeBackoff is exponential-base * 2^(attempt-1), clamped to BackoffMax
// and jittered by +/- JitterFraction.
func (ft *FaultTolerantController) computeBackoff(attempt int) time.Duration {
	base := ft.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		base *= 2
		if base > ft.cfg.BackoffMax {
			base = ft.cfg.BackoffMax
			break
		}
	}
	if ft.cfg.JitterFraction <= 0 {
		return base
	}
	jitter := float64(base) * ft.cfg.JitterFraction * (ft.rand.Float64()*2 - 1)
	result := time.Duration(float64(base) + jitter)
	if result < 0 {
		result = 0
	}
	return result
}

func (ft *FaultTolerantController) restartAfter(id core.SourceId, uri string, backoff time.Duration, st *recoveryState) {
	time.Sleep(backoff)
	if err := ft.restartSource(id, uri); err != nil {
		st.breaker.RecordFailure(time.Now(), err.Error())
		ft.logger.Error("restart failed",
			slog.String("source_id", id.String()), slog.String("uri", uri), slog.String("error", err.Error()))
		return
	}
	st.breaker.RecordSuccess()
}

// restartSource is remove+add of the same URI: the id may change but the
// URI is preserved. A 100ms gap separates the remove and the add.
func (ft *FaultTolerantController) restartSource(id core.SourceId, uri string) error {
	_ = ft.inner.Remove(id, RemovalConfig{Force: true, Timeout: time.Second})
	time.Sleep(removeGracePeriod)
	_, err := ft.inner.Add(uri)
	return err
}

// WaitIdle blocks until ctx is done; used by orderly shutdown to give
// in-flight restart goroutines a small grace window to settle.
func (ft *FaultTolerantController) WaitIdle(ctx context.Context) {
	<-ctx.Done()
}
