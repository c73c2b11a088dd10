// Package multistream implements the multi-stream coordinator: a bounded
// pool of detection pipelines scheduled by priority across streams, with
// resource-gated admission and adaptive quality control.
package multistream

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	gopsprocess "github.com/shirou/gopsutil/v4/process"

	"github.com/destenson/dsvision/internal/core"
)

// DefaultPollInterval is the resource manager's CPU/RSS poll period.
const DefaultPollInterval = 5 * time.Second

// Usage is a resource-usage snapshot, combining the instantaneous reading
// with an exponentially-weighted moving average: admission decisions gate
// on the smoothed value so a single noisy sample doesn't flap admission.
type Usage struct {
	CPUPercent     float64
	CPUPercentEWMA float64
	RSSBytes       uint64
	RSSBytesEWMA   float64
	StreamCount    int
}

// ResourceConfig governs the resource manager.
type ResourceConfig struct {
	PollInterval         time.Duration
	MaxCPUPercent        float64
	MaxRSSBytes          uint64
	MaxConcurrentStreams int
	EWMAAlpha            float64 // smoothing factor, 0 < alpha <= 1; higher weighs recent samples more
}

// DefaultResourceConfig matches internal/config's defaults.
func DefaultResourceConfig() ResourceConfig {
	return ResourceConfig{
		PollInterval:         DefaultPollInterval,
		MaxCPUPercent:        80.0,
		MaxRSSBytes:          2 * 1024 * 1024 * 1024,
		MaxConcurrentStreams: 16,
		EWMAAlpha:            0.3,
	}
}

// ResourceManager polls process CPU% and RSS on a ticker and answers
// admission queries: can-add-stream requires CPU under limit, memory under
// limit, and stream count under the configured maximum.
type ResourceManager struct {
	mu     sync.RWMutex
	cfg    ResourceConfig
	proc   *gopsprocess.Process
	usage  Usage
	logger *slog.Logger

	streamCount int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewResourceManager creates a manager bound to the current process.
func NewResourceManager(cfg ResourceConfig, logger *slog.Logger) (*ResourceManager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.EWMAAlpha <= 0 || cfg.EWMAAlpha > 1 {
		cfg.EWMAAlpha = 0.3
	}

	proc, err := gopsprocess.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, core.NewSourceError(0, "", err)
	}

	return &ResourceManager{cfg: cfg, proc: proc, logger: logger}, nil
}

// Start launches the periodic poll loop on its own goroutine.
func (r *ResourceManager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.pollLoop(ctx)
}

// Stop cancels the poll loop and waits for it to exit.
func (r *ResourceManager) Stop() {
	r.mu.RLock()
	cancel := r.cancel
	done := r.done
	r.mu.RUnlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (r *ResourceManager) pollLoop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sample(ctx)
		}
	}
}

func (r *ResourceManager) sample(ctx context.Context) {
	cpuPct, err := r.proc.PercentWithContext(ctx, 0)
	if err != nil {
		r.logger.Debug("cpu sample failed", slog.String("error", err.Error()))
		cpuPct = 0
	}
	// Normalize against core count so 100% means every logical core is
	// saturated, the same scale as cpu.Percent's combined reading.
	if cores, cerr := cpu.CountsWithContext(ctx, true); cerr == nil && cores > 0 {
		cpuPct /= float64(cores)
	}

	memInfo, err := r.proc.MemoryInfoWithContext(ctx)
	var rss uint64
	if err == nil && memInfo != nil {
		rss = memInfo.RSS
	} else if err != nil {
		meminfo, merr := mem.VirtualMemoryWithContext(ctx)
		if merr == nil {
			rss = meminfo.Used
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	alpha := r.cfg.EWMAAlpha
	if r.usage.CPUPercentEWMA == 0 && r.usage.RSSBytesEWMA == 0 {
		r.usage.CPUPercentEWMA = cpuPct
		r.usage.RSSBytesEWMA = float64(rss)
	} else {
		r.usage.CPUPercentEWMA = alpha*cpuPct + (1-alpha)*r.usage.CPUPercentEWMA
		r.usage.RSSBytesEWMA = alpha*float64(rss) + (1-alpha)*r.usage.RSSBytesEWMA
	}
	r.usage.CPUPercent = cpuPct
	r.usage.RSSBytes = rss
	r.usage.StreamCount = r.streamCount
}

// Usage returns the current usage snapshot.
func (r *ResourceManager) Usage() Usage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.usage
}

// SetStreamCount records the coordinator's current stream count, polled
// into the next Usage snapshot.
func (r *ResourceManager) SetStreamCount(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.streamCount = n
}

// CanAddStream answers the admission query using the smoothed EWMA
// reading, not the instantaneous sample, so admission doesn't flap.
func (r *ResourceManager) CanAddStream() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.usage.CPUPercentEWMA >= r.cfg.MaxCPUPercent {
		return false
	}
	if r.cfg.MaxRSSBytes > 0 && r.usage.RSSBytesEWMA >= float64(r.cfg.MaxRSSBytes) {
		return false
	}
	if r.cfg.MaxConcurrentStreams > 0 && r.streamCount >= r.cfg.MaxConcurrentStreams {
		return false
	}
	return true
}
