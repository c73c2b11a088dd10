package multistream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanAddStreamGatesOnCPUMemoryAndCount(t *testing.T) {
	cfg := ResourceConfig{
		MaxCPUPercent:        50,
		MaxRSSBytes:          1000,
		MaxConcurrentStreams: 2,
		EWMAAlpha:            0.3,
	}
	rm, err := NewResourceManager(cfg, nil)
	require.NoError(t, err)

	rm.usage = Usage{CPUPercentEWMA: 10, RSSBytesEWMA: 100}
	rm.streamCount = 0
	require.True(t, rm.CanAddStream())

	rm.usage.CPUPercentEWMA = 60
	require.False(t, rm.CanAddStream(), "over the CPU ceiling refuses admission")

	rm.usage.CPUPercentEWMA = 10
	rm.usage.RSSBytesEWMA = 2000
	require.False(t, rm.CanAddStream(), "over the RSS ceiling refuses admission")

	rm.usage.RSSBytesEWMA = 100
	rm.streamCount = 2
	require.False(t, rm.CanAddStream(), "at the concurrent-stream ceiling refuses admission")
}

func TestResourceManagerEWMASmoothing(t *testing.T) {
	rm, err := NewResourceManager(DefaultResourceConfig(), nil)
	require.NoError(t, err)

	rm.mu.Lock()
	rm.usage.CPUPercentEWMA = 10
	rm.usage.RSSBytesEWMA = 1000
	alpha := rm.cfg.EWMAAlpha
	rm.usage.CPUPercentEWMA = alpha*50 + (1-alpha)*rm.usage.CPUPercentEWMA
	rm.mu.Unlock()

	require.InDelta(t, 10+(50-10)*alpha, rm.Usage().CPUPercentEWMA, 1e-9)
}
