package stats

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/destenson/dsvision/internal/multistream"
)

type fakeSnapshotter struct {
	states []multistream.StreamState
	stats  multistream.Stats
}

func (f fakeSnapshotter) GetAllStreamStates() []multistream.StreamState { return f.states }
func (f fakeSnapshotter) GetStats() multistream.Stats                   { return f.stats }

func TestNormalizeCronExpressionAccepts6And7Field(t *testing.T) {
	norm, err := NormalizeCronExpression("0 */1 * * * *")
	require.NoError(t, err)
	assert.Equal(t, "0 */1 * * * *", norm)

	norm, err = NormalizeCronExpression("0 0 * * * * 2026")
	require.NoError(t, err)
	assert.Equal(t, "0 0 * * * *", norm)
}

func TestNormalizeCronExpressionRejectsBadFieldCount(t *testing.T) {
	_, err := NormalizeCronExpression("* * *")
	assert.Error(t, err)
}

func TestNormalizeCronExpressionRejectsBadYear(t *testing.T) {
	_, err := NormalizeCronExpression("0 0 * * * * not-a-year!")
	assert.Error(t, err)
}

func TestReporterLogsSnapshotOnTick(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	snap := fakeSnapshotter{
		states: []multistream.StreamState{{URI: "videotestsrc://smpte"}},
		stats:  multistream.Stats{StreamCount: 1},
	}

	r, err := NewReporter(snap, "*/1 * * * * *", logger)
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	time.Sleep(1500 * time.Millisecond)
	r.Stop()

	assert.Contains(t, buf.String(), "periodic stats")
	assert.Contains(t, buf.String(), "stream state")
}
