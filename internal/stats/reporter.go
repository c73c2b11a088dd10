// Package stats runs a low-frequency periodic metrics monitor: a cron job
// that snapshots the multi-stream manager's state and resource usage into
// the structured log. It uses robfig/cron/v3 as its timing engine and
// normalizes cron expressions to the library's 6-field (with-seconds)
// form before registering them.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/destenson/dsvision/internal/multistream"
	"github.com/destenson/dsvision/pkg/format"
)

// DefaultSchedule runs the reporter once a minute.
const DefaultSchedule = "0 * * * * *"

// NormalizeCronExpression normalizes expr to the 6-field (with-seconds)
// form robfig/cron expects, accepting a legacy 7-field form with a
// trailing year field.
func NormalizeCronExpression(expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return "", fmt.Errorf("stats: empty cron expression")
	}
	if strings.HasPrefix(expr, "@") {
		return expr, nil
	}

	fields := strings.Fields(expr)
	switch len(fields) {
	case 6:
		return expr, nil
	case 7:
		year := fields[6]
		if !isValidYearField(year) {
			return "", fmt.Errorf("stats: invalid year field %q", year)
		}
		return strings.Join(fields[:6], " "), nil
	default:
		return "", fmt.Errorf("stats: invalid cron expression: expected 6 or 7 fields, got %d", len(fields))
	}
}

func isValidYearField(field string) bool {
	if field == "*" {
		return true
	}
	for _, r := range field {
		if !((r >= '0' && r <= '9') || r == ',' || r == '-' || r == '/' || r == '*') {
			return false
		}
	}
	return len(field) > 0
}

// Snapshotter is the read-only view into the running manager the reporter
// logs from; satisfied by *multistream.StreamManager.
type Snapshotter interface {
	GetAllStreamStates() []multistream.StreamState
	GetStats() multistream.Stats
}

// Reporter drives a single robfig/cron entry that logs a structured
// snapshot of stream states and resource usage on each tick.
type Reporter struct {
	mu       sync.Mutex
	cron     *cron.Cron
	mgr      Snapshotter
	logger   *slog.Logger
	schedule string
	entryID  cron.EntryID
	running  bool
}

// NewReporter builds a Reporter bound to mgr, with schedule normalized via
// NormalizeCronExpression. An empty schedule uses DefaultSchedule.
func NewReporter(mgr Snapshotter, schedule string, logger *slog.Logger) (*Reporter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	normalized, err := NormalizeCronExpression(schedule)
	if err != nil {
		return nil, err
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	return &Reporter{cron: c, mgr: mgr, logger: logger, schedule: normalized}, nil
}

// Start registers the reporting job and starts the underlying cron
// scheduler.
func (r *Reporter) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("stats: reporter already started")
	}

	id, err := r.cron.AddFunc(r.schedule, r.report)
	if err != nil {
		return fmt.Errorf("stats: invalid schedule %q: %w", r.schedule, err)
	}
	r.entryID = id
	r.cron.Start()
	r.running = true
	return nil
}

// Stop halts the cron scheduler and waits for any running job to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
}

// report is the job body: one structured log line per stream plus an
// aggregate resource-usage line.
func (r *Reporter) report() {
	stats := r.mgr.GetStats()
	r.logger.Info("periodic stats",
		slog.String("schedule", format.CronDescription(r.schedule)),
		slog.Int("stream_count", stats.StreamCount),
		slog.Float64("cpu_percent_ewma", stats.Usage.CPUPercentEWMA),
		slog.String("rss_ewma", format.Bytes(int64(stats.Usage.RSSBytesEWMA))),
	)

	for _, st := range r.mgr.GetAllStreamStates() {
		attrs := []any{
			slog.String("source_id", st.SourceID.String()),
			slog.String("uri", st.URI),
			slog.String("state", st.State.String()),
			slog.Int("restart_count", st.RestartCount),
			slog.String("added", format.RelativeTimeShort(st.AddedAt)),
		}
		if st.LastError != "" {
			attrs = append(attrs, slog.String("last_error", st.LastError))
		}
		r.logger.Info("stream state", attrs...)
	}
}
