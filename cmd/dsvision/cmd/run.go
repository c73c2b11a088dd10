package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/destenson/dsvision/internal/config"
	dscore "github.com/destenson/dsvision/internal/core"
	"github.com/destenson/dsvision/internal/httpapi"
	"github.com/destenson/dsvision/internal/multistream"
	pipecore "github.com/destenson/dsvision/internal/pipeline/core"
	"github.com/destenson/dsvision/internal/platform"
	"github.com/destenson/dsvision/internal/source"
	"github.com/destenson/dsvision/internal/stats"
	"github.com/destenson/dsvision/internal/version"
)

// shutdownGrace bounds how long runCmd waits for in-flight work to settle
// before exiting: join worker tasks with a small grace window, then exit.
const shutdownGrace = 2 * time.Second

var runCmd = &cobra.Command{
	Use:   "run [uris...]",
	Short: "Probe a backend, build the pipeline pool, and serve streams",
	Long: `Run wires together the platform probe, the dynamic source
controller and its fault-tolerant wrapper, the pipeline pool and priority
scheduler, the resource manager, and the top-level stream manager façade
behind the read-only diagnostics HTTP surface.

Any URI arguments are added as streams at startup (file://, rtsp://,
rtspt://, http://, https://, or videotestsrc://).`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("pool-size", 0, "pipeline pool size (0 = use config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if poolFlag := cmd.Flags().Lookup("pool-size"); poolFlag != nil && poolFlag.Changed {
		if n, perr := cmd.Flags().GetInt("pool-size"); perr == nil && n > 0 {
			cfg.Scheduler.PipelinePoolSize = n
		}
	}

	plat, err := platform.Probe(cfg.Platform.ForceBackend, logger)
	if err != nil {
		// Element construction failures during startup are fatal.
		return fmt.Errorf("probing platform: %w", err)
	}
	logger.Info("dsvision starting",
		slog.String("version", version.Short()),
		slog.String("backend", string(plat.Name())),
		slog.Int("pool_size", cfg.Scheduler.PipelinePoolSize))

	muxPipeline, err := pipecore.NewBuilder(plat).
		WithLogger(logger).
		AddElement(dscore.RoleStreamMux, "streammux", map[string]any{"max-sources": cfg.Platform.MaxSources}).
		Build()
	if err != nil {
		return fmt.Errorf("building stream mux pipeline: %w", err)
	}
	muxPipeline.SetState(pipecore.StatePlaying)

	registry := source.NewRegistry(cfg.Platform.MaxSources)
	bus := source.NewEventBus(64)
	ctrl := source.NewController(registry, plat, muxPipeline, bus, true, logger)
	ft := source.NewFaultTolerantController(ctrl, source.RecoveryConfig{
		MaxRetries:       cfg.FaultTol.MaxRetries,
		BackoffBase:      cfg.FaultTol.BackoffBase,
		BackoffMax:       30 * time.Second,
		JitterFraction:   0.2,
		CircuitThreshold: cfg.FaultTol.CircuitBreakerThreshold,
		CircuitCooldown:  cfg.FaultTol.CircuitBreakerTimeout,
	}, logger)

	pool, err := buildDetectionPool(plat, cfg, logger)
	if err != nil {
		return fmt.Errorf("building detection pipeline pool: %w", err)
	}

	mgrCfg := multistream.ManagerConfig{
		Resource: multistream.ResourceConfig{
			PollInterval:         cfg.Resources.PollInterval,
			MaxCPUPercent:        cfg.Resources.MaxCPUPercent,
			MaxRSSBytes:          uint64(cfg.Resources.MaxRSS),
			MaxConcurrentStreams: cfg.Resources.MaxConcurrentStreams,
			EWMAAlpha:            cfg.Resources.EWMAAlpha,
		},
		DefaultQuality:     1.0,
		DefaultPriority:    multistream.PriorityNormal,
		ProcessingInterval: cfg.Scheduler.ProcessingIntervalMin,
	}
	mgr, err := multistream.NewStreamManager(mgrCfg, ft, pool, logger)
	if err != nil {
		return fmt.Errorf("building stream manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	mgr.Start(ctx)

	reporter, err := stats.NewReporter(mgr, cfg.Scheduler.StatsCron, logger)
	if err != nil {
		return fmt.Errorf("building stats reporter: %w", err)
	}
	if err := reporter.Start(ctx); err != nil {
		return fmt.Errorf("starting stats reporter: %w", err)
	}

	for _, uri := range args {
		if _, addErr := mgr.AddStream(uri); addErr != nil {
			// Admission rejection leaves the system running.
			logger.Error("failed to add startup stream", slog.String("uri", uri), slog.String("error", addErr.Error()))
		}
	}

	var srv *httpapi.Server
	errChan := make(chan error, 1)
	if cfg.Diagnostics.Enabled {
		srv = httpapi.NewServer(httpapi.ServerConfig{
			Host:            cfg.Diagnostics.Host,
			Port:            cfg.Diagnostics.Port,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: shutdownGrace,
		}, mgr, logger)
		go func() { errChan <- srv.ListenAndServe(ctx) }()
	}

	runSchedulerLoop(ctx, mgr, logger)

	// Orderly shutdown: mark sources Stopping, stop the pipeline, join
	// with a small grace window, then exit.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()
	for _, st := range mgr.GetAllStreamStates() {
		_ = mgr.RemoveStream(st.SourceID, source.RemovalConfig{Force: true, Timeout: shutdownGrace, SendEOS: true})
	}
	muxPipeline.SetState(pipecore.StateNull)
	reporter.Stop()
	mgr.Stop()
	if srv != nil {
		_ = srv.Shutdown(shutdownCtx)
		select {
		case <-errChan:
		case <-time.After(shutdownGrace):
		}
	}

	logger.Info("dsvision stopped")
	return nil
}

// buildDetectionPool builds PipelinePoolSize per-stream detection
// pipelines (Infer -> Track -> VideoConvert -> Sink, plus an unlinked Osd
// element when the backend supports OSD) and hands them to a fixed-size
// pool.
func buildDetectionPool(plat *platform.Platform, cfg *config.Config, logger *slog.Logger) (*multistream.PipelinePool, error) {
	caps := plat.Capabilities()
	size := cfg.Scheduler.PipelinePoolSize
	if size < 1 {
		size = 1
	}

	pipelines := make([]*pipecore.Pipeline, 0, size)
	for i := 0; i < size; i++ {
		b := pipecore.NewBuilder(plat).
			WithLogger(logger).
			AddElement(dscore.RoleInference, elName("infer", i), map[string]any{
				"model-path":     cfg.Detection.ModelPath,
				"conf-threshold": cfg.Detection.ConfThreshold,
				"batch-size":     caps.MaxBatchSize,
			}).
			AddElement(dscore.RoleTracker, elName("tracker", i), map[string]any{
				"max-disappeared":    cfg.Detection.MaxDisappeared,
				"max-track-distance": cfg.Detection.MaxTrackDistance,
			}).
			AddElement(dscore.RoleVideoConvert, elName("convert", i), nil).
			AddElement(dscore.RoleVideoSink, elName("sink", i), nil).
			Link(elName("infer", i), elName("tracker", i)).
			Link(elName("tracker", i), elName("convert", i)).
			Link(elName("convert", i), elName("sink", i))

		if caps.SupportsOSD {
			b = b.AddElement(dscore.RoleOsd, elName("osd", i), nil)
		}

		p, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("building detection pipeline %d: %w", i, err)
		}
		p.SetState(pipecore.StatePlaying)
		pipelines = append(pipelines, p)
	}

	return multistream.NewPool(pipelines), nil
}

func elName(role string, idx int) string {
	return fmt.Sprintf("%s_%d", role, idx)
}

// runSchedulerLoop drives the single-threaded scheduler: it is not itself
// async, so something must poll it. Here a plain ticker stands in for a
// dedicated thread, popping whichever stream is next due and applying
// adaptive quality off the resource manager's reading.
func runSchedulerLoop(ctx context.Context, mgr *multistream.StreamManager, logger *slog.Logger) {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if sched, ok := mgr.Tick(now); ok {
				logger.Debug("scheduled stream slice",
					slog.String("source_id", sched.SourceID.String()),
					slog.String("pipeline_id", sched.PipelineID),
					slog.Float64("quality", sched.QualityFactor))
			}
			usage := mgr.GetStats().Usage
			if usage.CPUPercentEWMA > 80 {
				mgr.ApplyAdaptiveQuality(false)
			} else if usage.CPUPercentEWMA < 50 {
				mgr.ApplyAdaptiveQuality(true)
			}
		}
	}
}
