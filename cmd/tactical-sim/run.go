package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/OCAP2/tactical/internal/api"
	"github.com/OCAP2/tactical/internal/battle"
	"github.com/OCAP2/tactical/internal/cache"
	"github.com/OCAP2/tactical/internal/channel"
	"github.com/OCAP2/tactical/internal/config"
	"github.com/OCAP2/tactical/internal/dispatcher"
	"github.com/OCAP2/tactical/internal/influx"
	"github.com/OCAP2/tactical/internal/logging"
	"github.com/OCAP2/tactical/internal/monitor"
	"github.com/OCAP2/tactical/internal/parser"
	"github.com/OCAP2/tactical/internal/simulation"
	"github.com/OCAP2/tactical/internal/storage"
	"github.com/OCAP2/tactical/internal/worker"
	"github.com/OCAP2/tactical/pkg/core"
)

// Lifecycle commands answered by the run itself.
const (
	CommandVersion = ":VERSION:"
	CommandStatus  = ":STATUS:"
	CommandEnd     = ":END:"
)

// hubSize is the number of tick batches buffered per subscriber.
const hubSize = 1024

type runOptions struct {
	ConfigDir    string
	ScenarioPath string
	// Duration overrides the scenario duration when non-zero.
	Duration time.Duration
	Upload   bool
	// Commands, when set, is read for intake commands while the battle runs.
	// Replies receives one line per command.
	Commands io.Reader
	Replies  io.Writer
}

type runResult struct {
	Battle     *core.Battle
	Summary    *core.BattleSummary
	ReplayPath string
}

// runBattle loads the scenario, runs it to the end and records it.
func runBattle(ctx context.Context, opts runOptions) (*runResult, error) {
	sessionStart := time.Now()
	configErr := config.Load(opts.ConfigDir)

	battleCtx := battle.NewContext()
	tel := setupTelemetry(battleCtx, sessionStart)
	defer tel.Close()
	logger := tel.logger

	if configErr != nil {
		logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		logger.Info("Loaded config", "dir", opts.ConfigDir)
	}

	sc, err := LoadScenario(opts.ScenarioPath)
	if err != nil {
		return nil, err
	}
	g, err := sc.Grid()
	if err != nil {
		return nil, err
	}
	setup, err := sc.Commands()
	if err != nil {
		return nil, err
	}
	settings, err := config.GetSimulationSettings()
	if err != nil {
		return nil, fmt.Errorf("invalid simulation settings: %w", err)
	}
	world, err := simulation.NewWorld(g, settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create world: %w", err)
	}

	backend, err := createStorageBackend(config.GetStorageConfig(), storageDeps{
		Logger:        logger,
		DBLogger:      tel.dbLogger,
		BattleContext: battleCtx,
	})
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	influxManager := connectInflux(ctx, logger, tel.dbLogger)
	if influxManager != nil {
		defer func() {
			if err := influxManager.Close(); err != nil {
				logger.Error("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	b := &core.Battle{
		Name:      sc.Name,
		MapName:   sc.Map,
		Width:     g.Width(),
		Height:    g.Height(),
		StartTime: sessionStart,
		TickRate:  settings.TickRate,
		Seed:      int64(settings.Seed),
		Tag:       sc.Tag,
	}
	battleCtx.SetBattle(b)
	if err := backend.StartBattle(b); err != nil {
		return nil, fmt.Errorf("failed to start battle: %w", err)
	}
	logger.Info("Battle started", "map", b.MapName, "width", b.Width, "height", b.Height, "storage", config.GetStorageConfig().Type)

	d, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	workerManager := worker.NewManager(worker.Dependencies{
		EntityCache:   cache.NewEntityCache(),
		NameCache:     cache.NewNameCache(),
		Logger:        logger,
		ParserService: parser.NewParser(logger),
		Influx:        influxManager,
		BattleContext: battleCtx,
	}, backend, world)
	workerManager.RegisterHandlers(d)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	registerLifecycleHandlers(d, world, cancel)

	hub := channel.NewHub[simulation.Batch](hubSize)
	batches := hub.SubscribeAll()
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		workerManager.Pump(context.Background(), batches)
	}()

	for _, c := range setup {
		if _, err := workerManager.Handle(dispatcher.Request{Command: c.name, Args: c.args, Received: time.Now()}); err != nil {
			logger.Error("Scenario command rejected", "command", c.name, "args", c.args, "error", err)
		}
	}

	monitorCfg := config.GetMonitorConfig()
	collector, err := monitor.NewCollector(nil)
	if err != nil {
		logger.Error("Failed to register metrics", "error", err)
	}
	metricsSrv := serveMetrics(monitorCfg.MetricsAddr, collector, logger)
	monitorDeps := monitor.Dependencies{
		Status:        world,
		BattleContext: battleCtx,
		Logger:        logger,
		Influx:        influxManager,
		Collector:     collector,
		Interval:      monitorCfg.Interval,
	}
	if stats, ok := backend.(storage.StatsRecorder); ok {
		monitorDeps.Stats = stats
	}
	monitorService := monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		logger.Error("Failed to start status monitor", "error", err)
	}

	if opts.Commands != nil {
		replies := opts.Replies
		if replies == nil {
			replies = io.Discard
		}
		go readCommands(runCtx, opts.Commands, d, replies, logger)
	}

	duration := opts.Duration
	if duration == 0 {
		duration = sc.Duration
	}
	driver := simulation.NewDriver(world, hub, logger)
	driver.StopWhenDecided = viper.GetBool("simulation.stopWhenDecided")
	reason, err := driver.Run(runCtx, sessionStart, duration)
	if err != nil {
		return nil, err
	}

	cancel()
	d.Close()
	hub.Close()
	<-pumpDone
	monitorService.Stop()
	monitorService.Collect()

	end := world.Status().Time
	if end.IsZero() {
		end = time.Now()
	}
	summary := world.Summary(end, reason)
	summary.Duration = end.Sub(sessionStart)
	if err := backend.EndBattle(summary); err != nil {
		logger.Error("Failed to end battle in storage backend", "error", err)
	}
	logger.Info("Battle ended",
		"reason", reason,
		"ticks", summary.Ticks,
		"survivors", summary.Survivors,
		"casualties", summary.Casualties)

	res := &runResult{Battle: b, Summary: summary}
	if up, ok := backend.(storage.Uploadable); ok {
		res.ReplayPath = up.GetExportedFilePath()
		if opts.Upload && res.ReplayPath != "" {
			uploadReplay(ctx, logger, res.ReplayPath, up.GetExportMetadata())
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return res, nil
}

func registerLifecycleHandlers(d *dispatcher.Dispatcher, world *simulation.World, end context.CancelFunc) {
	d.Register(CommandVersion, func(r dispatcher.Request) (any, error) {
		return []string{CurrentVersion, BuildDate}, nil
	})

	d.Register(CommandStatus, func(r dispatcher.Request) (any, error) {
		st := world.Status()
		return fmt.Sprintf("tick=%d entities=%d alive=%d pending=%d", st.Tick, st.Entities, st.AliveTotal(), st.Pending), nil
	})

	d.Register(CommandEnd, func(r dispatcher.Request) (any, error) {
		end()
		return "ok", nil
	}, dispatcher.Logged())
}

// connectInflux returns nil when influx is disabled. An unreachable server
// still yields a manager writing to the local backup file.
func connectInflux(ctx context.Context, logger *slog.Logger, dbLogger zerolog.Logger) *influx.Manager {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return nil
	}
	backup := filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz")
	m := influx.NewManager(cfg, dbLogger, backup)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := m.Connect(connectCtx); err != nil {
		logger.Error("Failed to set up InfluxDB", "error", err)
		return nil
	}
	return m
}

func uploadReplay(ctx context.Context, logger *slog.Logger, path string, meta core.UploadMetadata) {
	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if meta.Tag == "" {
		meta.Tag = viper.GetString("defaultTag")
	}

	uploadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Minute)
	defer cancel()
	if err := client.Healthcheck(uploadCtx); err != nil {
		logger.Warn("Replay server is offline, skipping upload", "error", err)
		return
	}
	if err := client.Upload(uploadCtx, path, meta); err != nil {
		logger.Error("Failed to upload replay", "path", path, "error", err)
		return
	}
	logger.Info("Replay uploaded", "path", path, "battle", meta.BattleName)
}
