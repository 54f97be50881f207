package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"restbreak/internal/config"
	"restbreak/internal/core/scheduler"
	"restbreak/internal/ipc"
	"restbreak/internal/metrics"
	"restbreak/internal/platform"
	"restbreak/internal/storage"
	"restbreak/internal/systemd"
)

const appName = "restbreak"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the break scheduling daemon",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().Str("version", version).Msg("starting restbreak")

	guard, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		return fmt.Errorf("another restbreak daemon is already running: %w", err)
	}
	defer guard.Release()

	schedule, err := cfg.SchedulerModel()
	if err != nil {
		return err
	}
	tickInterval, err := cfg.TickInterval()
	if err != nil {
		return err
	}
	idleSampleInterval, err := cfg.IdleSampleInterval()
	if err != nil {
		return err
	}
	saveInterval, err := cfg.SaveInterval()
	if err != nil {
		return err
	}

	statePath := cfg.State.Path
	if statePath == "" {
		statePath, err = storage.DefaultPath(appName)
		if err != nil {
			return err
		}
	}
	store := storage.NewStore(statePath, schedule, nil, logger)

	now := time.Now()
	restored, err := store.Load(now)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if restored != nil {
		logger.Info().
			Str("path", statePath).
			Str("mode", string(restored.Mode.Kind())).
			Dur("elapsed_active", restored.ElapsedActive).
			Msg("restored previous state")
	}

	machine := scheduler.NewMachine(schedule, restored, now)
	recorder := metrics.NewRecorder(machine.State().Mode.Kind())

	sampler := platform.NewSampler(platform.NewIdleProvider(), idleSampleInterval, logger)
	sampler.Start()
	defer sampler.Stop()

	sched := scheduler.New(machine, sampler, store, scheduler.Options{
		TickInterval: tickInterval,
		SaveInterval: saveInterval,
		Logger:       logger,
		OnSaveError:  func(error) { metrics.SnapshotFailuresTotal.Inc() },
	})
	sched.Start()
	metricsEvents := sched.Subscribe(64)

	busServer := ipc.NewServer(sched, logger)
	if err := busServer.Start(); err != nil {
		sched.Stop()
		return err
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.ListenAddr, logger)
		metricsServer.Start()
	}

	reload := func() {
		newCfg, err := loader.Load()
		if err != nil {
			logger.Warn().Err(err).Msg("config reload rejected, keeping previous schedule")
			return
		}
		newSchedule, err := newCfg.SchedulerModel()
		if err != nil {
			logger.Warn().Err(err).Msg("config reload rejected, keeping previous schedule")
			return
		}
		if err := sched.UpdateConfig(newSchedule); err != nil {
			logger.Warn().Err(err).Msg("config reload not applied")
			return
		}
		logger.Info().
			Dur("break_interval", newSchedule.BreakInterval).
			Dur("break_duration", newSchedule.BreakDuration).
			Msg("schedule reloaded")
	}
	loader.Watch(
		func(*config.Config) { reload() },
		func(err error) { logger.Warn().Err(err).Msg("config file change ignored") },
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for event := range metricsEvents {
			recorder.Observe(event)
		}
		return nil
	})
	group.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				reload()
			}
		}
	})

	systemd.NotifyReady(logger)
	logger.Info().Msg("daemon ready")

	<-ctx.Done()
	systemd.NotifyStopping(logger)
	logger.Info().Msg("shutting down")

	// Stopping the scheduler takes a final snapshot and closes all
	// subscriber channels, which ends the metrics feed and the bus
	// broadcast loop.
	sched.Stop()
	if metricsServer != nil {
		_ = metricsServer.Stop()
	}
	if err := busServer.Close(); err != nil {
		logger.Warn().Err(err).Msg("bus connection close failed")
	}
	return group.Wait()
}
