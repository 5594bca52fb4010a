package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goodtune/baralga/internal/backup"
	"github.com/goodtune/baralga/internal/metrics"
	"github.com/goodtune/baralga/internal/systemd"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run scheduled backups in the foreground",
	Long: `Run scheduled backups of the data file until interrupted. Optionally
serves Prometheus metrics. SIGHUP takes a backup immediately; a final backup is
taken on shutdown. While running, the data directory is locked.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("data", a.cfg.DataFile()).
		Msg("Starting Baralga backup service")

	sdListeners, err := systemd.GetListeners()
	if err != nil {
		return fmt.Errorf("failed to get systemd listeners: %w", err)
	}
	if sdListeners.Activated {
		logger.Info().Msg("Running with systemd socket activation")
	}

	// Reflect a running activity left by an earlier session
	_, _, _ = a.tracker.Status()

	var scheduler *backup.Scheduler
	if a.cfg.Backup.Schedule != "" {
		scheduler, err = backup.NewScheduler(a.backups, a.cfg.Backup.Schedule, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
	} else {
		logger.Warn().Msg("No backup schedule configured, backups only on SIGHUP and shutdown")
	}

	var metricsServer *metrics.Server
	if a.cfg.Metrics.Enabled || sdListeners.Metrics != nil {
		metricsServer = metrics.NewServer(a.cfg.Metrics.Address, func(ctx context.Context) error {
			_, err := a.store.Activities().Count(ctx)
			return err
		}, logger)
		if sdListeners.Metrics != nil {
			metricsServer.SetListener(sdListeners.Metrics)
		}
		if err := metricsServer.Start(); err != nil {
			if scheduler != nil {
				scheduler.Stop()
			}
			return err
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go systemd.RunWatchdog(ctx, logger)

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd ready notification")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	for sig := range sigChan {
		if sig != syscall.SIGHUP {
			logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received, gracefully stopping...")
			break
		}
		logger.Info().Msg("SIGHUP received, taking backup")
		takeBackup(ctx, a, "signal")
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to send systemd stopping notification")
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	if metricsServer != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
		stopCancel()
	}

	takeBackup(ctx, a, "shutdown")

	logger.Info().Msg("Baralga backup service stopped")
	return nil
}

func takeBackup(ctx context.Context, a *app, trigger string) {
	b, err := a.backups.Create(ctx, backup.CreateOptions{Trigger: trigger})
	switch {
	case errors.Is(err, backup.ErrUnchanged):
		a.logger.Info().Str("trigger", trigger).Msg("Data unchanged, no backup needed")
	case err != nil:
		a.logger.Error().Err(err).Str("trigger", trigger).Msg("Backup failed")
	default:
		a.logger.Info().Str("path", b.Path).Str("trigger", trigger).Msg("Backup written")
	}
}
