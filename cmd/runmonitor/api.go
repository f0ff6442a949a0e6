package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/runmonitor/pkg/api"
	"github.com/ethpandaops/runmonitor/pkg/simulation"
	"github.com/spf13/cobra"
)

var apiSchedule bool

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the runmonitor API server. It serves run history and records and
accepts requests to record a new run. With --schedule runs are also
recorded in the background on the configured interval.`,
	RunE: runAPI,
}

func init() {
	apiCmd.Flags().BoolVar(&apiSchedule, "schedule", false, "record runs in the background on the configured interval")

	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	svc := newService(cfg, st)
	params := cfg.Simulation.Params()

	var sched simulation.Scheduler

	if apiSchedule {
		interval, err := cfg.Simulation.IntervalDuration()
		if err != nil {
			return err
		}

		sched = simulation.NewScheduler(log, svc, params, interval)

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
	}

	srv := api.NewServer(log, &cfg.API, st, svc, params)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down API server")
	cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop scheduler")
		}
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}
