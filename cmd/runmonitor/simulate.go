package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/runmonitor/pkg/simulation"
	"github.com/spf13/cobra"
)

var (
	simulateCount  int
	simulateWatch  bool
	simulateParams paramFlags
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Record one or more simulated runs",
	Long: `Generate simulated runs and persist them. By default a single run is
recorded. With --watch a run is recorded immediately and then once per
configured interval until interrupted or --count runs have been recorded.`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simulateCount, "count", 1, "number of runs to record (with --watch, unlimited unless set)")
	simulateCmd.Flags().BoolVar(&simulateWatch, "watch", false, "keep recording runs on the configured interval")
	simulateParams.register(simulateCmd)

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	params := simulateParams.apply(cmd, cfg.Simulation.Params())
	if err := params.Validate(); err != nil {
		return err
	}

	if simulateCount < 0 || (simulateCount == 0 && !simulateWatch) {
		return fmt.Errorf("--count must be positive")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

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
	out := cmd.OutOrStdout()

	if !simulateWatch {
		for i := 0; i < simulateCount; i++ {
			res, err := svc.RunOnce(ctx, params)
			if err != nil {
				return fmt.Errorf("recording run: %w", err)
			}

			printResult(out, res)
		}

		return nil
	}

	interval, err := cfg.Simulation.IntervalDuration()
	if err != nil {
		return err
	}

	sched := simulation.NewScheduler(log, svc, params, interval,
		simulation.WithMaxRuns(watchRunLimit(cmd.Flags().Changed("count"), simulateCount)),
		simulation.WithRunHook(func(res *simulation.Result) { printResult(out, res) }),
	)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	finished := make(chan struct{})

	go func() {
		sched.Wait()
		close(finished)
	}()

	select {
	case <-ctx.Done():
		log.Info("Interrupted, stopping scheduler")
	case <-finished:
	}

	return sched.Stop()
}

// watchRunLimit returns the scheduler run limit for --watch. Without an
// explicit --count the scheduler runs until interrupted.
func watchRunLimit(countSet bool, count int) int {
	if !countSet {
		return 0
	}

	return count
}

func printResult(w io.Writer, res *simulation.Result) {
	s := res.Summary

	fmt.Fprintf(w, "run %d: %s total=%d ok=%d warn=%d fail=%d\n",
		res.RunID, s.Status, s.TotalRecords, s.OKRecords, s.WarnRecords, s.FailRecords)
}
