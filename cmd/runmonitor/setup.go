package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/ethpandaops/runmonitor/pkg/config"
	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/ethpandaops/runmonitor/pkg/simulation"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// loadConfig reads and validates the configuration. The config file's
// log level applies unless --log-level was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !cmd.Flags().Changed("log-level") && cfg.Global.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.Global.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Global.LogLevel, err)
		}

		log.SetLevel(level)
	}

	return cfg, nil
}

// openStore starts the configured store. Callers must Stop it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st := store.NewStore(log, &cfg.Database)

	if err := st.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting store: %w", err)
	}

	return st, nil
}

// newRandom returns the random source for generation. A zero seed draws
// from entropy.
func newRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return rand.New(rand.NewPCG(seed, seed))
}

func newService(cfg *config.Config, st store.Store) *simulation.Service {
	gen := generator.New(log, newRandom(cfg.Simulation.Seed))

	return simulation.NewService(log, gen, st,
		simulation.WithAtomicPersistence(cfg.Simulation.Atomic))
}

// paramFlags overrides configured generation parameters from flags.
type paramFlags struct {
	minRecords int
	maxRecords int
	okRatio    float64
	warnRatio  float64
}

func (p *paramFlags) register(cmd *cobra.Command) {
	d := config.DefaultParams

	cmd.Flags().IntVar(&p.minRecords, "min-records", d.MinRecords, "minimum records per run")
	cmd.Flags().IntVar(&p.maxRecords, "max-records", d.MaxRecords, "maximum records per run")
	cmd.Flags().Float64Var(&p.okRatio, "ok-ratio", d.OKRatio, "probability of an OK reading")
	cmd.Flags().Float64Var(&p.warnRatio, "warn-ratio", d.WarnRatio, "probability of a WARN reading")
}

// apply returns base with every explicitly set flag applied.
func (p *paramFlags) apply(cmd *cobra.Command, base generator.Params) generator.Params {
	flags := cmd.Flags()

	if flags.Changed("min-records") {
		base.MinRecords = p.minRecords
	}

	if flags.Changed("max-records") {
		base.MaxRecords = p.maxRecords
	}

	if flags.Changed("ok-ratio") {
		base.OKRatio = p.okRatio
	}

	if flags.Changed("warn-ratio") {
		base.WarnRatio = p.warnRatio
	}

	return base
}
