package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/report"
	"github.com/spf13/cobra"
)

var (
	reportFormat string
	reportOutput string
	reportLimit  int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the monitor dashboard",
	Long: `Render the latest run, the run history and the latest run's records
as Markdown, JSON or YAML.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", string(report.FormatMarkdown), "output format (markdown, json, yaml)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write to file instead of stdout")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 0, "maximum runs in the history (default from config)")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(reportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	limit := reportLimit
	if limit <= 0 {
		limit = cfg.API.HistoryLimit
	}

	dashboard, err := report.Build(ctx, st, limit)
	if err != nil {
		return fmt.Errorf("building report: %w", err)
	}

	body, err := report.Render(dashboard, format, time.Now())
	if err != nil {
		return err
	}

	if reportOutput == "" {
		_, err = cmd.OutOrStdout().Write(body)

		return err
	}

	if err := os.WriteFile(reportOutput, body, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	log.WithField("path", reportOutput).Info("Report written")

	return nil
}
