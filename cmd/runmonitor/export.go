package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/report"
	"github.com/ethpandaops/runmonitor/pkg/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	exportFormat       string
	exportLimit        int
	exportSkipExisting bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload reports to S3-compatible storage",
	Long: `Render a report for each of the most recent runs plus the dashboard and
upload them to the configured S3 bucket. Requires export.s3.enabled.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", string(report.FormatJSON), "report format (markdown, json, yaml)")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "number of runs to export (default from config)")
	exportCmd.Flags().BoolVar(&exportSkipExisting, "skip-existing", false, "skip runs whose report already exists remotely")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !cfg.Export.S3.Enabled {
		return fmt.Errorf("export.s3.enabled must be true to export reports")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	uploader, err := upload.NewS3Uploader(log, &cfg.Export.S3)
	if err != nil {
		return fmt.Errorf("creating uploader: %w", err)
	}

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("s3 preflight: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop store")
		}
	}()

	limit := exportLimit
	if limit <= 0 {
		limit = cfg.Export.HistoryLimit
	}

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	existing := make(map[string]struct{})

	if exportSkipExisting {
		names, err := uploader.ListReports(ctx)
		if err != nil {
			return err
		}

		for _, name := range names {
			existing[name] = struct{}{}
		}
	}

	now := time.Now()

	var uploaded, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Export.Concurrency)

	for _, run := range runs {
		name := fmt.Sprintf("run-%06d.%s", run.ID, format.Extension())

		if _, ok := existing[name]; ok {
			skipped.Add(1)

			continue
		}

		g.Go(func() error {
			d, err := report.BuildRun(gctx, st, run)
			if err != nil {
				return err
			}

			body, err := report.Render(d, format, now)
			if err != nil {
				return err
			}

			if _, err := uploader.UploadReport(gctx, name, format.ContentType(), body); err != nil {
				return err
			}

			uploaded.Add(1)

			return nil
		})
	}

	g.Go(func() error {
		d, err := report.Build(gctx, st, limit)
		if err != nil {
			return err
		}

		body, err := report.Render(d, format, now)
		if err != nil {
			return err
		}

		_, err = uploader.UploadReport(gctx, "dashboard."+format.Extension(), format.ContentType(), body)

		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("exporting reports: %w", err)
	}

	log.WithFields(logrus.Fields{
		"uploaded": uploaded.Load(),
		"skipped":  skipped.Load(),
		"bucket":   cfg.Export.S3.Bucket,
	}).Info("Export completed")

	return nil
}
