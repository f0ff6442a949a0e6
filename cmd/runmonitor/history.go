package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ethpandaops/runmonitor/pkg/report"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyRunID uint
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `List the most recent runs, newest first. With --run the records of
that run are listed instead.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum runs to list (default from config)")
	historyCmd.Flags().UintVar(&historyRunID, "run", 0, "list the records of this run")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()

	if cmd.Flags().Changed("run") {
		records, err := st.ListRecords(ctx, historyRunID)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Fprintln(out, report.EmptyRunPlaceholder)

			return nil
		}

		return writeRecordTable(out, records)
	}

	limit := historyLimit
	if limit <= 0 {
		limit = cfg.API.HistoryLimit
	}

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, report.NoRunsPlaceholder)

		return nil
	}

	return writeRunTable(out, runs)
}

func writeRunTable(w io.Writer, runs []store.RunView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tTIMESTAMP\tSTATUS\tTOTAL\tOK\tWARN\tFAIL")

	for i := range runs {
		r := &runs[i]

		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, store.FormatTimestamp(r.CreatedAt), r.DisplayStatus(),
			r.TotalRecords, r.OKRecords, r.WarnRecords, r.FailRecords)
	}

	return tw.Flush()
}

func writeRecordTable(w io.Writer, records []store.RecordView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tSOURCE\tVALUE\tSTATUS\tTIMESTAMP")

	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%s\t%s\n",
			r.ID, r.SourceID, r.Value, r.Status, store.FormatTimestamp(r.CreatedAt))
	}

	return tw.Flush()
}
