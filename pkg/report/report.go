// Package report renders the monitor dashboard: the latest run's metrics,
// the run history and the latest run's records.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"gopkg.in/yaml.v3"
)

// Placeholders shown when nothing has been recorded yet.
const (
	NoRunsPlaceholder    = "No runs recorded yet."
	NoRecordsPlaceholder = "Run a simulation to view results."
	EmptyRunPlaceholder  = "No records found for this run."
)

// Format selects a report encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// ErrUnknownFormat is returned for unsupported report formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, FormatJSON, FormatYAML:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Extension returns the file extension of the format, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "md"
	}
}

// Dashboard holds everything a report renders.
type Dashboard struct {
	Latest  *store.RunView     `json:"latest" yaml:"latest"`
	History []store.RunView    `json:"history" yaml:"history"`
	Records []store.RecordView `json:"records" yaml:"records"`
}

// Build loads the latest run, up to historyLimit runs of history and the
// latest run's records.
func Build(ctx context.Context, st store.Store, historyLimit int) (*Dashboard, error) {
	history, err := st.ListRuns(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	latest, err := st.GetLatestRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting latest run: %w", err)
	}

	d := &Dashboard{
		Latest:  latest,
		History: history,
		Records: []store.RecordView{},
	}

	if latest != nil {
		if d.Records, err = st.ListRecords(ctx, latest.ID); err != nil {
			return nil, fmt.Errorf("listing records of run %d: %w", latest.ID, err)
		}
	}

	return d, nil
}

// BuildRun loads a single run and its records. History is left empty.
func BuildRun(ctx context.Context, st store.Store, run store.RunView) (*Dashboard, error) {
	records, err := st.ListRecords(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("listing records of run %d: %w", run.ID, err)
	}

	return &Dashboard{
		Latest:  &run,
		History: []store.RunView{},
		Records: records,
	}, nil
}

// Render encodes d in the requested format.
func Render(d *Dashboard, f Format, now time.Time) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return []byte(Markdown(d, now)), nil
	case FormatJSON:
		return JSON(d)
	case FormatYAML:
		return YAML(d)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

// JSON encodes d as indented JSON.
func JSON(d *Dashboard) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding json: %w", err)
	}

	return append(b, '\n'), nil
}

// YAML encodes d as YAML.
func YAML(d *Dashboard) ([]byte, error) {
	b, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}

	return b, nil
}

// Markdown renders d as a Markdown document. Ages are relative to now.
func Markdown(d *Dashboard, now time.Time) string {
	var b strings.Builder

	b.WriteString("# Data Collection Monitor\n\n")

	b.WriteString("## Latest run\n\n")

	if d.Latest == nil {
		b.WriteString(NoRunsPlaceholder + "\n\n")
	} else {
		run := d.Latest

		fmt.Fprintf(&b, "Run #%d recorded %s (%s).\n\n",
			run.ID, store.FormatTimestamp(run.CreatedAt), age(now, run.CreatedAt))

		b.WriteString("| Status | Total | OK | WARN | FAIL |\n")
		b.WriteString("|---|---|---|---|---|\n")
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d |\n\n",
			run.DisplayStatus(), run.TotalRecords,
			run.OKRecords, run.WarnRecords, run.FailRecords)
	}

	if len(d.History) > 0 || d.Latest == nil {
		b.WriteString("## Run history\n\n")

		if len(d.History) == 0 {
			b.WriteString(NoRunsPlaceholder + "\n\n")
		} else {
			b.WriteString("| ID | Timestamp | Age | Status | Total | OK | WARN | FAIL |\n")
			b.WriteString("|---|---|---|---|---|---|---|---|\n")

			for i := range d.History {
				run := &d.History[i]

				fmt.Fprintf(&b, "| %d | %s | %s | %s | %d | %d | %d | %d |\n",
					run.ID, store.FormatTimestamp(run.CreatedAt),
					age(now, run.CreatedAt), run.DisplayStatus(),
					run.TotalRecords, run.OKRecords, run.WarnRecords, run.FailRecords)
			}

			b.WriteString("\n")
		}
	}

	b.WriteString("## Records\n\n")

	if d.Latest == nil {
		b.WriteString(NoRecordsPlaceholder + "\n")

		return b.String()
	}

	if len(d.Records) == 0 {
		b.WriteString(EmptyRunPlaceholder + "\n")

		return b.String()
	}

	b.WriteString("| ID | Source | Value | Status | Timestamp |\n")
	b.WriteString("|---|---|---|---|---|\n")

	for _, rec := range d.Records {
		fmt.Fprintf(&b, "| %d | %s | %.2f | %s | %s |\n",
			rec.ID, rec.SourceID, rec.Value, rec.Status,
			store.FormatTimestamp(rec.CreatedAt))
	}

	return b.String()
}

func age(now, t time.Time) string {
	d := now.Sub(t)
	if d < 0 {
		return "just now"
	}

	return units.HumanDuration(d) + " ago"
}
