package store

import (
	"fmt"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/ethpandaops/runmonitor/pkg/status"
)

// TimestampLayout is the fixed-width UTC layout used for stored timestamps.
// Lexical order of formatted values equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// RunView is a stored run as returned by queries.
type RunView struct {
	ID uint `json:"id" yaml:"id"`
	generator.RunSummary `yaml:",inline"`
}

// DisplayStatus re-derives the aggregate status from the stored counts.
func (r *RunView) DisplayStatus() status.Status {
	return status.ForRun(r.OKRecords, r.FailRecords)
}

// RecordView is a stored record as returned by queries.
type RecordView struct {
	ID        uint          `json:"id" yaml:"id"`
	RunID     uint          `json:"run_id" yaml:"run_id"`
	SourceID  string        `json:"source_id" yaml:"source_id"`
	Value     float64       `json:"value" yaml:"value"`
	Status    status.Status `json:"status" yaml:"status"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a value rendered by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}

	return t, nil
}

func newRunRow(summary *generator.RunSummary) *Run {
	return &Run{
		CreatedAt:    FormatTimestamp(summary.CreatedAt),
		Status:       string(summary.Status),
		TotalRecords: summary.TotalRecords,
		OKRecords:    summary.OKRecords,
		WarnRecords:  summary.WarnRecords,
		FailRecords:  summary.FailRecords,
	}
}

func newRecordRows(runID uint, drafts []generator.RecordDraft) []*Record {
	rows := make([]*Record, 0, len(drafts))

	for i := range drafts {
		d := &drafts[i]

		rows = append(rows, &Record{
			RunID:     runID,
			SourceID:  d.SourceID,
			Value:     d.Value,
			Status:    string(d.Status),
			CreatedAt: FormatTimestamp(d.CreatedAt),
		})
	}

	return rows
}

func (r *Run) view() (RunView, error) {
	createdAt, err := ParseTimestamp(r.CreatedAt)
	if err != nil {
		return RunView{}, fmt.Errorf("run %d: %w", r.ID, err)
	}

	return RunView{
		ID: r.ID,
		RunSummary: generator.RunSummary{
			CreatedAt:    createdAt,
			Status:       status.Status(r.Status),
			TotalRecords: r.TotalRecords,
			OKRecords:    r.OKRecords,
			WarnRecords:  r.WarnRecords,
			FailRecords:  r.FailRecords,
		},
	}, nil
}

func (r *Record) view() (RecordView, error) {
	createdAt, err := ParseTimestamp(r.CreatedAt)
	if err != nil {
		return RecordView{}, fmt.Errorf("record %d: %w", r.ID, err)
	}

	return RecordView{
		ID:        r.ID,
		RunID:     r.RunID,
		SourceID:  r.SourceID,
		Value:     r.Value,
		Status:    status.Status(r.Status),
		CreatedAt: createdAt,
	}, nil
}
