package generator

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/status"
)

// ErrInvalidParameter is wrapped by every parameter validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// failHeadroom is the OK+WARN probability above which FAIL records become
// practically impossible.
const failHeadroom = 0.98

// MaxRecordsLimit is the largest record count a single run may request.
const MaxRecordsLimit = 10000

// Params controls the shape of a generated run.
type Params struct {
	MinRecords int     `json:"min_records" yaml:"min_records" mapstructure:"min_records"`
	MaxRecords int     `json:"max_records" yaml:"max_records" mapstructure:"max_records"`
	OKRatio    float64 `json:"ok_ratio" yaml:"ok_ratio" mapstructure:"ok_ratio"`
	WarnRatio  float64 `json:"warn_ratio" yaml:"warn_ratio" mapstructure:"warn_ratio"`
}

// Validate checks the record bounds and ratios. MaxRecords is capped at
// MaxRecordsLimit. OKRatio+WarnRatio above 1 is allowed.
func (p Params) Validate() error {
	if p.MinRecords <= 0 {
		return fmt.Errorf("%w: min_records must be positive, got %d",
			ErrInvalidParameter, p.MinRecords)
	}

	if p.MinRecords > p.MaxRecords {
		return fmt.Errorf("%w: min_records (%d) exceeds max_records (%d)",
			ErrInvalidParameter, p.MinRecords, p.MaxRecords)
	}

	if p.MaxRecords > MaxRecordsLimit {
		return fmt.Errorf("%w: max_records must not exceed %d, got %d",
			ErrInvalidParameter, MaxRecordsLimit, p.MaxRecords)
	}

	if !inUnitInterval(p.OKRatio) {
		return fmt.Errorf("%w: ok_ratio must be within [0,1], got %v",
			ErrInvalidParameter, p.OKRatio)
	}

	if !inUnitInterval(p.WarnRatio) {
		return fmt.Errorf("%w: warn_ratio must be within [0,1], got %v",
			ErrInvalidParameter, p.WarnRatio)
	}

	return nil
}

// ExhaustsFail reports whether the ratios leave (almost) no room for FAIL
// records.
func (p Params) ExhaustsFail() bool {
	return p.OKRatio+p.WarnRatio > failHeadroom
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// RunSummary holds every run field except the store-assigned identity.
type RunSummary struct {
	CreatedAt    time.Time     `json:"created_at" yaml:"created_at"`
	Status       status.Status `json:"status" yaml:"status"`
	TotalRecords int           `json:"total_records" yaml:"total_records"`
	OKRecords    int           `json:"ok_records" yaml:"ok_records"`
	WarnRecords  int           `json:"warn_records" yaml:"warn_records"`
	FailRecords  int           `json:"fail_records" yaml:"fail_records"`
}

// Validate checks the count identity and the run-level status.
func (s RunSummary) Validate() error {
	if s.OKRecords < 0 || s.WarnRecords < 0 || s.FailRecords < 0 {
		return fmt.Errorf("record counts must be non-negative")
	}

	if s.TotalRecords != s.OKRecords+s.WarnRecords+s.FailRecords {
		return fmt.Errorf(
			"total_records (%d) does not match ok+warn+fail (%d+%d+%d)",
			s.TotalRecords, s.OKRecords, s.WarnRecords, s.FailRecords,
		)
	}

	if !s.Status.IsRunLevel() {
		return fmt.Errorf("invalid run status %q", s.Status)
	}

	if s.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}

	return nil
}

// RecordDraft is a generated reading that has not been persisted yet.
type RecordDraft struct {
	SourceID  string        `json:"source_id" yaml:"source_id"`
	Value     float64       `json:"value" yaml:"value"`
	Status    status.Status `json:"status" yaml:"status"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}
