package generator

import (
	"fmt"
	"math"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/status"
	"github.com/sirupsen/logrus"
)

const (
	// RecordSpacing separates consecutive record timestamps of a run.
	RecordSpacing = 3 * time.Second

	// TimestampPrecision matches the precision of the stored timestamps.
	TimestampPrecision = time.Microsecond

	minValue    = 10.0
	maxValue    = 100.0
	minSourceID = 100
	maxSourceID = 999
)

// Generator produces simulated runs from an explicit random source.
type Generator struct {
	log logrus.FieldLogger
	src status.RandomSource
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock overrides the clock used to stamp runs.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// New creates a generator drawing from src.
func New(log logrus.FieldLogger, src status.RandomSource, opts ...Option) *Generator {
	g := &Generator{
		log: log.WithField("component", "generator"),
		src: src,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate produces one run's summary and its record drafts in generation
// order. Drafts are spaced RecordSpacing apart and the last one lies one
// spacing before the run's timestamp.
func (g *Generator) Generate(p Params) (RunSummary, []RecordDraft, error) {
	if err := p.Validate(); err != nil {
		return RunSummary{}, nil, err
	}

	if p.ExhaustsFail() {
		g.log.WithFields(logrus.Fields{
			"ok_ratio":   p.OKRatio,
			"warn_ratio": p.WarnRatio,
		}).Warn("OK and WARN ratios leave no room for FAIL records")
	}

	total := g.intBetween(p.MinRecords, p.MaxRecords)
	createdAt := g.now().UTC().Truncate(TimestampPrecision)

	drafts := make([]RecordDraft, 0, min(total, MaxRecordsLimit))

	var tally status.Tally

	for idx := 0; idx < total; idx++ {
		st := status.Classify(g.src, p.OKRatio, p.WarnRatio)
		value := g.value()
		sourceID := fmt.Sprintf("S-%d", g.intBetween(minSourceID, maxSourceID))

		tally.Add(st)

		drafts = append(drafts, RecordDraft{
			SourceID:  sourceID,
			Value:     value,
			Status:    st,
			CreatedAt: createdAt.Add(-time.Duration(total-idx) * RecordSpacing),
		})
	}

	summary := RunSummary{
		CreatedAt:    createdAt,
		Status:       tally.Status(),
		TotalRecords: total,
		OKRecords:    tally.OK,
		WarnRecords:  tally.WARN,
		FailRecords:  tally.FAIL,
	}

	g.log.WithFields(logrus.Fields{
		"total":  summary.TotalRecords,
		"ok":     summary.OKRecords,
		"warn":   summary.WarnRecords,
		"fail":   summary.FailRecords,
		"status": summary.Status,
	}).Debug("Generated run")

	return summary, drafts, nil
}

// intBetween returns a uniform integer in [lo, hi] from a single draw.
func (g *Generator) intBetween(lo, hi int) int {
	v := lo + int(g.src.Float64()*float64(hi-lo+1))
	if v > hi {
		v = hi
	}

	return v
}

// value returns a uniform reading in [minValue, maxValue] rounded to two
// decimals.
func (g *Generator) value() float64 {
	v := math.Round((minValue+g.src.Float64()*(maxValue-minValue))*100) / 100

	return math.Min(math.Max(v, minValue), maxValue)
}
