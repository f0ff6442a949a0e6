package simulation

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/ethpandaops/runmonitor/pkg/store"
	"github.com/sirupsen/logrus"
)

// Result describes a persisted run.
type Result struct {
	RunID   uint
	Summary generator.RunSummary
	Records []generator.RecordDraft
}

// Service generates runs and persists them. Runs are recorded one at a
// time; concurrent callers are serialized.
type Service struct {
	log    logrus.FieldLogger
	gen    *generator.Generator
	store  store.Store
	atomic bool

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithAtomicPersistence stores each run and its records in one transaction
// instead of the default run-then-records sequence.
func WithAtomicPersistence(atomic bool) Option {
	return func(s *Service) {
		s.atomic = atomic
	}
}

// NewService creates a Service.
func NewService(
	log logrus.FieldLogger,
	gen *generator.Generator,
	st store.Store,
	opts ...Option,
) *Service {
	s := &Service{
		log:   log.WithField("component", "simulation"),
		gen:   gen,
		store: st,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RunOnce generates one run with params and persists it. The run row is
// committed before its records are added; a failure between the two steps
// leaves a run without records.
func (s *Service) RunOnce(ctx context.Context, params generator.Params) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, drafts, err := s.gen.Generate(params)
	if err != nil {
		return nil, fmt.Errorf("generating run: %w", err)
	}

	var runID uint

	if s.atomic {
		runID, err = s.store.CreateRunWithRecords(ctx, summary, drafts)
		if err != nil {
			return nil, fmt.Errorf("persisting run: %w", err)
		}
	} else {
		runID, err = s.store.CreateRun(ctx, summary)
		if err != nil {
			return nil, fmt.Errorf("creating run: %w", err)
		}

		if err := s.store.AddRecords(ctx, runID, drafts); err != nil {
			return nil, fmt.Errorf("adding records to run %d: %w", runID, err)
		}
	}

	s.log.WithFields(logrus.Fields{
		"run_id": runID,
		"status": summary.Status,
		"total":  summary.TotalRecords,
		"ok":     summary.OKRecords,
		"warn":   summary.WarnRecords,
		"fail":   summary.FailRecords,
	}).Info("Run recorded")

	return &Result{
		RunID:   runID,
		Summary: summary,
		Records: drafts,
	}, nil
}
