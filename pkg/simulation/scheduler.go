package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/ethpandaops/runmonitor/pkg/generator"
	"github.com/sirupsen/logrus"
)

// Scheduler is a background service that records one run per interval.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	// Wait blocks until the background loop exits.
	Wait()
}

// Compile-time interface check.
var _ Scheduler = (*scheduler)(nil)

type scheduler struct {
	log      logrus.FieldLogger
	svc      *Service
	params   generator.Params
	interval time.Duration
	maxRuns  int
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	onRun    func(*Result)
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*scheduler)

// WithMaxRuns stops the scheduler after n successful runs. Zero means no
// limit.
func WithMaxRuns(n int) SchedulerOption {
	return func(s *scheduler) {
		s.maxRuns = n
	}
}

// WithRunHook registers fn to be called after every recorded run.
func WithRunHook(fn func(*Result)) SchedulerOption {
	return func(s *scheduler) {
		s.onRun = fn
	}
}

// NewScheduler creates a scheduler that calls svc.RunOnce with params every
// interval.
func NewScheduler(
	log logrus.FieldLogger,
	svc *Service,
	params generator.Params,
	interval time.Duration,
	opts ...SchedulerOption,
) Scheduler {
	s := &scheduler{
		log:      log.WithField("component", "scheduler"),
		svc:      svc,
		params:   params,
		interval: interval,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start records one run immediately and then one per tick. Runs execute
// sequentially on a single goroutine.
func (s *scheduler) Start(ctx context.Context) error {
	if err := s.params.Validate(); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"interval": s.interval.String(),
		"max_runs": s.maxRuns,
	}).Info("Starting scheduler")

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		completed := 0

		if s.runPass(ctx) {
			completed++
		}

		if s.maxRuns > 0 && completed >= s.maxRuns {
			return
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if s.runPass(ctx) {
					completed++
				}

				if s.maxRuns > 0 && completed >= s.maxRuns {
					s.log.WithField("runs", completed).Info("Scheduler reached run limit")

					return
				}
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop signals the scheduler goroutine to stop and waits for it.
func (s *scheduler) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()

	s.log.Info("Scheduler stopped")

	return nil
}

// Wait blocks until the scheduler goroutine exits.
func (s *scheduler) Wait() {
	s.wg.Wait()
}

// runPass records a single run. Failures are logged and the schedule
// continues.
func (s *scheduler) runPass(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-s.done:
		return false
	default:
	}

	res, err := s.svc.RunOnce(ctx, s.params)
	if err != nil {
		s.log.WithError(err).Warn("Scheduled run failed")

		return false
	}

	if s.onRun != nil {
		s.onRun(res)
	}

	return true
}
