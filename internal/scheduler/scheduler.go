package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the single-shot job on cron specs (daemon mode).
type Scheduler struct {
	Cron   *cron.Cron
	Runner *Runner
	Ctx    context.Context
	// AfterRun, when set, is called after every completed run.
	AfterRun func(Outcome)
	running  atomic.Bool
}

// NewScheduler creates a new Scheduler. Specs use the seconds field.
func NewScheduler(ctx context.Context, runner *Runner) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds(), cron.WithLocation(runner.Location)),
		Runner: runner,
		Ctx:    ctx,
	}
}

// RegisterAll registers one run per spec.
func (s *Scheduler) RegisterAll(specs []string) error {
	if len(specs) == 0 {
		return fmt.Errorf("no cron specs configured")
	}
	for _, spec := range specs {
		if _, err := s.Cron.AddFunc(spec, s.runTask); err != nil {
			return fmt.Errorf("register run %q: %w", spec, err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes a run immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runTask()
}

// runTask skips a tick while the previous run is still going.
func (s *Scheduler) runTask() {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Msg("previous run still in progress, skipping tick")
		return
	}
	defer s.running.Store(false)

	outcome := s.Runner.RunOnce(s.Ctx)
	log.Info().Str("outcome", string(outcome)).Msg("scheduled run finished")
	if s.AfterRun != nil {
		s.AfterRun(outcome)
	}
}
