package processor

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Runner is one scheduled unit of work.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Scheduler runs processing on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger *slog.Logger
}

// NewScheduler registers runner on a standard 5-field cron spec.
func NewScheduler(spec string, runner Runner, logger *slog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		runner: runner,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if _, err := s.runner.Run(context.Background()); err != nil {
		if errors.Is(err, ErrBusy) {
			s.logger.Info("scheduled processing skipped, run in progress")
			return
		}
		s.logger.Error("scheduled processing failed", "error", err)
	}
}

func (s *Scheduler) Start() {
	s.logger.Info("processing scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts the schedule and returns a context done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
