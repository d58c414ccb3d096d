package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs background jobs on cron schedules with second precision
type Scheduler struct {
	engine *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		engine: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)),
		),
		logger: logger,
	}
}

// Register adds job under spec. An overlapping run is skipped, not queued.
func (s *Scheduler) Register(name, spec string, job cron.Job) error {
	if _, err := s.engine.AddJob(spec, job); err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}
	s.logger.Info("cron job registered", zap.String("job", name), zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) Start() {
	s.logger.Info("cron engine starting")
	s.engine.Start()
}

// Stop waits for running jobs or for ctx, whichever comes first
func (s *Scheduler) Stop(ctx context.Context) {
	s.logger.Info("cron engine stopping")
	done := s.engine.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("cron engine stop timed out")
	}
}
