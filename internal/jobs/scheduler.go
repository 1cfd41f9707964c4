// Package jobs runs the portal's recurring background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one unit of recurring work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs jobs on cron schedules. Overlapping runs of the same job are skipped.
type Scheduler struct {
	cron   *cron.Cron
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers job under a standard cron expression or descriptor ("@every 1m").
func (s *Scheduler) Add(schedule string, job Job) error {
	spec, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("parse schedule %q for %s: %w", schedule, job.Name(), err)
	}
	s.cron.Schedule(spec, cron.FuncJob(func() { s.run(job) }))
	s.log.Info("job scheduled", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	if err := job.Run(s.ctx); err != nil {
		s.log.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		return
	}
	s.log.Debug("job done", zap.String("job", job.Name()), zap.Duration("dur", time.Since(start)))
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and waits for them to return, at most until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("jobs still running at shutdown")
	}
}
