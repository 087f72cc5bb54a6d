// Package jobs runs the periodic maintenance work behind the conversation
// pipeline: idle-session expiry, preference learning, and trend reporting.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of periodic work. RunOnce must be idempotent: the
// scheduler may invoke it again after restarts without a persisted cursor.
type Job interface {
	Name() string
	Interval() time.Duration
	RunOnce(ctx context.Context) error
}

// Scheduler drives a set of jobs on independent tickers. Job failures are
// logged and the ticker keeps going; only context cancellation stops a job.
type Scheduler struct {
	jobs []Job
}

// NewScheduler creates a scheduler for the given jobs.
func NewScheduler(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Start runs every job on its own ticker until ctx is cancelled. Each job
// fires once immediately so a restart does not wait out a full interval.
// Start blocks; run it in a goroutine and cancel ctx to stop.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			s.runJob(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	s.tick(ctx, job)

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("job stopped", "job", job.Name())
			return
		case <-ticker.C:
			s.tick(ctx, job)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.RunOnce(ctx); err != nil {
		slog.Error("job run failed", "job", job.Name(), "error", err)
		return
	}
	slog.Debug("job run completed", "job", job.Name(), "duration", time.Since(start))
}
