// Package scheduler runs periodic jobs on cron schedules with retry.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gridlab/quant/pkg/logger"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler wraps robfig/cron and retries failing jobs.
type Scheduler struct {
	cron       *cron.Cron
	logger     *logger.Logger
	maxRetries int
	retryDelay time.Duration
}

// New creates a Scheduler. Schedules are interpreted in UTC.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		logger:     log,
		maxRetries: 3,
		retryDelay: 30 * time.Second,
	}
}

// AddJob registers job on the given cron spec, e.g. "5 0 * * *".
func (s *Scheduler) AddJob(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runWithRetry(job)
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(map[string]interface{}{
		"job":  job.Name(),
		"spec": spec,
	}).Info("Job scheduled")
	return nil
}

// Start begins dispatching jobs in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// runWithRetry runs one job, retrying on failure with a fixed delay.
func (s *Scheduler) runWithRetry(job Job) {
	log := s.logger.WithField("job", job.Name())

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		start := time.Now()
		err := job.Run(context.Background())
		if err == nil {
			log.WithField("duration", time.Since(start).String()).Info("Job completed")
			return
		}

		log.WithError(err).WithField("attempt", attempt).Warn("Job failed")
		if attempt < s.maxRetries {
			time.Sleep(s.retryDelay)
		}
	}

	log.Error("Job failed after all retries")
}
