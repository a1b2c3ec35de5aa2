// Package scheduler runs recurring background jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one recurring unit of background work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler manages background jobs. Jobs run sequentially within the
// cron runner; a slow job delays, never overlaps, its own next run.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins running registered jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops scheduling and waits for in-flight jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job on a cron schedule. Standard 5-field cron
// expressions and descriptors like "@hourly" or "@every 15m" are
// accepted.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	return job.Run(context.Background())
}

func (s *Scheduler) run(job Job) {
	log := s.log.With().Str("job", job.Name()).Logger()
	started := time.Now()

	if err := job.Run(context.Background()); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("Job failed")
		return
	}

	log.Debug().Dur("elapsed", time.Since(started)).Msg("Job completed")
}
