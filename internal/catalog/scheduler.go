package catalog

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// job is a named batch run the scheduler fires on its cron expression.
type job interface {
	Run(ctx context.Context) error
}

// ScheduleConfig enables and times the nightly catalog jobs. Expressions
// use the standard 5-field cron format.
type ScheduleConfig struct {
	PrewarmEnabled bool
	PrewarmCron    string
	PackEnabled    bool
	PackCron       string
}

// Scheduler runs the prewarm and pack generation jobs on their cron
// schedules. Jobs run with a background context so an in-flight batch
// finishes even while the server is draining requests.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

func NewScheduler(cfg ScheduleConfig, prewarm, packs job, logger zerolog.Logger) (*Scheduler, error) {
	c := cron.New()

	if cfg.PrewarmEnabled {
		if _, err := c.AddFunc(cfg.PrewarmCron, runJob("prewarm", prewarm, logger)); err != nil {
			return nil, fmt.Errorf("schedule prewarm job (%q): %w", cfg.PrewarmCron, err)
		}
		logger.Info().Str("cron", cfg.PrewarmCron).Msg("prewarm job scheduled")
	}
	if cfg.PackEnabled {
		if _, err := c.AddFunc(cfg.PackCron, runJob("packs", packs, logger)); err != nil {
			return nil, fmt.Errorf("schedule pack job (%q): %w", cfg.PackCron, err)
		}
		logger.Info().Str("cron", cfg.PackCron).Msg("pack job scheduled")
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

func runJob(name string, j job, logger zerolog.Logger) func() {
	return func() {
		if err := j.Run(context.Background()); err != nil {
			logger.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
	}
}

// Start begins firing scheduled jobs. Safe to call with nothing scheduled.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("catalog scheduler stopped")
}
