package pack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/catalog"
	"github.com/tutorlab/videoquiz/internal/quiz"
)

// jobStore lists prepared videos and their transcripts.
type jobStore interface {
	FindTranscriptReady(ctx context.Context, limit int) ([]catalog.Video, error)
	GetPreparation(ctx context.Context, catalogVideoID int64) (*catalog.Preparation, error)
}

// Job fills in missing question packs for prepared videos, capped per run
// so a large backlog drains across nights instead of burning the generator
// quota in one go.
type Job struct {
	store   jobStore
	packs   *Service
	targets []int
	cap     int
	logger  zerolog.Logger
}

func NewJob(store jobStore, packs *Service, targets []int, cap int, logger zerolog.Logger) *Job {
	if len(targets) == 0 {
		targets = []int{5, 10, 15}
	}
	if cap <= 0 {
		cap = 6
	}
	return &Job{store: store, packs: packs, targets: targets, cap: cap, logger: logger}
}

// Run generates up to the configured cap of missing packs. A failed
// (video, size) pair is logged and skipped; it still counts against the
// cap so a broken video cannot stall the whole run.
func (j *Job) Run(ctx context.Context) error {
	videos, err := j.store.FindTranscriptReady(ctx, j.cap)
	if err != nil {
		return fmt.Errorf("list pack candidates: %w", err)
	}

	generated, failed := 0, 0
	budget := j.cap
	for _, v := range videos {
		if budget <= 0 {
			break
		}
		missing, err := j.packs.MissingSizes(ctx, v.ID, j.targets)
		if err != nil {
			j.logger.Warn().Err(err).Str("video_id", v.VideoID).Msg("list missing pack sizes failed")
			continue
		}
		if len(missing) == 0 {
			continue
		}

		prep, err := j.store.GetPreparation(ctx, v.ID)
		if err != nil || prep == nil || prep.Transcript == "" {
			j.logger.Warn().Err(err).Str("video_id", v.VideoID).Msg("pack candidate has no transcript")
			continue
		}

		for _, size := range missing {
			if budget <= 0 {
				break
			}
			budget--
			if _, err := j.packs.Generate(ctx, v.ID, prep.Transcript, size, quiz.DifficultyNormal); err != nil {
				failed++
				continue
			}
			generated++
		}
	}
	j.logger.Info().Int("generated", generated).Int("failed", failed).Msg("pack job done")
	return nil
}
