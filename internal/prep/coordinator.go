// Package prep orchestrates asynchronous quiz preparation: deduplicated
// task registration, a bounded worker pool, and cooperative status polling.
package prep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

// State is a task's lifecycle phase. Pending transitions exactly once to
// ready or error and never reopens.
type State string

const (
	StatePending State = "pending"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Status is the poll result for a preparation task.
type Status struct {
	State   State     `json:"state"`
	QuizID  uuid.UUID `json:"quizId,omitempty"`
	Message string    `json:"error,omitempty"`
}

// quizCreator runs the full quiz creation pipeline.
type quizCreator interface {
	Create(ctx context.Context, req quiz.CreateRequest) (*quiz.Quiz, error)
}

var (
	prepStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoquiz_preparations_started_total",
		Help: "Preparation tasks registered (deduplicated restarts excluded).",
	})
	prepFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoquiz_preparations_finished_total",
		Help: "Preparation tasks reaching a terminal state.",
	}, []string{"state"})
)

type task struct {
	id     uuid.UUID
	status Status
}

// Coordinator deduplicates and runs preparation tasks on a bounded worker
// pool. Tasks are coalesced by (learner, url, size) for the process
// lifetime: restarting the same request returns the existing task id even
// after it finished, so refresh-and-repoll always lands on the same result.
type Coordinator struct {
	creator quizCreator
	sem     chan struct{}
	timeout time.Duration
	logger  zerolog.Logger

	mu    sync.Mutex
	tasks map[uuid.UUID]*task
	byKey map[string]uuid.UUID
}

func NewCoordinator(creator quizCreator, workers int, timeout time.Duration, logger zerolog.Logger) *Coordinator {
	if workers <= 0 {
		workers = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Coordinator{
		creator: creator,
		sem:     make(chan struct{}, workers),
		timeout: timeout,
		logger:  logger,
		tasks:   make(map[uuid.UUID]*task),
		byKey:   make(map[string]uuid.UUID),
	}
}

func dedupKey(learnerID, videoURL string, desiredSize int) string {
	learner := learnerID
	if learner == "" {
		learner = "anon"
	}
	size := "default"
	if desiredSize > 0 {
		size = fmt.Sprintf("%d", desiredSize)
	}
	return learner + "|" + videoURL + "|" + size
}

// Start registers a preparation task and returns its id without waiting.
// An existing task for the same (learner, url, size), pending or finished,
// is returned unchanged.
func (c *Coordinator) Start(learnerID, videoURL string, desiredSize int) uuid.UUID {
	key := dedupKey(learnerID, videoURL, desiredSize)

	c.mu.Lock()
	if id, ok := c.byKey[key]; ok {
		c.mu.Unlock()
		c.logger.Info().Stringer("task", id).Str("url", videoURL).Msg("preparation reused")
		return id
	}
	t := &task{id: uuid.New(), status: Status{State: StatePending}}
	c.tasks[t.id] = t
	c.byKey[key] = t.id
	c.mu.Unlock()

	prepStarted.Inc()
	c.logger.Info().Stringer("task", t.id).Str("url", videoURL).Int("size", desiredSize).Msg("preparation started")

	go c.run(t, quiz.CreateRequest{LearnerID: learnerID, VideoURL: videoURL, DesiredSize: desiredSize})
	return t.id
}

func (c *Coordinator) run(t *task, req quiz.CreateRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	// The timeout spans queueing and execution both.
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		c.finish(t, Status{State: StateError, Message: "Timed out preparing quiz."})
		return
	}

	q, err := c.creator.Create(ctx, req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Timed out preparing quiz."
		} else if msg == "" {
			msg = "Failed to prepare quiz."
		}
		c.logger.Warn().Err(err).Stringer("task", t.id).Msg("preparation failed")
		c.finish(t, Status{State: StateError, Message: msg})
		return
	}

	c.logger.Info().Stringer("task", t.id).Stringer("quiz", q.ID).Msg("preparation ready")
	c.finish(t, Status{State: StateReady, QuizID: q.ID})
}

func (c *Coordinator) finish(t *task, s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.status.State != StatePending {
		return
	}
	t.status = s
	prepFinished.WithLabelValues(string(s.State)).Inc()
}

// Status reports the task's current state. Unknown ids yield an error
// status; terminal states keep returning the same value on repeat polls.
func (c *Coordinator) Status(id uuid.UUID) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[id]
	if !ok {
		return Status{State: StateError, Message: "Unknown preparation id."}
	}
	return t.status
}
