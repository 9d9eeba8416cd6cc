package prep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

type stubCreator struct {
	calls atomic.Int32
	quiz  *quiz.Quiz
	err   error
	delay time.Duration
}

func (c *stubCreator) Create(ctx context.Context, _ quiz.CreateRequest) (*quiz.Quiz, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.quiz, nil
}

func waitTerminal(t *testing.T, c *Coordinator, id uuid.UUID) Status {
	t.Helper()
	var status Status
	require.Eventually(t, func() bool {
		status = c.Status(id)
		return status.State != StatePending
	}, 2*time.Second, 5*time.Millisecond)
	return status
}

func TestStartRunsPipelineToReady(t *testing.T) {
	created := &quiz.Quiz{ID: uuid.New()}
	creator := &stubCreator{quiz: created}
	c := NewCoordinator(creator, 2, time.Minute, zerolog.Nop())

	id := c.Start("learner-1", "https://youtu.be/abc", 10)

	status := waitTerminal(t, c, id)
	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, created.ID, status.QuizID)
	assert.Empty(t, status.Message)

	// Terminal state is stable across repeated polls.
	assert.Equal(t, status, c.Status(id))
}

func TestStartCoalescesSameRequest(t *testing.T) {
	creator := &stubCreator{quiz: &quiz.Quiz{ID: uuid.New()}}
	c := NewCoordinator(creator, 2, time.Minute, zerolog.Nop())

	first := c.Start("learner-1", "https://youtu.be/abc", 10)
	second := c.Start("learner-1", "https://youtu.be/abc", 10)

	assert.Equal(t, first, second)
	waitTerminal(t, c, first)

	// Dedup holds even after the task finished.
	assert.Equal(t, first, c.Start("learner-1", "https://youtu.be/abc", 10))
	assert.Equal(t, int32(1), creator.calls.Load())
}

func TestStartDistinguishesLearnerURLAndSize(t *testing.T) {
	creator := &stubCreator{quiz: &quiz.Quiz{ID: uuid.New()}}
	c := NewCoordinator(creator, 4, time.Minute, zerolog.Nop())

	base := c.Start("learner-1", "https://youtu.be/abc", 10)

	assert.NotEqual(t, base, c.Start("learner-2", "https://youtu.be/abc", 10))
	assert.NotEqual(t, base, c.Start("learner-1", "https://youtu.be/xyz", 10))
	assert.NotEqual(t, base, c.Start("learner-1", "https://youtu.be/abc", 5))
}

func TestAnonymousAndDefaultSizePlaceholders(t *testing.T) {
	creator := &stubCreator{quiz: &quiz.Quiz{ID: uuid.New()}}
	c := NewCoordinator(creator, 2, time.Minute, zerolog.Nop())

	// Empty learner and non-positive size normalize into the dedup key.
	first := c.Start("", "https://youtu.be/abc", 0)
	second := c.Start("", "https://youtu.be/abc", -1)

	assert.Equal(t, first, second)
}

func TestFailurePropagatesMessage(t *testing.T) {
	creator := &stubCreator{err: errors.New("Video is longer than allowed limit of 30 minutes.")}
	c := NewCoordinator(creator, 2, time.Minute, zerolog.Nop())

	id := c.Start("learner-1", "https://youtu.be/long", 10)

	status := waitTerminal(t, c, id)
	assert.Equal(t, StateError, status.State)
	assert.Equal(t, "Video is longer than allowed limit of 30 minutes.", status.Message)
}

func TestTimeoutForcesErrorState(t *testing.T) {
	creator := &stubCreator{quiz: &quiz.Quiz{ID: uuid.New()}, delay: time.Second}
	c := NewCoordinator(creator, 2, 20*time.Millisecond, zerolog.Nop())

	id := c.Start("learner-1", "https://youtu.be/slow", 10)

	status := waitTerminal(t, c, id)
	assert.Equal(t, StateError, status.State)
	assert.Equal(t, "Timed out preparing quiz.", status.Message)
}

func TestUnknownIDStatus(t *testing.T) {
	c := NewCoordinator(&stubCreator{}, 2, time.Minute, zerolog.Nop())

	status := c.Status(uuid.New())

	assert.Equal(t, StateError, status.State)
	assert.Equal(t, "Unknown preparation id.", status.Message)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	block := make(chan struct{})
	var running atomic.Int32
	var peak atomic.Int32
	creator := &blockingCreator{block: block, running: &running, peak: &peak}
	c := NewCoordinator(creator, 2, time.Minute, zerolog.Nop())

	ids := make([]uuid.UUID, 0, 4)
	for i, url := range []string{"a", "b", "c", "d"} {
		ids = append(ids, c.Start("learner", "https://youtu.be/"+url, 10+i))
	}
	time.Sleep(50 * time.Millisecond)
	close(block)

	for _, id := range ids {
		waitTerminal(t, c, id)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

type blockingCreator struct {
	block   chan struct{}
	running *atomic.Int32
	peak    *atomic.Int32
}

func (c *blockingCreator) Create(ctx context.Context, _ quiz.CreateRequest) (*quiz.Quiz, error) {
	now := c.running.Add(1)
	defer c.running.Add(-1)
	for {
		old := c.peak.Load()
		if now <= old || c.peak.CompareAndSwap(old, now) {
			break
		}
	}
	<-c.block
	return &quiz.Quiz{ID: uuid.New()}, nil
}
