package quiz

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlab/videoquiz/internal/catalog"
)

type memoryQuizStore struct {
	quizzes map[uuid.UUID]*Quiz
}

func newMemoryQuizStore() *memoryQuizStore {
	return &memoryQuizStore{quizzes: map[uuid.UUID]*Quiz{}}
}

func (s *memoryQuizStore) Create(_ context.Context, q *Quiz) error {
	copied := *q
	s.quizzes[q.ID] = &copied
	return nil
}

func (s *memoryQuizStore) Get(_ context.Context, id uuid.UUID, learnerID string) (*Quiz, error) {
	q, ok := s.quizzes[id]
	if !ok || q.LearnerID != learnerID {
		return nil, nil
	}
	copied := *q
	return &copied, nil
}

func (s *memoryQuizStore) List(_ context.Context, learnerID string) ([]Quiz, error) {
	var out []Quiz
	for _, q := range s.quizzes {
		if q.LearnerID == learnerID {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (s *memoryQuizStore) ReplaceQuestions(_ context.Context, quizID uuid.UUID, questions []Question) error {
	q, ok := s.quizzes[quizID]
	if !ok {
		return errors.New("quiz missing")
	}
	q.Questions = questions
	q.TotalQuestions = len(questions)
	q.Score = nil
	q.WrongAnswers = nil
	return nil
}

func (s *memoryQuizStore) SaveScore(_ context.Context, quizID uuid.UUID, score, total int) error {
	q, ok := s.quizzes[quizID]
	if !ok {
		return errors.New("quiz missing")
	}
	q.Score = &score
	q.TotalQuestions = total
	return nil
}

func (s *memoryQuizStore) ReplaceWrongAnswers(_ context.Context, quizID uuid.UUID, records []WrongRecord) error {
	q, ok := s.quizzes[quizID]
	if !ok {
		return errors.New("quiz missing")
	}
	q.WrongAnswers = records
	return nil
}

type stubCatalog struct {
	video *catalog.Video
	prep  *catalog.Preparation
}

func (s *stubCatalog) FindByVideoID(_ context.Context, _ string) (*catalog.Video, error) {
	return s.video, nil
}

func (s *stubCatalog) GetPreparation(_ context.Context, _ int64) (*catalog.Preparation, error) {
	return s.prep, nil
}

type stubPacks struct {
	questions []Question
	found     bool
	calls     int
}

func (s *stubPacks) NearestQuestions(_ context.Context, _ int64, _ int) ([]Question, bool, error) {
	s.calls++
	return s.questions, s.found, nil
}

type stubTranscripts struct {
	text  string
	err   error
	calls int
}

func (s *stubTranscripts) Fetch(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.text, s.err
}

type stubMetadata struct {
	duration int64
	title    string
}

func (s *stubMetadata) DurationSeconds(_ context.Context, _ string) int64 { return s.duration }
func (s *stubMetadata) Title(_ context.Context, _ string) string         { return s.title }

type stubQuizGenerator struct {
	questions []Question
	err       error
	calls     int
}

func (g *stubQuizGenerator) Generate(_ context.Context, _ string, _ Difficulty, _ int, _ bool) ([]Question, error) {
	g.calls++
	return g.questions, g.err
}

type stubIndexer struct {
	indexed    map[string]string
	copySource int
	copyCalls  []string
}

func newStubIndexer() *stubIndexer {
	return &stubIndexer{indexed: map[string]string{}}
}

func (s *stubIndexer) IndexText(_ context.Context, ownerID, text string) (int, error) {
	s.indexed[ownerID] = text
	return 3, nil
}

func (s *stubIndexer) CopyOwner(_ context.Context, fromOwner, toOwner string) (int, error) {
	s.copyCalls = append(s.copyCalls, fromOwner+"->"+toOwner)
	return s.copySource, nil
}

type fixture struct {
	store       *memoryQuizStore
	catalog     *stubCatalog
	packs       *stubPacks
	transcripts *stubTranscripts
	metadata    *stubMetadata
	generator   *stubQuizGenerator
	index       *stubIndexer
	svc         *Service
}

func newFixture(opts Options) *fixture {
	f := &fixture{
		store:       newMemoryQuizStore(),
		catalog:     &stubCatalog{},
		packs:       &stubPacks{},
		transcripts: &stubTranscripts{text: "the transcript"},
		metadata:    &stubMetadata{duration: 600, title: "Learning Go"},
		generator:   &stubQuizGenerator{questions: []Question{{ID: uuid.New(), Type: TypeSingleChoice, Text: "q", CorrectAnswers: []string{"a"}}}},
		index:       newStubIndexer(),
	}
	f.svc = NewService(f.store, f.catalog, f.packs, f.transcripts, f.metadata, f.generator, f.index, opts, zerolog.Nop())
	return f
}

const videoURL = "https://youtu.be/abc123"

func TestCreateGeneratesAndIndexes(t *testing.T) {
	f := newFixture(Options{MaxVideoSeconds: 1800, EnforceLimit: true})

	q, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	assert.Equal(t, "Learning Go", q.VideoTitle)
	assert.Equal(t, "the transcript", q.Transcript)
	assert.Equal(t, 1, q.TotalQuestions)
	assert.Len(t, q.Questions, 1)
	assert.Equal(t, 1, f.generator.calls)
	assert.Equal(t, "the transcript", f.index.indexed[q.ChunkOwnerID()])
	require.NotNil(t, f.store.quizzes[q.ID])
}

func TestCreateRejectsLongVideo(t *testing.T) {
	f := newFixture(Options{MaxVideoSeconds: 1800, EnforceLimit: true})
	f.metadata.duration = 1900

	_, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})

	assert.ErrorIs(t, err, ErrDurationExceeded)
	assert.Zero(t, f.transcripts.calls)
}

func TestCreateRejectsUnknownDuration(t *testing.T) {
	f := newFixture(Options{MaxVideoSeconds: 1800, EnforceLimit: true})
	f.metadata.duration = 0

	_, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})

	assert.ErrorIs(t, err, ErrDurationUnknown)
}

func TestCreateSkipsDurationCheckWhenDisabled(t *testing.T) {
	f := newFixture(Options{MaxVideoSeconds: 1800, EnforceLimit: false})
	f.metadata.duration = 0

	_, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})

	assert.NoError(t, err)
}

func TestCreateFallsBackToDefaultTitle(t *testing.T) {
	f := newFixture(Options{})
	f.metadata.title = "  "

	q, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})
	require.NoError(t, err)

	assert.Equal(t, "YouTube Video", q.VideoTitle)
}

func TestCreateReusesPrewarmedTranscriptAndChunks(t *testing.T) {
	f := newFixture(Options{})
	f.catalog.video = &catalog.Video{ID: 7, VideoID: "abc123"}
	f.catalog.prep = &catalog.Preparation{
		CatalogVideoID:  7,
		Transcript:      "prewarmed words",
		TranscriptReady: true,
		EmbeddingsReady: true,
	}
	f.index.copySource = 4

	q, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})
	require.NoError(t, err)

	assert.Equal(t, "prewarmed words", q.Transcript)
	assert.Zero(t, f.transcripts.calls)
	require.Len(t, f.index.copyCalls, 1)
	assert.Equal(t, "video:abc123->"+q.ChunkOwnerID(), f.index.copyCalls[0])
	// No re-embedding happened.
	assert.Empty(t, f.index.indexed)
}

func TestCreateReindexesWhenPrewarmedChunksEmpty(t *testing.T) {
	f := newFixture(Options{})
	f.catalog.video = &catalog.Video{ID: 7, VideoID: "abc123"}
	f.catalog.prep = &catalog.Preparation{
		CatalogVideoID:  7,
		Transcript:      "prewarmed words",
		TranscriptReady: true,
		EmbeddingsReady: true,
	}
	f.index.copySource = 0

	q, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})
	require.NoError(t, err)

	assert.Equal(t, "prewarmed words", f.index.indexed[q.ChunkOwnerID()])
}

func TestCreateUsesNearestPack(t *testing.T) {
	f := newFixture(Options{})
	f.catalog.video = &catalog.Video{ID: 7, VideoID: "abc123"}
	f.packs.found = true
	f.packs.questions = []Question{
		{ID: uuid.New(), Type: TypeSingleChoice, Text: "packed", CorrectAnswers: []string{"a"}},
		{ID: uuid.New(), Type: TypeWriting, Text: "write", CorrectAnswers: []string{"open"}},
	}

	q, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL, DesiredSize: 5})
	require.NoError(t, err)

	assert.Equal(t, 2, q.TotalQuestions)
	assert.Equal(t, "packed", q.Questions[0].Text)
	assert.Zero(t, f.generator.calls)
}

func TestCreatePropagatesFetchFailure(t *testing.T) {
	f := newFixture(Options{})
	f.transcripts.err = errors.New("fetch blew up")

	_, err := f.svc.Create(context.Background(), CreateRequest{VideoURL: videoURL})

	assert.ErrorContains(t, err, "fetch blew up")
	assert.Empty(t, f.store.quizzes)
}

func TestGetScopesToLearner(t *testing.T) {
	f := newFixture(Options{})
	q, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), q.ID, "someone-else")
	assert.ErrorIs(t, err, ErrQuizNotFound)

	got, err := f.svc.Get(context.Background(), q.ID, "l1")
	require.NoError(t, err)
	assert.Equal(t, q.ID, got.ID)
}

func TestSubmitScoresAndRecordsWrongAnswers(t *testing.T) {
	f := newFixture(Options{})
	q1 := Question{ID: uuid.New(), Type: TypeSingleChoice, Text: "q1", CorrectAnswers: []string{"yes"}}
	q2 := Question{ID: uuid.New(), Type: TypeTrueFalse, Text: "q2", CorrectAnswers: []string{"True"}}
	q3 := Question{ID: uuid.New(), Type: TypeWriting, Text: "q3", CorrectAnswers: []string{"open"}}
	f.generator.questions = []Question{q1, q2, q3}

	created, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	result, err := f.svc.Submit(context.Background(), created.ID, "l1", map[uuid.UUID][]string{
		q1.ID: {"yes"},
		q2.ID: {"false"},
		// q3 unanswered: writing still scores as correct.
	})
	require.NoError(t, err)

	require.NotNil(t, result.Score)
	assert.Equal(t, 2, *result.Score)
	assert.Equal(t, 3, result.TotalQuestions)
	require.Len(t, result.WrongAnswers, 1)
	assert.Equal(t, q2.ID, result.WrongAnswers[0].QuestionID)
	assert.Equal(t, "false", result.WrongAnswers[0].Submitted)
}

func TestSubmitReplacesEarlierWrongAnswers(t *testing.T) {
	f := newFixture(Options{})
	q1 := Question{ID: uuid.New(), Type: TypeSingleChoice, Text: "q1", CorrectAnswers: []string{"yes"}}
	f.generator.questions = []Question{q1}

	created, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), created.ID, "l1", map[uuid.UUID][]string{q1.ID: {"no"}})
	require.NoError(t, err)

	result, err := f.svc.Submit(context.Background(), created.ID, "l1", map[uuid.UUID][]string{q1.ID: {"yes"}})
	require.NoError(t, err)

	assert.Equal(t, 1, *result.Score)
	assert.Empty(t, result.WrongAnswers)
}

func TestRegenerateReplacesQuestionsAndResetsScore(t *testing.T) {
	f := newFixture(Options{})
	created, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), created.ID, "l1", nil)
	require.NoError(t, err)

	f.generator.questions = []Question{
		{ID: uuid.New(), Type: TypeFillInBlank, Text: "harder", CorrectAnswers: []string{"x"}},
		{ID: uuid.New(), Type: TypeFillInBlank, Text: "harder2", CorrectAnswers: []string{"y"}},
	}

	result, err := f.svc.Regenerate(context.Background(), created.ID, "l1", DifficultyHarder)
	require.NoError(t, err)

	assert.Len(t, result.Questions, 2)
	assert.Equal(t, 2, result.TotalQuestions)
	assert.Nil(t, result.Score)
	assert.Empty(t, result.WrongAnswers)
}

func TestRegenerateRequiresTranscript(t *testing.T) {
	f := newFixture(Options{})
	f.transcripts.text = ""
	created, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	_, err = f.svc.Regenerate(context.Background(), created.ID, "l1", DifficultyNormal)

	assert.ErrorIs(t, err, ErrTranscriptMissing)
}

func TestListRequiresLearnerID(t *testing.T) {
	f := newFixture(Options{})
	_, err := f.svc.Create(context.Background(), CreateRequest{LearnerID: "l1", VideoURL: videoURL})
	require.NoError(t, err)

	quizzes, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, quizzes)

	quizzes, err = f.svc.List(context.Background(), "l1")
	require.NoError(t, err)
	assert.Len(t, quizzes, 1)
}
