package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryPrewarmStore struct {
	candidates []Video
	preps      map[int64]*Preparation
	listErr    error
}

func newMemoryPrewarmStore(candidates ...Video) *memoryPrewarmStore {
	return &memoryPrewarmStore{candidates: candidates, preps: map[int64]*Preparation{}}
}

func (s *memoryPrewarmStore) FindNeedingEmbeddings(_ context.Context, limit int) ([]Video, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	if len(s.candidates) > limit {
		return s.candidates[:limit], nil
	}
	return s.candidates, nil
}

func (s *memoryPrewarmStore) GetPreparation(_ context.Context, id int64) (*Preparation, error) {
	if p, ok := s.preps[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, nil
}

func (s *memoryPrewarmStore) SavePreparation(_ context.Context, p *Preparation) error {
	copied := *p
	s.preps[p.CatalogVideoID] = &copied
	return nil
}

type stubTranscripts struct {
	texts map[string]string
	errs  map[string]error
}

func (s *stubTranscripts) Fetch(_ context.Context, url string) (string, error) {
	if err := s.errs[url]; err != nil {
		return "", err
	}
	return s.texts[url], nil
}

type stubIndexer struct {
	counts map[string]int
	errs   map[string]error
}

func (s *stubIndexer) IndexText(_ context.Context, ownerID, _ string) (int, error) {
	if err := s.errs[ownerID]; err != nil {
		return 0, err
	}
	return s.counts[ownerID], nil
}

func TestPrewarmMarksVideoReady(t *testing.T) {
	v := Video{ID: 1, VideoID: "abc", VideoURL: "https://youtu.be/abc"}
	store := newMemoryPrewarmStore(v)
	transcripts := &stubTranscripts{texts: map[string]string{v.VideoURL: "words"}}
	index := &stubIndexer{counts: map[string]int{"video:abc": 4}}
	p := NewPrewarmer(store, transcripts, index, 10, zerolog.Nop())

	require.NoError(t, p.Prewarm(context.Background(), v))

	prep := store.preps[1]
	require.NotNil(t, prep)
	assert.True(t, prep.TranscriptReady)
	assert.True(t, prep.EmbeddingsReady)
	assert.Equal(t, 4, prep.ChunkCount)
	assert.Equal(t, "words", prep.Transcript)
	assert.NotNil(t, prep.PreparedAt)
	assert.Empty(t, prep.LastError)
}

func TestPrewarmRecordsFetchFailure(t *testing.T) {
	v := Video{ID: 1, VideoID: "abc", VideoURL: "https://youtu.be/abc"}
	store := newMemoryPrewarmStore(v)
	transcripts := &stubTranscripts{errs: map[string]error{v.VideoURL: errors.New("no captions")}}
	p := NewPrewarmer(store, transcripts, &stubIndexer{}, 10, zerolog.Nop())

	err := p.Prewarm(context.Background(), v)
	assert.Error(t, err)

	prep := store.preps[1]
	require.NotNil(t, prep)
	assert.False(t, prep.TranscriptReady)
	assert.Contains(t, prep.LastError, "no captions")
}

func TestPrewarmKeepsTranscriptWhenEmbeddingFails(t *testing.T) {
	v := Video{ID: 1, VideoID: "abc", VideoURL: "https://youtu.be/abc"}
	store := newMemoryPrewarmStore(v)
	transcripts := &stubTranscripts{texts: map[string]string{v.VideoURL: "words"}}
	index := &stubIndexer{errs: map[string]error{"video:abc": errors.New("embed down")}}
	p := NewPrewarmer(store, transcripts, index, 10, zerolog.Nop())

	err := p.Prewarm(context.Background(), v)
	assert.Error(t, err)

	prep := store.preps[1]
	require.NotNil(t, prep)
	assert.True(t, prep.TranscriptReady)
	assert.Equal(t, "words", prep.Transcript)
	assert.False(t, prep.EmbeddingsReady)
	assert.Contains(t, prep.LastError, "embed down")
}

func TestRunIsolatesPerVideoFailures(t *testing.T) {
	ok := Video{ID: 1, VideoID: "good", VideoURL: "https://youtu.be/good"}
	bad := Video{ID: 2, VideoID: "bad", VideoURL: "https://youtu.be/bad"}
	store := newMemoryPrewarmStore(bad, ok)
	transcripts := &stubTranscripts{
		texts: map[string]string{ok.VideoURL: "fine"},
		errs:  map[string]error{bad.VideoURL: errors.New("blocked")},
	}
	index := &stubIndexer{counts: map[string]int{"video:good": 2}}
	p := NewPrewarmer(store, transcripts, index, 10, zerolog.Nop())

	// The batch itself succeeds even though one candidate failed.
	require.NoError(t, p.Run(context.Background()))

	assert.True(t, store.preps[1].EmbeddingsReady)
	assert.False(t, store.preps[2].TranscriptReady)
	assert.NotEmpty(t, store.preps[2].LastError)
}

func TestRunHonorsBatchLimit(t *testing.T) {
	videos := []Video{
		{ID: 1, VideoID: "a", VideoURL: "u1"},
		{ID: 2, VideoID: "b", VideoURL: "u2"},
		{ID: 3, VideoID: "c", VideoURL: "u3"},
	}
	store := newMemoryPrewarmStore(videos...)
	transcripts := &stubTranscripts{texts: map[string]string{"u1": "t", "u2": "t", "u3": "t"}}
	index := &stubIndexer{counts: map[string]int{}}
	p := NewPrewarmer(store, transcripts, index, 2, zerolog.Nop())

	require.NoError(t, p.Run(context.Background()))

	assert.Len(t, store.preps, 2)
}
