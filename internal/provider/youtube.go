package provider

import (
	"context"
	"fmt"
	"strings"

	ytapi "github.com/hightemp/youtube-transcript-api-go/api"
	yt "github.com/kkdai/youtube/v2"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/transcript"
)

// YouTubeTranscripts fetches caption tracks via the transcript API.
type YouTubeTranscripts struct {
	api    *ytapi.YouTubeTranscriptApi
	langs  []string
	logger zerolog.Logger
}

func NewYouTubeTranscripts(logger zerolog.Logger) *YouTubeTranscripts {
	return &YouTubeTranscripts{
		api:    ytapi.NewYouTubeTranscriptApi(),
		langs:  []string{"en", "en-US", "en-GB"},
		logger: logger,
	}
}

// FetchTranscript resolves the video id and joins the caption entries into
// one plain-text transcript. Preferred languages are tried first, then any
// available track.
func (s *YouTubeTranscripts) FetchTranscript(_ context.Context, videoURL string) (string, error) {
	videoID := transcript.ExtractVideoID(videoURL)
	if videoID == "" {
		return "", fmt.Errorf("%w: cannot extract video id from %s", ErrFetchFailed, videoURL)
	}

	track, err := s.api.GetTranscript(videoID, s.langs)
	if err != nil {
		track, err = s.api.GetTranscript(videoID, nil)
		if err != nil {
			return "", fmt.Errorf("%w: no subtitles available for %s: %v", ErrFetchFailed, videoID, err)
		}
	}
	if len(track.Entries) == 0 {
		return "", fmt.Errorf("%w: subtitle track is empty for %s", ErrFetchFailed, videoID)
	}

	var b strings.Builder
	for _, entry := range track.Entries {
		text := strings.TrimSpace(entry.Text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString(" ")
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" {
		return "", fmt.Errorf("%w: subtitle text resolved to empty content for %s", ErrFetchFailed, videoID)
	}
	s.logger.Debug().Str("video_id", videoID).Int("chars", len(cleaned)).Msg("transcript fetched")
	return cleaned, nil
}

// YouTubeMetadata answers duration and title lookups via the YouTube
// player response.
type YouTubeMetadata struct {
	client *yt.Client
	logger zerolog.Logger
}

func NewYouTubeMetadata(logger zerolog.Logger) *YouTubeMetadata {
	return &YouTubeMetadata{client: &yt.Client{}, logger: logger}
}

func (s *YouTubeMetadata) DurationSeconds(ctx context.Context, videoURL string) int64 {
	video, err := s.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", videoURL).Msg("duration lookup failed")
		return -1
	}
	return int64(video.Duration.Seconds())
}

func (s *YouTubeMetadata) Title(ctx context.Context, videoURL string) string {
	video, err := s.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", videoURL).Msg("title lookup failed")
		return ""
	}
	return strings.TrimSpace(video.Title)
}
