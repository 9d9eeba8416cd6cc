package catalog

import "time"

// Video is a catalog row discovered by the external crawl job. The core
// only reads these.
type Video struct {
	ID              int64
	VideoID         string
	VideoURL        string
	Title           string
	ChannelTitle    string
	DurationSeconds int64
	Active          bool
	CreatedAt       time.Time
	RefreshedAt     *time.Time
}

// ChunkOwnerID returns the embedding-index owner key for the video.
func (v Video) ChunkOwnerID() string {
	return "video:" + v.VideoID
}

// Preparation records per-video prewarm state: the cached transcript plus
// readiness flags consumed by the interactive pipeline.
type Preparation struct {
	CatalogVideoID  int64
	Transcript      string
	TranscriptReady bool
	EmbeddingsReady bool
	ChunkCount      int
	PreparedAt      *time.Time
	LastError       string
}
