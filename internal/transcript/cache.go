package transcript

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// provider is the upstream transcript source.
type provider interface {
	FetchTranscript(ctx context.Context, videoURL string) (string, error)
}

// Cache deduplicates concurrent fetches of the same video's transcript and
// persists the result as one file per cache key. Fetches for distinct keys
// never serialize against each other.
type Cache struct {
	dir      string
	provider provider
	group    singleflight.Group
	logger   zerolog.Logger
}

func NewCache(dir string, provider provider, logger zerolog.Logger) *Cache {
	return &Cache{dir: dir, provider: provider, logger: logger}
}

// Fetch returns the cached transcript for videoURL, calling the provider at
// most once per key across concurrent callers. Provider failures propagate
// and cache nothing.
func (c *Cache) Fetch(ctx context.Context, videoURL string) (string, error) {
	key := CacheKey(videoURL)

	v, err, _ := c.group.Do(key, func() (any, error) {
		path := filepath.Join(c.dir, "transcript-"+key+".txt")

		if data, err := os.ReadFile(path); err == nil {
			c.logger.Info().Str("key", key).Str("path", path).Msg("transcript cache hit")
			return string(data), nil
		}

		c.logger.Info().Str("key", key).Str("url", videoURL).Msg("transcript cache miss, fetching")
		text, err := c.provider.FetchTranscript(ctx, videoURL)
		if err != nil {
			return nil, err
		}

		if err := os.MkdirAll(c.dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir %s: %w", c.dir, err)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return nil, fmt.Errorf("save transcript to %s: %w", path, err)
		}
		c.logger.Info().Str("key", key).Int("chars", len(text)).Msg("transcript saved")
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}
