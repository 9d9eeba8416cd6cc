package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractVideoID(t *testing.T) {
	cases := map[string]string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ":          "dQw4w9WgXcQ",
		"https://www.youtube.com/watch?list=PL123&v=abc123":    "abc123",
		"https://youtu.be/dQw4w9WgXcQ":                         "dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ?t=42":                    "dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ":            "dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/abcDEF123":             "abcDEF123",
		"https://example.com/video.mp4":                        "",
		"": "",
	}
	for url, want := range cases {
		assert.Equal(t, want, ExtractVideoID(url), url)
	}
}

func TestCacheKeyPrefersVideoID(t *testing.T) {
	assert.Equal(t, "dQw4w9WgXcQ", CacheKey("https://youtu.be/dQw4w9WgXcQ"))
}

func TestCacheKeyHashesUnrecognizedURLs(t *testing.T) {
	key := CacheKey("https://example.com/lecture")

	// SHA-1 hex of the full URL.
	assert.Len(t, key, 40)
	assert.Equal(t, key, CacheKey("https://example.com/lecture"))
	assert.NotEqual(t, key, CacheKey("https://example.com/other"))
}
