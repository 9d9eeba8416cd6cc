package transcript

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	watchPattern  = regexp.MustCompile(`[?&]v=([^&]+)`)
	shortPattern  = regexp.MustCompile(`youtu\.be/([^?&/]+)`)
	embedPattern  = regexp.MustCompile(`/embed/([^?&/]+)`)
	shortsPattern = regexp.MustCompile(`/shorts/([^?&/]+)`)
)

// ExtractVideoID pulls the canonical video id out of the common YouTube URL
// shapes (watch, youtu.be, embed, shorts). Returns "" when none matches.
func ExtractVideoID(videoURL string) string {
	if strings.TrimSpace(videoURL) == "" {
		return ""
	}
	for _, re := range []*regexp.Regexp{watchPattern, shortPattern, embedPattern, shortsPattern} {
		if m := re.FindStringSubmatch(videoURL); len(m) > 1 {
			return m[1]
		}
	}
	return ""
}

// CacheKey resolves the stable cache key for a video URL: the canonical
// video id when one can be extracted, else a SHA-1 hex of the full URL.
func CacheKey(videoURL string) string {
	if id := ExtractVideoID(videoURL); id != "" {
		return id
	}
	sum := sha1.Sum([]byte(videoURL))
	return hex.EncodeToString(sum[:])
}
