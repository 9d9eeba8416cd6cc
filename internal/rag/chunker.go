package rag

import "strings"

// minStep keeps the sliding window advancing even when the configured
// overlap is greater than or equal to the chunk size.
const minStep = 50

// ChunkText splits a transcript into overlapping windows. Whitespace runs
// are collapsed to single spaces before windowing; blank windows are
// discarded. Size and overlap are measured in runes so a window boundary
// never lands inside a multi-byte character. A transcript no longer than
// size yields exactly one chunk.
func ChunkText(text string, size, overlap int) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}
	runes := []rune(normalized)
	if len(runes) <= size {
		return []string{normalized}
	}

	step := size - overlap
	if step < minStep {
		step = minStep
	}

	var parts []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if part := string(runes[start:end]); strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
		if end == len(runes) {
			break
		}
	}
	return parts
}
