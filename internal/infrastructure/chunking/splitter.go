package chunking

import (
	"strings"
	"unicode"
)

// Splitter cuts guide text into overlapping windows measured in runes.
// Cuts prefer paragraph, line and sentence boundaries: guides are prose,
// and an embedding of half a sentence matches nothing useful.
type Splitter struct {
	ChunkSize int
	Overlap   int
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 900
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Splitter{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.ChunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			out = append(out, chunk)
		}
		if end == len(runes) {
			break
		}

		next := end - s.Overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// breakPoint moves the cut left to the nearest boundary, searching only the
// last quarter of the window so chunks stay near ChunkSize. Preference
// order: blank line, line break, sentence end. Notes in the corpus mix
// English and Japanese, so '。' terminates a sentence without a trailing
// space.
func breakPoint(runes []rune, start, end int) int {
	floor := end - (end-start)/4
	if floor < start {
		floor = start
	}

	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' && runes[i-1] == '\n' {
			return i
		}
	}
	for i := end - 1; i > floor; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '。', '！', '？':
			return i + 1
		case '.', '!', '?':
			if i+1 < end && unicode.IsSpace(runes[i+1]) {
				return i + 1
			}
		}
	}
	return end
}
