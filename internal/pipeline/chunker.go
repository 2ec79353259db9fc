package pipeline

import "strings"

const (
	// DefaultWindowWords is the sliding-window size in words.
	DefaultWindowWords = 1000
	// DefaultOverlapWords is how many words consecutive windows share.
	DefaultOverlapWords = 200
)

// ChunkConfig controls the sliding-window chunker.
type ChunkConfig struct {
	Window  int
	Overlap int
}

// DefaultChunkConfig returns the production window settings.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Window:  DefaultWindowWords,
		Overlap: DefaultOverlapWords,
	}
}

// Segment is one window of extracted text.
type Segment struct {
	Index       int
	TotalChunks int
	WordCount   int
	Content     string
}

// SplitWords splits text on whitespace and applies a sliding window of
// cfg.Window words advancing by cfg.Window-cfg.Overlap. Window i covers
// words [i*step, i*step+window), clipped to the text length; emission
// stops once a window start reaches the word count. The non-overlapping
// regions of consecutive windows cover every word exactly once.
//
// Zero words in, zero segments out; no degenerate empty segment is
// emitted. TotalChunks on every segment is the emitted window count.
func SplitWords(text string, cfg ChunkConfig) []Segment {
	if cfg.Window <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.Window {
		cfg = DefaultChunkConfig()
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := cfg.Window - cfg.Overlap

	var segments []Segment
	for start := 0; start < len(words); start += step {
		end := start + cfg.Window
		if end > len(words) {
			end = len(words)
		}

		window := words[start:end]
		segments = append(segments, Segment{
			Index:     len(segments),
			WordCount: len(window),
			Content:   strings.Join(window, " "),
		})

		if end == len(words) {
			break
		}
	}

	for i := range segments {
		segments[i].TotalChunks = len(segments)
	}
	return segments
}
