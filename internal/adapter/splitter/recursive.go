package splitter

import (
	"strings"

	"ragpipe/internal/domain"
)

// DefaultSeparators is the standard hierarchy: paragraph break, line
// break, word break, then split anywhere.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveSplitter divides text into fragments of at most chunkSize
// characters with roughly overlap characters shared between
// consecutive fragments, preferring the earliest separator in the
// hierarchy that produces small enough pieces.
type RecursiveSplitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// New creates a splitter. Invalid size/overlap combinations are
// rejected here, before any document is processed.
func New(chunkSize, overlap int, separators []string) (*RecursiveSplitter, error) {
	if chunkSize <= 0 {
		return nil, &domain.ConfigError{Field: "chunk_size", Reason: "must be positive"}
	}
	if overlap < 0 {
		return nil, &domain.ConfigError{Field: "chunk_overlap", Reason: "must not be negative"}
	}
	if overlap >= chunkSize {
		return nil, &domain.ConfigError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if len(separators) == 0 {
		separators = DefaultSeparators
	}
	seps := make([]string, len(separators))
	copy(seps, separators)

	return &RecursiveSplitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: seps,
	}, nil
}

// Split divides text into an ordered sequence of fragments. Offsets
// are character (rune) positions into the original text. Output is
// identical across runs for identical input.
func (s *RecursiveSplitter) Split(text, sourceID string) ([]domain.Fragment, error) {
	runes := []rune(text)
	return s.split(runes, 0, s.separators, sourceID), nil
}

func (s *RecursiveSplitter) split(runes []rune, base int, seps []string, sourceID string) []domain.Fragment {
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= s.chunkSize {
		return s.emit(nil, runes, base, sourceID, false)
	}

	for len(seps) > 0 && seps[0] != "" {
		sep := seps[0]
		bounds := segmentEnds(runes, []rune(sep))
		if len(bounds) > 1 {
			return s.merge(runes, base, bounds, seps[1:], sourceID)
		}
		// Separator does not occur in this text, try the next one.
		seps = seps[1:]
	}

	// Empty separator (or an exhausted hierarchy): no natural
	// breakpoint fits, cut at the chunk size boundary and flag it.
	return s.windows(runes, base, sourceID)
}

// merge greedily accumulates consecutive segments into fragments of at
// most chunkSize characters, stepping back overlap characters after
// each emitted fragment. Segments that alone exceed chunkSize recurse
// into the next separator level.
func (s *RecursiveSplitter) merge(runes []rune, base int, bounds []int, rest []string, sourceID string) []domain.Fragment {
	var frags []domain.Fragment

	start := 0
	for start < len(runes) {
		end := -1
		oversized := -1
		for _, b := range bounds {
			if b <= start {
				continue
			}
			if b-start <= s.chunkSize {
				end = b
				continue
			}
			if end == -1 {
				oversized = b
			}
			break
		}

		if end == -1 {
			// The single segment starting here is larger than
			// chunkSize on its own.
			segEnd := oversized
			if segEnd == -1 {
				segEnd = len(runes)
			}
			frags = append(frags, s.split(runes[start:segEnd], base+start, rest, sourceID)...)
			if segEnd >= len(runes) {
				break
			}
			start = s.stepBack(segEnd, start)
			continue
		}

		frags = s.emit(frags, runes[start:end], base+start, sourceID, false)
		if end >= len(runes) {
			break
		}
		start = s.stepBack(end, start)
	}

	return frags
}

// stepBack computes the next fragment start: overlap characters before
// end, but never at or before the previous start so the window always
// advances.
func (s *RecursiveSplitter) stepBack(end, prevStart int) int {
	next := end - s.overlap
	if next <= prevStart {
		next = end
	}
	return next
}

// windows hard-splits text at the chunkSize boundary with overlap
// stepping. These fragments carry the hard-split marker.
func (s *RecursiveSplitter) windows(runes []rune, base int, sourceID string) []domain.Fragment {
	var frags []domain.Fragment

	step := s.chunkSize - s.overlap
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		frags = s.emit(frags, runes[start:end], base+start, sourceID, true)
		if end == len(runes) {
			break
		}
	}

	return frags
}

// emit appends a fragment unless its text is blank after trimming.
func (s *RecursiveSplitter) emit(frags []domain.Fragment, runes []rune, offset int, sourceID string, hardSplit bool) []domain.Fragment {
	text := string(runes)
	if strings.TrimSpace(text) == "" {
		return frags
	}
	return append(frags, domain.Fragment{
		Text:      text,
		SourceID:  sourceID,
		Offset:    offset,
		HardSplit: hardSplit,
	})
}

// segmentEnds returns the end position of every segment produced by
// splitting runes at sep, with each separator attached to the segment
// before it. The final position is always len(runes).
func segmentEnds(runes, sep []rune) []int {
	var bounds []int
	for i := 0; i+len(sep) <= len(runes); i++ {
		if matchAt(runes, sep, i) {
			bounds = append(bounds, i+len(sep))
			i += len(sep) - 1
		}
	}
	if len(bounds) == 0 || bounds[len(bounds)-1] != len(runes) {
		bounds = append(bounds, len(runes))
	}
	return bounds
}

func matchAt(runes, sep []rune, at int) bool {
	for j := range sep {
		if runes[at+j] != sep[j] {
			return false
		}
	}
	return true
}
