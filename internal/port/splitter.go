package port

import "ragpipe/internal/domain"

// Splitter divides a document's raw text into bounded, overlapping
// fragments. Implementations are deterministic: identical input
// produces byte-identical output.
type Splitter interface {
	Split(text, sourceID string) ([]domain.Fragment, error)
}
