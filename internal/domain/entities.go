package domain

// Fragment is an immutable unit of text produced by the splitter.
type Fragment struct {
	Text     string
	SourceID string
	// Offset is the starting character position in the source document.
	Offset int
	// HardSplit marks fragments that had to be cut at the chunk size
	// boundary because no separator could divide them further.
	HardSplit bool
}

// VectorRecord pairs a fragment with its embedding. The ID is assigned
// by the index on insert and stays stable for the record's lifetime.
type VectorRecord struct {
	ID       int64
	Vector   []float32
	Fragment Fragment
}

// ScoredRecord is one search result: a stored record and its cosine
// similarity to the query vector, in [-1, 1].
type ScoredRecord struct {
	Record VectorRecord
	Score  float64
}

// IndexStats reports the current size and fixed dimension of an index.
// Dimension is 0 until the first insert.
type IndexStats struct {
	Count     int
	Dimension int
}

// AnswerResult is the output of one answer pipeline run.
type AnswerResult struct {
	Text    string
	Sources []Fragment
}
