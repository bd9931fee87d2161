package port

import "ragpipe/internal/domain"

// VectorIndex stores fragment embeddings and answers exact top-k
// similarity queries. The first insert fixes the vector dimension for
// the life of the index. Search and Stats may run concurrently;
// mutations are exclusive.
type VectorIndex interface {
	// Insert appends a record and returns its assigned id.
	// Rejects vectors whose length differs from the fixed dimension.
	Insert(fragment domain.Fragment, vector []float32) (int64, error)

	// Search returns up to k records ranked by descending cosine
	// similarity, ties broken by ascending insertion order. An empty
	// index yields an empty result, not an error.
	Search(query []float32, k int) ([]domain.ScoredRecord, error)

	// Delete removes a record by id. Absent ids are a no-op.
	Delete(id int64)

	// Clear removes all records but keeps the fixed dimension.
	Clear()

	// Stats returns the current record count and dimension.
	Stats() domain.IndexStats
}
