package memindex

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ragpipe/internal/domain"
)

// Index is an in-memory vector index with exact brute-force cosine
// search. The first insert fixes the vector dimension; every later
// vector must match it. Records keep insertion order, which breaks
// score ties deterministically. Searches run read-shared; mutations
// take the write lock.
type Index struct {
	mu        sync.RWMutex
	records   []domain.VectorRecord
	dimension int
	nextID    int64
}

// New creates an empty index. The dimension is fixed by the first
// insert.
func New() *Index {
	return &Index{nextID: 1}
}

// Insert appends a record and returns its assigned id. O(1) amortized.
func (ix *Index) Insert(fragment domain.Fragment, vector []float32) (int64, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dimension == 0 {
		if len(vector) == 0 {
			return 0, fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
		}
		ix.dimension = len(vector)
	} else if len(vector) != ix.dimension {
		return 0, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, ix.dimension, len(vector))
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)

	id := ix.nextID
	ix.nextID++
	ix.records = append(ix.records, domain.VectorRecord{
		ID:       id,
		Vector:   vec,
		Fragment: fragment,
	})

	return id, nil
}

// Search returns up to k records ranked by descending cosine
// similarity to query, ties broken by ascending insertion order.
// Searching an empty index returns an empty result.
func (ix *Index) Search(query []float32, k int) ([]domain.ScoredRecord, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(ix.records) == 0 {
		return nil, nil
	}
	if len(query) != ix.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, ix.dimension, len(query))
	}

	scored := make([]domain.ScoredRecord, len(ix.records))
	for i, rec := range ix.records {
		scored[i] = domain.ScoredRecord{
			Record: rec,
			Score:  cosineSimilarity(query, rec.Vector),
		}
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

// Delete removes the record with the given id. Absent ids are a no-op.
func (ix *Index) Delete(id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for i, rec := range ix.records {
		if rec.ID == id {
			ix.records = append(ix.records[:i], ix.records[i+1:]...)
			return
		}
	}
}

// Clear removes all records. The fixed dimension is kept, so later
// inserts must still match it; ids are never reused.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.records = nil
}

// Stats returns the current record count and dimension.
func (ix *Index) Stats() domain.IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return domain.IndexStats{
		Count:     len(ix.records),
		Dimension: ix.dimension,
	}
}

// Records returns a copy of all records in insertion order, for
// snapshot persistence.
func (ix *Index) Records() []domain.VectorRecord {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]domain.VectorRecord, len(ix.records))
	copy(out, ix.records)
	return out
}

// Restore replaces the index contents from a snapshot. Records must be
// in insertion order with ascending ids; nextID continues after the
// highest restored id.
func (ix *Index) Restore(records []domain.VectorRecord, dimension int) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, rec := range records {
		if len(rec.Vector) != dimension {
			return fmt.Errorf("%w: record %d has %d, snapshot declares %d",
				domain.ErrDimensionMismatch, rec.ID, len(rec.Vector), dimension)
		}
	}

	ix.records = records
	ix.dimension = dimension
	ix.nextID = 1
	for _, rec := range records {
		if rec.ID >= ix.nextID {
			ix.nextID = rec.ID + 1
		}
	}
	return nil
}

// cosineSimilarity calculates the cosine similarity between two
// vectors. A zero vector on either side yields 0, not an error.
func cosineSimilarity(a, b []float32) float64 {
	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
