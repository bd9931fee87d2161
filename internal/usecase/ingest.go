package usecase

import (
	"fmt"
	"sync"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// IngestUseCase turns documents into indexed vector records: split,
// embed in batches, insert. Splitting and embedding run in parallel
// across documents; inserts happen afterwards in document order, so
// repeated ingestion of the same corpus produces identical indexes.
type IngestUseCase struct {
	splitter port.Splitter
	embedder port.Embedder
	index    port.VectorIndex
	workers  int
}

func NewIngestUseCase(
	splitter port.Splitter,
	embedder port.Embedder,
	index port.VectorIndex,
	workers int,
) *IngestUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &IngestUseCase{
		splitter: splitter,
		embedder: embedder,
		index:    index,
		workers:  workers,
	}
}

// Document is one ingestion input.
type Document struct {
	SourceID string
	Text     string
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Documents  int
	Fragments  int
	HardSplits int
	Errors     []string
}

type docPayload struct {
	fragments []domain.Fragment
	vectors   [][]float32
	err       error
}

// IngestDocument splits, embeds, and inserts a single document.
// Returns the number of fragments indexed.
func (u *IngestUseCase) IngestDocument(sourceID, text string) (int, error) {
	payload := u.prepare(Document{SourceID: sourceID, Text: text})
	if payload.err != nil {
		return 0, payload.err
	}
	return u.insert(payload)
}

// IngestAll processes documents with a bounded worker pool. The
// progress callback, if set, is invoked after each document finishes
// its split+embed phase. Per-document failures are collected, not
// fatal.
func (u *IngestUseCase) IngestAll(docs []Document, progress func(done, total int)) *IngestResult {
	result := &IngestResult{}
	if len(docs) == 0 {
		return result
	}

	payloads := make([]docPayload, len(docs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	done := 0

	jobs := make(chan int)
	for w := 0; w < u.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				payloads[i] = u.prepare(docs[i])

				mu.Lock()
				done++
				if progress != nil {
					progress(done, len(docs))
				}
				mu.Unlock()
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// Insert in document order for reproducible record ids.
	for i, payload := range payloads {
		if payload.err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", docs[i].SourceID, payload.err))
			continue
		}

		count, err := u.insert(payload)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", docs[i].SourceID, err))
			continue
		}

		result.Documents++
		result.Fragments += count
		for _, frag := range payload.fragments {
			if frag.HardSplit {
				result.HardSplits++
			}
		}
	}

	return result
}

// prepare splits and embeds one document. Pure with respect to the
// index, so it is safe to run concurrently.
func (u *IngestUseCase) prepare(doc Document) docPayload {
	fragments, err := u.splitter.Split(doc.Text, doc.SourceID)
	if err != nil {
		return docPayload{err: fmt.Errorf("split failed: %w", err)}
	}
	if len(fragments) == 0 {
		return docPayload{}
	}

	texts := make([]string, len(fragments))
	for i, frag := range fragments {
		texts[i] = frag.Text
	}

	vectors, err := u.embedder.Embed(texts)
	if err != nil {
		return docPayload{err: fmt.Errorf("embedding failed: %w", err)}
	}
	if len(vectors) != len(texts) {
		return docPayload{err: fmt.Errorf("embedder returned %d vectors for %d fragments", len(vectors), len(texts))}
	}

	return docPayload{fragments: fragments, vectors: vectors}
}

func (u *IngestUseCase) insert(payload docPayload) (int, error) {
	for i, frag := range payload.fragments {
		if _, err := u.index.Insert(frag, payload.vectors[i]); err != nil {
			return i, fmt.Errorf("insert failed: %w", err)
		}
	}
	return len(payload.fragments), nil
}
