package usecase

import (
	"errors"
	"strings"
	"testing"

	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/memindex"
	"ragpipe/internal/adapter/splitter"
)

func newTestSplitter(t *testing.T, chunkSize, overlap int) *splitter.RecursiveSplitter {
	t.Helper()
	s, err := splitter.New(chunkSize, overlap, nil)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestIngestDocument(t *testing.T) {
	ix := memindex.New()
	uc := NewIngestUseCase(newTestSplitter(t, 40, 10), embedding.NewMockEmbedder(8), ix, 1)

	text := strings.Repeat("Some sentence about the system. ", 10)
	count, err := uc.IngestDocument("docs/a.txt", text)
	if err != nil {
		t.Fatal(err)
	}
	if count < 2 {
		t.Fatalf("expected multiple fragments, got %d", count)
	}

	stats := ix.Stats()
	if stats.Count != count {
		t.Errorf("index count %d != ingested %d", stats.Count, count)
	}
	if stats.Dimension != 8 {
		t.Errorf("expected dimension 8, got %d", stats.Dimension)
	}
}

func TestIngestDocumentEmpty(t *testing.T) {
	ix := memindex.New()
	uc := NewIngestUseCase(newTestSplitter(t, 40, 10), embedding.NewMockEmbedder(8), ix, 1)

	count, err := uc.IngestDocument("docs/empty.txt", "   \n\n ")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected 0 fragments, got %d", count)
	}
	if ix.Stats().Count != 0 {
		t.Error("empty document changed the index")
	}
}

func TestIngestAllDeterministicOrder(t *testing.T) {
	docs := []Document{
		{SourceID: "a.txt", Text: strings.Repeat("Content of the first document. ", 8)},
		{SourceID: "b.txt", Text: strings.Repeat("Content of the second document. ", 8)},
		{SourceID: "c.txt", Text: strings.Repeat("Content of the third document. ", 8)},
	}

	run := func(workers int) []string {
		ix := memindex.New()
		uc := NewIngestUseCase(newTestSplitter(t, 50, 10), embedding.NewMockEmbedder(8), ix, workers)
		result := uc.IngestAll(docs, nil)
		if len(result.Errors) != 0 {
			t.Fatalf("unexpected errors: %v", result.Errors)
		}

		var order []string
		for _, rec := range ix.Records() {
			order = append(order, rec.Fragment.SourceID)
		}
		return order
	}

	sequential := run(1)
	parallel := run(4)

	if len(sequential) != len(parallel) {
		t.Fatalf("record counts differ: %d vs %d", len(sequential), len(parallel))
	}
	for i := range sequential {
		if sequential[i] != parallel[i] {
			t.Fatalf("record order differs at %d: %s vs %s", i, sequential[i], parallel[i])
		}
	}
}

func TestIngestAllProgress(t *testing.T) {
	docs := []Document{
		{SourceID: "a.txt", Text: "alpha"},
		{SourceID: "b.txt", Text: "beta"},
	}

	ix := memindex.New()
	uc := NewIngestUseCase(newTestSplitter(t, 100, 0), embedding.NewMockEmbedder(8), ix, 2)

	var calls int
	var lastDone int
	result := uc.IngestAll(docs, func(done, total int) {
		calls++
		lastDone = done
		if total != 2 {
			t.Errorf("expected total 2, got %d", total)
		}
	})

	if calls != 2 {
		t.Errorf("expected 2 progress calls, got %d", calls)
	}
	if lastDone != 2 {
		t.Errorf("expected final done=2, got %d", lastDone)
	}
	if result.Documents != 2 || result.Fragments != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

type flakyEmbedder struct {
	failOn string
}

func (e flakyEmbedder) Embed(texts []string) ([][]float32, error) {
	for _, text := range texts {
		if strings.Contains(text, e.failOn) {
			return nil, errors.New("provider rejected input")
		}
	}
	return embedding.NewMockEmbedder(8).Embed(texts)
}

func (flakyEmbedder) Dimension() int    { return 8 }
func (flakyEmbedder) ModelName() string { return "flaky" }

func TestIngestAllCollectsPerDocumentErrors(t *testing.T) {
	docs := []Document{
		{SourceID: "good.txt", Text: "fine content"},
		{SourceID: "bad.txt", Text: "poison content"},
		{SourceID: "also-good.txt", Text: "more fine content"},
	}

	ix := memindex.New()
	uc := NewIngestUseCase(newTestSplitter(t, 100, 0), flakyEmbedder{failOn: "poison"}, ix, 2)

	result := uc.IngestAll(docs, nil)

	if result.Documents != 2 {
		t.Errorf("expected 2 ingested documents, got %d", result.Documents)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(result.Errors), result.Errors)
	}
	if !strings.Contains(result.Errors[0], "bad.txt") {
		t.Errorf("error not attributed to the failing document: %s", result.Errors[0])
	}
	if ix.Stats().Count != 2 {
		t.Errorf("expected 2 records, got %d", ix.Stats().Count)
	}
}

func TestIngestAllCountsHardSplits(t *testing.T) {
	docs := []Document{
		{SourceID: "long.txt", Text: "word " + strings.Repeat("y", 120)},
	}

	ix := memindex.New()
	// No empty separator: the long run must be hard-split.
	s, err := splitter.New(30, 5, []string{" "})
	if err != nil {
		t.Fatal(err)
	}
	uc := NewIngestUseCase(s, embedding.NewMockEmbedder(8), ix, 1)

	result := uc.IngestAll(docs, nil)
	if result.HardSplits == 0 {
		t.Error("expected hard-split fragments to be counted")
	}
}
