package usecase

import (
	"errors"
	"strings"
	"testing"

	"ragpipe/internal/adapter/embedding"
	"ragpipe/internal/adapter/llm"
	"ragpipe/internal/adapter/memindex"
	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

const testTemplate = `Context:
{{.Context}}

Question: {{.Question}}

Answer:`

type failingEmbedder struct{}

func (failingEmbedder) Embed(texts []string) ([][]float32, error) {
	return nil, errors.New("provider unreachable")
}
func (failingEmbedder) Dimension() int    { return 4 }
func (failingEmbedder) ModelName() string { return "failing" }

type failingGenerator struct{}

func (failingGenerator) Generate(prompt string, opts port.GenerateOptions) (string, error) {
	return "", errors.New("provider timeout")
}
func (failingGenerator) ModelName() string { return "failing" }

func newTestIndex(t *testing.T, embedder port.Embedder, texts ...string) *memindex.Index {
	t.Helper()
	ix := memindex.New()
	vectors, err := embedder.Embed(texts)
	if err != nil {
		t.Fatal(err)
	}
	for i, text := range texts {
		if _, err := ix.Insert(domain.Fragment{Text: text, SourceID: "doc1", Offset: i * 100}, vectors[i]); err != nil {
			t.Fatal(err)
		}
	}
	return ix
}

func TestAnswerGroundedInRetrievedFragments(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	ix := newTestIndex(t, embedder,
		"the capital of France is Paris",
		"the capital of Japan is Tokyo",
		"bananas are yellow",
	)
	generator := llm.NewMockGenerator("Paris.")

	uc, err := NewAnswerUseCase(ix, embedder, generator, testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := uc.Answer("the capital of France is Paris", 2)
	if err != nil {
		t.Fatal(err)
	}

	if result.Text != "Paris." {
		t.Errorf("unexpected answer: %q", result.Text)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(result.Sources))
	}
	// Mock embeddings are char-derived, so the identical text ranks first.
	if result.Sources[0].Text != "the capital of France is Paris" {
		t.Errorf("unexpected top source: %q", result.Sources[0].Text)
	}

	if len(generator.Prompts) != 1 {
		t.Fatalf("expected 1 generation call, got %d", len(generator.Prompts))
	}
	prompt := generator.Prompts[0]
	for _, src := range result.Sources {
		if !strings.Contains(prompt, src.Text) {
			t.Errorf("prompt missing source text %q", src.Text)
		}
	}
	if !strings.Contains(prompt, "Question: the capital of France is Paris") {
		t.Error("prompt missing the question")
	}
}

func TestAnswerEmptyIndexUsesNoContextMarker(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	generator := llm.NewMockGenerator("I do not have that information.")

	uc, err := NewAnswerUseCase(memindex.New(), embedder, generator, testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	result, err := uc.Answer("anything", 5)
	if err != nil {
		t.Fatalf("empty index must not fail the pipeline: %v", err)
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(result.Sources))
	}
	if !strings.Contains(generator.Prompts[0], NoContextMarker) {
		t.Error("prompt missing the no-context marker")
	}
}

func TestAnswerEmbeddingFailure(t *testing.T) {
	generator := llm.NewMockGenerator("unused")

	uc, err := NewAnswerUseCase(memindex.New(), failingEmbedder{}, generator, testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = uc.Answer("question", 3)
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != domain.StageEmbedding {
		t.Errorf("expected embedding stage, got %s", perr.Stage)
	}
	if len(generator.Prompts) != 0 {
		t.Error("generator invoked after embedding failure")
	}
}

func TestAnswerWrongDimensionEmbedding(t *testing.T) {
	ix := newTestIndex(t, embedding.NewMockEmbedder(8), "some indexed text")

	// The query embedder disagrees with the index dimension.
	uc, err := NewAnswerUseCase(ix, embedding.NewMockEmbedder(4), llm.NewMockGenerator("unused"), testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = uc.Answer("question", 3)
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != domain.StageEmbedding {
		t.Errorf("expected embedding stage, got %s", perr.Stage)
	}
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch cause, got %v", err)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	ix := newTestIndex(t, embedder, "context text")

	uc, err := NewAnswerUseCase(ix, embedder, failingGenerator{}, testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = uc.Answer("question", 1)
	var perr *domain.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != domain.StageGenerating {
		t.Errorf("expected generating stage, got %s", perr.Stage)
	}
}

func TestAnswerEmptyGeneration(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	ix := newTestIndex(t, embedder, "context text")

	uc, err := NewAnswerUseCase(ix, embedder, llm.NewMockGenerator("   "), testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	_, err = uc.Answer("question", 1)
	if !errors.Is(err, domain.ErrEmptyResponse) {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestAnswerRejectsBadArguments(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	uc, err := NewAnswerUseCase(memindex.New(), embedder, llm.NewMockGenerator("x"), testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	var cfgErr *domain.ConfigError
	if _, err := uc.Answer("question", 0); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for k=0, got %v", err)
	}
	if _, err := uc.Answer("  ", 3); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for blank question, got %v", err)
	}
}

func TestNewAnswerUseCaseRejectsBadTemplate(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	_, err := NewAnswerUseCase(memindex.New(), embedder, llm.NewMockGenerator("x"), "{{.Context", port.GenerateOptions{})
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for unparsable template, got %v", err)
	}
}

func TestQueryOmitsSources(t *testing.T) {
	embedder := embedding.NewMockEmbedder(8)
	ix := newTestIndex(t, embedder, "some context")

	uc, err := NewAnswerUseCase(ix, embedder, llm.NewMockGenerator("the answer"), testTemplate, port.GenerateOptions{})
	if err != nil {
		t.Fatal(err)
	}

	text, err := uc.Query("question", 1)
	if err != nil {
		t.Fatal(err)
	}
	if text != "the answer" {
		t.Errorf("unexpected answer: %q", text)
	}
}

func TestParseResponseStripsFence(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"plain answer", "plain answer"},
		{"  padded  ", "padded"},
		{"```\nfenced answer\n```", "fenced answer"},
		{"```text\nfenced with language\n```", "fenced with language"},
	}

	for _, tc := range cases {
		if got := parseResponse(tc.in); got != tc.want {
			t.Errorf("parseResponse(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
