package usecase

import (
	"fmt"
	"strings"
	"text/template"

	"ragpipe/internal/domain"
	"ragpipe/internal/port"
)

// NoContextMarker replaces the context block when retrieval finds
// nothing, so the model is told explicitly that it has no grounding.
const NoContextMarker = "No relevant context was found in the knowledge base."

// AnswerUseCase runs one question through the full pipeline:
// embed the question, retrieve the top-k fragments, compose the
// grounded prompt, generate, and parse the reply. Each call is
// self-contained; no state is carried between questions and no stage
// is retried internally.
type AnswerUseCase struct {
	index     port.VectorIndex
	embedder  port.Embedder
	generator port.Generator
	template  *template.Template
	genOpts   port.GenerateOptions
}

type promptData struct {
	Context  string
	Question string
}

// NewAnswerUseCase creates the pipeline. The template must reference
// {{.Context}} and {{.Question}}; it is parsed once, up front.
func NewAnswerUseCase(
	index port.VectorIndex,
	embedder port.Embedder,
	generator port.Generator,
	templateText string,
	genOpts port.GenerateOptions,
) (*AnswerUseCase, error) {
	tmpl, err := template.New("prompt").Parse(templateText)
	if err != nil {
		return nil, &domain.ConfigError{Field: "prompt.template", Reason: err.Error()}
	}

	return &AnswerUseCase{
		index:     index,
		embedder:  embedder,
		generator: generator,
		template:  tmpl,
		genOpts:   genOpts,
	}, nil
}

// Answer produces a grounded answer with the fragments it was grounded
// on, in retrieval order.
func (u *AnswerUseCase) Answer(question string, k int) (domain.AnswerResult, error) {
	if strings.TrimSpace(question) == "" {
		return domain.AnswerResult{}, &domain.ConfigError{Field: "question", Reason: "must not be empty"}
	}
	if k <= 0 {
		return domain.AnswerResult{}, &domain.ConfigError{Field: "k", Reason: "must be positive"}
	}

	// Embed.
	vectors, err := u.embedder.Embed([]string{question})
	if err != nil {
		return domain.AnswerResult{}, stageErr(domain.StageEmbedding, err)
	}
	if len(vectors) != 1 {
		return domain.AnswerResult{}, stageErr(domain.StageEmbedding,
			fmt.Errorf("embedder returned %d vectors for one input", len(vectors)))
	}
	queryVector := vectors[0]
	if stats := u.index.Stats(); stats.Dimension > 0 && len(queryVector) != stats.Dimension {
		return domain.AnswerResult{}, stageErr(domain.StageEmbedding,
			fmt.Errorf("%w: index expects %d, embedder produced %d",
				domain.ErrDimensionMismatch, stats.Dimension, len(queryVector)))
	}

	// Retrieve. An empty index is a degraded path, not a failure.
	results, err := u.index.Search(queryVector, k)
	if err != nil {
		return domain.AnswerResult{}, stageErr(domain.StageRetrieving, err)
	}

	// Compose.
	prompt, err := u.compose(question, results)
	if err != nil {
		return domain.AnswerResult{}, stageErr(domain.StageComposing, err)
	}

	// Generate.
	raw, err := u.generator.Generate(prompt, u.genOpts)
	if err != nil {
		return domain.AnswerResult{}, stageErr(domain.StageGenerating, err)
	}
	if strings.TrimSpace(raw) == "" {
		return domain.AnswerResult{}, stageErr(domain.StageGenerating, domain.ErrEmptyResponse)
	}

	// Parse.
	sources := make([]domain.Fragment, len(results))
	for i, r := range results {
		sources[i] = r.Record.Fragment
	}

	return domain.AnswerResult{
		Text:    parseResponse(raw),
		Sources: sources,
	}, nil
}

// Query is the plain variant: the sources are still computed
// internally but omitted from the result.
func (u *AnswerUseCase) Query(question string, k int) (string, error) {
	result, err := u.Answer(question, k)
	if err != nil {
		return "", err
	}
	return result.Text, nil
}

// compose fills the prompt template with the retrieved fragments, in
// retrieval order, joined by blank lines.
func (u *AnswerUseCase) compose(question string, results []domain.ScoredRecord) (string, error) {
	var contextBlock string
	if len(results) == 0 {
		contextBlock = NoContextMarker
	} else {
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = r.Record.Fragment.Text
		}
		contextBlock = strings.Join(parts, "\n\n")
	}

	var sb strings.Builder
	err := u.template.Execute(&sb, promptData{
		Context:  contextBlock,
		Question: question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt template: %w", err)
	}
	return sb.String(), nil
}

// parseResponse extracts plain text from a raw model reply, stripping
// surrounding whitespace and a whole-reply markdown fence if present.
func parseResponse(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") && strings.HasSuffix(text, "```") {
		body := strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")
		if i := strings.IndexByte(body, '\n'); i >= 0 {
			body = body[i+1:]
		}
		text = strings.TrimSpace(body)
	}

	return text
}

func stageErr(stage domain.Stage, err error) error {
	return &domain.PipelineError{Stage: stage, Err: err}
}
