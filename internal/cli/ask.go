package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragpipe/internal/adapter/store"
	"ragpipe/internal/domain"
	"ragpipe/internal/usecase"
)

var (
	askQuestion string
	askTopK     int
	askSources  bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask one grounded question",
	Long: `Embed the question, retrieve the most similar fragments, and
generate an answer grounded in them.

Examples:
  ragpipe ask -q "How is the service deployed?"
  ragpipe ask -q "What are the defaults?" --sources --top-k 3`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to answer (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of fragments to retrieve (default from config)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "show the fragments the answer is grounded on")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

type askOutput struct {
	Answer  string         `json:"answer"`
	Sources []sourceOutput `json:"sources,omitempty"`
}

type sourceOutput struct {
	SourceID string `json:"source_id"`
	Offset   int    `json:"offset"`
	Text     string `json:"text"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	answerUC, st, err := buildPipeline()
	if err != nil {
		return err
	}
	defer st.Close()

	topK := cfg.Retrieve.TopK
	if askTopK > 0 {
		topK = askTopK
	}

	result, err := answerUC.Answer(askQuestion, topK)
	if err != nil {
		return err
	}

	if askJSON {
		out := askOutput{Answer: result.Text}
		if askSources {
			out.Sources = sourcesOutput(result.Sources)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(result.Text)
	if askSources {
		printSources(result.Sources)
	}

	return nil
}

// buildPipeline wires the answer use case from config and the
// persisted index. The returned store must be closed by the caller.
func buildPipeline() (*usecase.AnswerUseCase, *store.SnapshotStore, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	generator, err := newGenerator(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	ix, st, err := openIndex(rootDir)
	if err != nil {
		return nil, nil, err
	}

	answerUC, err := usecase.NewAnswerUseCase(ix, embedder, generator, cfg.Prompt.Template, generateOptions(cfg))
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	return answerUC, st, nil
}

func sourcesOutput(fragments []domain.Fragment) []sourceOutput {
	out := make([]sourceOutput, len(fragments))
	for i, frag := range fragments {
		out[i] = sourceOutput{
			SourceID: frag.SourceID,
			Offset:   frag.Offset,
			Text:     frag.Text,
		}
	}
	return out
}

func printSources(fragments []domain.Fragment) {
	if len(fragments) == 0 {
		fmt.Println("\nSources: none (empty index)")
		return
	}
	fmt.Println("\nSources:")
	for i, frag := range fragments {
		fmt.Printf("  [%d] %s @%d\n", i+1, frag.SourceID, frag.Offset)
	}
}
