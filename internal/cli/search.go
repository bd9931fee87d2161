package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	searchQuery string
	searchTopK  int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Inspect raw retrieval results",
	Long: `Embed a query and print the top-k most similar fragments with
their scores, without invoking the language model.

Examples:
  ragpipe search -q "connection pooling"
  ragpipe search -q "defaults" --top-k 10 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	searchCmd.MarkFlagRequired("query")
}

type searchResult struct {
	SourceID string  `json:"source_id"`
	Offset   int     `json:"offset"`
	Score    float64 `json:"score"`
	Text     string  `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	ix, st, err := openIndex(rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	topK := cfg.Retrieve.TopK
	if searchTopK > 0 {
		topK = searchTopK
	}

	vectors, err := embedder.Embed([]string{searchQuery})
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("embedder returned %d vectors for one input", len(vectors))
	}

	scored, err := ix.Search(vectors[0], topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results := make([]searchResult, len(scored))
	for i, s := range scored {
		results[i] = searchResult{
			SourceID: s.Record.Fragment.SourceID,
			Offset:   s.Record.Fragment.Offset,
			Score:    s.Score,
			Text:     s.Record.Fragment.Text,
		}
	}

	if searchJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results for: %s\n\n", len(results), searchQuery)
	for i, r := range results {
		fmt.Printf("--- [%d] %s @%d (score: %.4f) ---\n", i+1, r.SourceID, r.Offset, r.Score)
		text := r.Text
		if len(text) > 500 {
			text = text[:500] + "..."
		}
		fmt.Println(text)
		fmt.Println()
	}

	return nil
}
