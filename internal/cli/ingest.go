package cli

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"ragpipe/internal/adapter/fs"
	"ragpipe/internal/adapter/splitter"
	"ragpipe/internal/usecase"
)

var ingestClear bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Split, embed, and index documents",
	Long: `Walk a directory for documents matching the configured include
patterns, split them into overlapping fragments, embed each fragment,
and add the vectors to the persisted index.

Examples:
  ragpipe ingest ./docs
  ragpipe ingest ./docs --replace`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().BoolVar(&ingestClear, "replace", false, "clear the index before ingesting")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) == 1 {
		path = args[0]
	}

	split, err := splitter.New(cfg.Split.ChunkSize, cfg.Split.ChunkOverlap, cfg.Split.Separators)
	if err != nil {
		return err
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	ix, st, err := openIndex(rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	if ingestClear {
		ix.Clear()
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	files, err := walker.Walk(path)
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", path, err)
	}
	if len(files) == 0 {
		fmt.Println("No matching documents found.")
		return nil
	}

	docs := make([]usecase.Document, 0, len(files))
	for _, file := range files {
		content, err := fs.ReadFile(file.Path)
		if err != nil {
			fmt.Printf("skipping %s: %v\n", file.RelPath, err)
			continue
		}
		docs = append(docs, usecase.Document{
			SourceID: file.RelPath,
			Text:     content,
		})
	}

	bar := progressbar.NewOptions(len(docs),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	ingestUC := usecase.NewIngestUseCase(split, embedder, ix, cfg.Ingest.Workers)
	result := ingestUC.IngestAll(docs, func(done, total int) {
		bar.Set(done)
	})

	if err := saveIndex(ix, st); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	stats := ix.Stats()
	fmt.Printf("Indexed %d documents, %d fragments (%d total records, dimension %d)\n",
		result.Documents, result.Fragments, stats.Count, stats.Dimension)
	if result.HardSplits > 0 {
		fmt.Printf("%d fragments were hard-split at the chunk size boundary\n", result.HardSplits)
	}
	for _, e := range result.Errors {
		fmt.Printf("error: %s\n", e)
	}

	return nil
}
