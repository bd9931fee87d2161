package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ragpipe/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "ragpipe",
	Short: "Retrieval-augmented generation over local documents",
	Long: `ragpipe ingests documents, splits them into overlapping fragments,
embeds the fragments, and answers questions grounded in the most
similar fragments.

Example usage:
  ragpipe ingest ./docs              # Split, embed, and index documents
  ragpipe ask -q "What is X?"        # Ask one grounded question
  ragpipe search -q "deployment"     # Inspect raw retrieval results
  ragpipe chat                       # Interactive question loop`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return cfg.Validate()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./ragpipe.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}
