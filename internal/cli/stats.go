package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all records from the index",
	Long: `Remove every record from the persisted index. The vector
dimension stays fixed, so later inserts must still match it.`,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ix, st, err := openIndex(rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	stats := ix.Stats()
	fmt.Printf("Records:   %d\n", stats.Count)
	fmt.Printf("Dimension: %d\n", stats.Dimension)

	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ix, st, err := openIndex(rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	before := ix.Stats().Count
	ix.Clear()
	if err := saveIndex(ix, st); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	fmt.Printf("Removed %d records.\n", before)
	return nil
}
