package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var chatSources bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive question loop",
	Long: `Read questions from stdin and answer each one against the current
index. Every question is answered independently; no conversation
history is carried between them.

Type "exit" or press Ctrl-D to leave.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatSources, "sources", false, "show sources after each answer")
}

func runChat(cmd *cobra.Command, args []string) error {
	answerUC, st, err := buildPipeline()
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Println("ragpipe chat — ask a question, or type \"exit\" to leave.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			return nil
		}

		result, err := answerUC.Answer(question, cfg.Retrieve.TopK)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}

		fmt.Println(result.Text)
		if chatSources {
			printSources(result.Sources)
		}
	}
}
