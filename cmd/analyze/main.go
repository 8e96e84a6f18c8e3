// Command analyze runs the note analysis pipeline from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"notes-backend/internal/llm"
	openai "notes-backend/internal/llm/openai"
	"notes-backend/internal/shared/config"
)

// clientFactory builds the model client for the run command.
type clientFactory func(cfg config.Config, model string) (llm.Client, error)

func openAIClient(cfg config.Config, model string) (llm.Client, error) {
	return openai.NewClient(openai.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   model,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.OpenAITimeout,
	})
}

func newRootCmd(cfg config.Config, newClient clientFactory) *cobra.Command {
	root := &cobra.Command{
		Use:           "analyze",
		Short:         "Analyze meeting or consultation notes",
		Long:          "Renders the analysis prompt for a set of notes, or runs the full model pipeline and prints the stored result.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPromptCmd())
	root.AddCommand(newRunCmd(cfg, newClient))
	return root
}

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg, openAIClient).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
