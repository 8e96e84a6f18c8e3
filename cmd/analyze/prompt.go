package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"notes-backend/internal/llm"
)

func newPromptCmd() *cobra.Command {
	var inFile string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the rendered analysis prompt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			notes, err := readNotes(cmd.Context(), inFile, cmd.InOrStdin())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), llm.RenderPrompt(notes))
			return err
		},
	}
	cmd.Flags().StringVarP(&inFile, "in", "i", "", "Path to notes file (txt, md, pdf, docx); stdin when empty")
	return cmd
}
