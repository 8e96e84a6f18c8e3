package llm

import (
	_ "embed"
	"strings"
)

// notesPlaceholder marks where the user's notes are substituted.
const notesPlaceholder = "{{notes}}"

//go:embed prompts/analysis_v1.txt
var analysisPromptV1 string

// AnalysisPrompt returns the raw analysis prompt template.
func AnalysisPrompt() string {
	return analysisPromptV1
}

// RenderPrompt substitutes notes verbatim into the analysis prompt. The notes
// are never interpreted as a template, so braces or placeholders inside them
// pass through unchanged.
func RenderPrompt(notes string) string {
	return strings.Replace(analysisPromptV1, notesPlaceholder, notes, 1)
}
