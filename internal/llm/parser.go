package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Payload is the JSON object returned by the model, holding only the keys it sent.
type Payload map[string]any

type parseStrategy func(string) (Payload, bool)

var parseStrategies = []parseStrategy{
	parseWhole,
	parseBraceSpan,
	parseFenceStripped,
}

// bracePattern matches from the first '{' to the last '}' across lines.
var bracePattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseContent turns model text into a Payload. It accepts strict JSON, JSON
// wrapped in prose and JSON inside a markdown code fence. Only a top-level
// object is accepted.
func ParseContent(text string) (Payload, error) {
	for _, strategy := range parseStrategies {
		if payload, ok := strategy(text); ok {
			return payload, nil
		}
	}
	return nil, &MalformedContentError{Text: text}
}

func parseWhole(text string) (Payload, bool) {
	return decodeObject(text)
}

func parseBraceSpan(text string) (Payload, bool) {
	span := bracePattern.FindString(text)
	if span == "" {
		return nil, false
	}
	return decodeObject(span)
}

func parseFenceStripped(text string) (Payload, bool) {
	stripped, ok := stripFence(text)
	if !ok {
		return nil, false
	}
	return decodeObject(stripped)
}

// stripFence removes a leading ``` (plus an optional language tag on the same
// line) and a trailing ```.
func stripFence(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return "", false
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		tag := strings.TrimSpace(text[:idx])
		if !strings.ContainsAny(tag, "{[ ") {
			text = text[idx+1:]
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text), true
}

func decodeObject(text string) (Payload, bool) {
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return nil, false
	}
	return Payload(out), true
}
