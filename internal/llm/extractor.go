package llm

// extractStrategy returns the text it located and whether it applied.
type extractStrategy func(*Response) (string, bool)

// extractStrategies are tried in order; the first that applies wins.
var extractStrategies = []extractStrategy{
	directSecondItem,
	firstMessageOutputText,
	firstNonEmptyText,
}

// ExtractText locates the generated text inside a model response. Providers
// place the answer at different positions (reasoning models emit a reasoning
// item first), so the lookup falls back through progressively looser shapes.
func ExtractText(resp *Response) (string, error) {
	if resp == nil {
		return "", ErrContentNotFound
	}
	for _, strategy := range extractStrategies {
		if text, ok := strategy(resp); ok {
			return text, nil
		}
	}
	return "", ErrContentNotFound
}

// directSecondItem reads the first content entry of the second output item.
// A present but empty text attribute still counts as found.
func directSecondItem(resp *Response) (string, bool) {
	if len(resp.Output) < 2 {
		return "", false
	}
	content := resp.Output[1].Content
	if len(content) == 0 || content[0].Text == nil {
		return "", false
	}
	return *content[0].Text, true
}

func firstMessageOutputText(resp *Response) (string, bool) {
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, entry := range item.Content {
			if entry.Type == "output_text" && entry.Text != nil {
				return *entry.Text, true
			}
		}
	}
	return "", false
}

func firstNonEmptyText(resp *Response) (string, bool) {
	for _, item := range resp.Output {
		for _, entry := range item.Content {
			if entry.Text != nil && *entry.Text != "" {
				return *entry.Text, true
			}
		}
	}
	return "", false
}
