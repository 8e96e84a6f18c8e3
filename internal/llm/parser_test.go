package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentStrictJSON(t *testing.T) {
	payload, err := ParseContent(`{"summary":"Met client","key_points":["a"],"missing_information":[],"suggested_next_actions":["b"]}`)
	require.NoError(t, err)
	assert.Equal(t, "Met client", payload["summary"])
	assert.Equal(t, []any{"a"}, payload["key_points"])
	assert.Len(t, payload, 4)
}

func TestParseContentFencedJSON(t *testing.T) {
	payload, err := ParseContent("```json\n{\"summary\":\"S\",\"key_points\":[\"k\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "S", payload["summary"])
	assert.Equal(t, []any{"k"}, payload["key_points"])
}

func TestParseContentProseWrapped(t *testing.T) {
	payload, err := ParseContent("Here is the result:\n{\"summary\":\"S\"}\nThanks!")
	require.NoError(t, err)
	assert.Equal(t, Payload{"summary": "S"}, payload)
}

func TestParseContentNeverAddsKeys(t *testing.T) {
	payload, err := ParseContent(`{"summary":"only"}`)
	require.NoError(t, err)
	_, ok := payload["key_points"]
	assert.False(t, ok)
}

func TestParseContentMalformed(t *testing.T) {
	cases := []string{
		"",
		"I cannot help with that.",
		"{not json}",
		`["a","b"]`,
		"null",
		"```\nnot json either\n```",
	}
	for _, in := range cases {
		_, err := ParseContent(in)
		require.Error(t, err, "input %q", in)
		assert.ErrorIs(t, err, ErrMalformedContent)

		var malformed *MalformedContentError
		require.True(t, errors.As(err, &malformed))
		assert.Equal(t, in, malformed.Text)
	}
}

func TestStripFence(t *testing.T) {
	got, ok := stripFence("  ```JSON\n{\"a\":1}\n```  ")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got)

	got, ok = stripFence("```{\"a\":1}```")
	require.True(t, ok)
	assert.Equal(t, `{"a":1}`, got)

	_, ok = stripFence(`{"a":1}`)
	assert.False(t, ok)
}

func TestValidatePayload(t *testing.T) {
	require.NoError(t, ValidatePayload(Payload{}))
	require.NoError(t, ValidatePayload(Payload{"summary": "s", "key_points": []any{"a"}, "extra": 1.0}))
	require.NoError(t, ValidatePayload(Payload{
		"summary":                nil,
		"key_points":             nil,
		"missing_information":    nil,
		"suggested_next_actions": nil,
	}))

	err := ValidatePayload(Payload{"summary": 42.0, "key_points": "not a list"})
	require.ErrorIs(t, err, ErrSchemaMismatch)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.NotEmpty(t, schemaErr.Problems)
}

func TestRenderPromptSubstitutesVerbatim(t *testing.T) {
	notes := "Call with {client} at 5% discount {{notes}}"
	prompt := RenderPrompt(notes)

	assert.Contains(t, prompt, "Return ONLY valid JSON")
	assert.Contains(t, prompt, `"suggested_next_actions": ["string"]`)
	assert.Contains(t, prompt, "Do not include markdown")
	assert.Contains(t, prompt, "Notes:\n"+notes)
	assert.NotContains(t, AnalysisPrompt(), "Call with")
}
