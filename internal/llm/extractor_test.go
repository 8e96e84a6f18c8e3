package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestExtractTextDirectSecondItem(t *testing.T) {
	resp := &Response{Output: []OutputItem{
		{Type: "reasoning"},
		{Type: "message", Content: []ContentEntry{{Type: "output_text", Text: strPtr(`{"summary":"x"}`)}}},
	}}

	got, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"summary":"x"}`, got)
}

func TestExtractTextDirectEmptyTextCounts(t *testing.T) {
	resp := &Response{Output: []OutputItem{
		{Type: "message", Content: []ContentEntry{{Type: "output_text", Text: strPtr("first")}}},
		{Type: "message", Content: []ContentEntry{{Type: "output_text", Text: strPtr("")}}},
	}}

	got, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestExtractTextSingleMessageItem(t *testing.T) {
	resp := &Response{Output: []OutputItem{
		{Type: "message", Role: "assistant", Content: []ContentEntry{
			{Type: "refusal"},
			{Type: "output_text", Text: strPtr("hello")},
		}},
	}}

	got, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestExtractTextSkipsMessageWithoutOutputText(t *testing.T) {
	resp := &Response{Output: []OutputItem{
		{Type: "message", Content: []ContentEntry{{Type: "refusal"}}},
		{Type: "reasoning"},
		{Type: "message", Content: []ContentEntry{{Type: "output_text", Text: strPtr("later")}}},
	}}

	got, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "later", got)
}

func TestExtractTextFirstNonEmptyAnywhere(t *testing.T) {
	resp := &Response{Output: []OutputItem{
		{Type: "reasoning", Content: []ContentEntry{{Type: "summary_text", Text: strPtr("")}}},
		{Type: "custom"},
		{Type: "custom", Content: []ContentEntry{{Type: "text", Text: strPtr("fallback")}}},
	}}

	got, err := ExtractText(resp)
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestExtractTextNotFound(t *testing.T) {
	cases := map[string]*Response{
		"nil response": nil,
		"no output":    {},
		"no text":      {Output: []OutputItem{{Type: "reasoning"}, {Type: "message"}}},
		"only empty":   {Output: []OutputItem{{Type: "custom", Content: []ContentEntry{{Text: strPtr("")}}}}},
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractText(resp)
			require.ErrorIs(t, err, ErrContentNotFound)
		})
	}
}

func TestExtractTextIgnoresOutputTextAggregate(t *testing.T) {
	resp := &Response{OutputText: `{"summary":"agg"}`}

	_, err := ExtractText(resp)
	require.ErrorIs(t, err, ErrContentNotFound)
}
