package llm

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// payloadSchema describes the analysis object. Every key is optional and may be
// null; missing or null keys are defaulted by the caller. Unknown keys are tolerated.
const payloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "summary": {"type": ["string", "null"]},
    "key_points": {"type": ["array", "null"], "items": {"type": "string"}},
    "missing_information": {"type": ["array", "null"], "items": {"type": "string"}},
    "suggested_next_actions": {"type": ["array", "null"], "items": {"type": "string"}}
  },
  "additionalProperties": true
}`

var compiledPayloadSchema = mustCompileSchema(payloadSchema)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile payload schema: %v", err))
	}
	return schema
}

// ValidatePayload checks field types of a parsed payload.
func ValidatePayload(payload Payload) error {
	result, err := compiledPayloadSchema.Validate(gojsonschema.NewGoLoader(map[string]any(payload)))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if result.Valid() {
		return nil
	}
	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return &SchemaError{Problems: problems}
}
