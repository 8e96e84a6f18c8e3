package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrContentNotFound means no text could be located in a model response.
	ErrContentNotFound = errors.New("no text content in model response")
	// ErrMalformedContent means the located text holds no JSON object.
	ErrMalformedContent = errors.New("malformed model content")
	// ErrSchemaMismatch means the JSON object has fields of the wrong type.
	ErrSchemaMismatch = errors.New("model payload does not match schema")
)

// MalformedContentError carries the text that could not be parsed.
type MalformedContentError struct {
	Text string
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("%s (%d bytes)", ErrMalformedContent.Error(), len(e.Text))
}

func (e *MalformedContentError) Unwrap() error {
	return ErrMalformedContent
}

// SchemaError lists the payload fields that failed validation.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 0 {
		return ErrSchemaMismatch.Error()
	}
	return fmt.Sprintf("%s: %s", ErrSchemaMismatch.Error(), e.Problems[0])
}

func (e *SchemaError) Unwrap() error {
	return ErrSchemaMismatch
}
