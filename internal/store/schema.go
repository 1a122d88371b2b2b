package store

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// rowsSchema describes the persisted blob: an array of string rows.
const rowsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "array",
    "items": {"type": "string"}
  }
}`

var rowsSchemaLoader = gojsonschema.NewStringLoader(rowsSchema)

// ValidationError lists the schema violations of a persisted blob.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single violation at a JSON path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("stored rows failed validation:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// validateBlob checks raw against the rows schema.
func validateBlob(raw []byte) error {
	result, err := gojsonschema.Validate(rowsSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to validate stored rows: %w", err)
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
