// Package validation validates worker inputs against the JSON schemas
// published in the activity registry.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Result struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidateAgainstSchema checks a decoded input document against a JSON
// schema expressed as a Go map (the registry stores schemas that way).
func ValidateAgainstSchema(input map[string]interface{}, schema map[string]interface{}) (*Result, error) {
	if len(schema) == 0 {
		return &Result{Valid: true}, nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	out := &Result{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}

// MustBeValid is a convenience wrapper that flattens a failed result into a
// single error for fail-fast callers.
func MustBeValid(input map[string]interface{}, schema map[string]interface{}) error {
	res, err := ValidateAgainstSchema(input, schema)
	if err != nil {
		return err
	}
	if !res.Valid {
		msgs := make([]string, len(res.Errors))
		for i, e := range res.Errors {
			msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
		}
		return fmt.Errorf("input validation failed: %v", msgs)
	}
	return nil
}
