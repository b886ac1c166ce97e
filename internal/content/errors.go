package content

import (
	"errors"
	"strings"
)

// FieldError is a single validation failure keyed by its path in the request,
// e.g. ["data", "iban"].
type FieldError struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
}

func (e FieldError) String() string {
	return strings.Join(e.Path, ".") + ": " + e.Message
}

// ValidationError carries every field failure found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// FieldErrors extracts the field list from err, or nil if err is not a
// validation failure.
func FieldErrors(err error) []FieldError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
