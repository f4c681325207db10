package exercise

import (
	"errors"
	"fmt"
)

// ErrEmptySequence reports that expansion produced no phases
var ErrEmptySequence = errors.New("expanded sequence has no phases")

// DefinitionError reports an invalid exercise definition. It is returned
// from Expand before any playback state exists.
type DefinitionError struct {
	Definition string // definition name
	Field      string // offending field
	Message    string
	Err        error // underlying sentinel, if any
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition %q: %s: %s", e.Definition, e.Field, e.Message)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// defErr builds a DefinitionError for the given definition
func defErr(def Definition, field, message string) *DefinitionError {
	return &DefinitionError{Definition: def.Name, Field: field, Message: message}
}
