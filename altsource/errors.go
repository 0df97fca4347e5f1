package altsource

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an app or version lookup by identifier misses.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateApp is returned by AddApp when the identifier is already taken.
	ErrDuplicateApp = errors.New("duplicate app identifier")
	// ErrDuplicateVersion is returned by AddVersion when the version string is already listed.
	ErrDuplicateVersion = errors.New("duplicate version")
)

// ParseError wraps a JSON syntax failure while reading a source document.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid source JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SchemaError reports a document that is valid JSON but not a valid source:
// a required key is missing or a known key holds a value of the wrong type.
type SchemaError struct {
	Key string
	Err error
}

func (e *SchemaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("source schema: missing required key %q", e.Key)
	}
	if e.Key == "" {
		return fmt.Sprintf("source schema: %v", e.Err)
	}
	return fmt.Sprintf("source schema: key %q: %v", e.Key, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
