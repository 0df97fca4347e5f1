package altsource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
)

// rawObject is the intermediate form every source entity decodes through. Known
// keys are popped off into typed fields and whatever is left becomes the extra
// bucket, so keys this package knows nothing about survive a load/save cycle.
type rawObject map[string]json.RawMessage

func decodeObject(data []byte) (rawObject, error) {
	var raw rawObject
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &SchemaError{Err: fmt.Errorf("expected a JSON object: %w", err)}
	}
	return raw, nil
}

// pop decodes the value under key into dst and removes it from the object.
// A missing key is not an error; a value of the wrong type is a SchemaError.
func (o rawObject) pop(key string, dst any) error {
	v, ok := o[key]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return &SchemaError{Key: key, Err: err}
	}
	delete(o, key)
	return nil
}

// rest returns whatever keys were not claimed, compacted so a captured value
// is identical to what a later marshal emits.
func (o rawObject) rest() map[string]json.RawMessage {
	if len(o) == 0 {
		return nil
	}
	for k, v := range o {
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err == nil {
			o[k] = json.RawMessage(append([]byte(nil), buf.Bytes()...))
		}
	}
	return o
}

// put marshals v under key, skipping empty values so optional fields are
// omitted the way the consuming client expects.
func (o rawObject) put(key string, v any) {
	if isEmptyValue(v) {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	o[key] = data
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() == 0
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func mergeExtra(o rawObject, extra map[string]json.RawMessage) {
	for k, v := range extra {
		o[k] = v
	}
}

// Parse decodes a source document. Malformed JSON yields a ParseError, a
// structurally valid document with missing required keys or mistyped known
// keys yields a SchemaError.
func Parse(data []byte) (*Source, error) {
	src := &Source{}
	if err := json.Unmarshal(data, src); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Err: err}
		}
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			return nil, schemaErr
		}
		return nil, &SchemaError{Err: err}
	}

	if err := src.requiredKeys(); err != nil {
		return nil, err
	}
	return src, nil
}

// Load reads and parses the source document at path.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}
	return Parse(data)
}

// Bytes serializes the source as indented JSON with a trailing newline, the
// shape AltStore clients and diff tools both get along with.
func (s *Source) Bytes() ([]byte, error) {
	return s.marshalIndent("  ")
}

// MinifiedBytes serializes the source without any whitespace.
func (s *Source) MinifiedBytes() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Source) marshalIndent(indent string) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", indent); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Save writes the source to path, pretty-printed. App and version ordering is
// preserved; unknown keys captured at load time are written back out.
func (s *Source) Save(path string) error {
	data, err := s.Bytes()
	if err != nil {
		return fmt.Errorf("serializing source: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing source: %w", err)
	}
	return nil
}
