// Package schemavalidation checks decoded documents against JSON Schemas.
//
// Documents may come from TOML or YAML decoders, whose maps and integers are
// not JSON types; Normalize converts them first.
package schemavalidation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is a compiled JSON Schema.
type Schema struct {
	url    string
	schema *jsonschema.Schema
}

// Compile compiles schema data registered under url.
func Compile(url string, data []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{url: url, schema: schema}, nil
}

// MustCompile is like Compile but panics on error. It is meant for embedded
// schemas.
func MustCompile(url string, data []byte) *Schema {
	s, err := Compile(url, data)
	if err != nil {
		panic(err)
	}
	return s
}

// URL returns the URL the schema was registered under.
func (s *Schema) URL() string {
	return s.url
}

// Validate checks a document made of JSON types.
func (s *Schema) Validate(instance any) error {
	err := s.schema.Validate(instance)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if errors.As(err, &ve) {
		return &Error{Problems: flatten(ve)}
	}
	return fmt.Errorf("validate: %w", err)
}

// ValidateJSON unmarshals data and validates it.
func (s *Schema) ValidateJSON(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal instance: %w", err)
	}
	return s.Validate(instance)
}

// ValidateValue normalizes v to JSON types and validates it.
func (s *Schema) ValidateValue(v any) error {
	instance, err := Normalize(v)
	if err != nil {
		return err
	}
	return s.Validate(instance)
}

// Normalize round-trips v through encoding/json so that it contains only
// map[string]any, []any, float64, string, bool and nil.
func Normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// Problem is one failed schema keyword.
type Problem struct {
	// Location is a JSON pointer into the document, "" for the root.
	Location string
	Message  string
}

func (p Problem) String() string {
	loc := p.Location
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + p.Message
}

// Error lists every leaf problem of a failed validation.
type Error struct {
	Problems []Problem
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// flatten collects the leaves of a validation error tree.
func flatten(ve *jsonschema.ValidationError) []Problem {
	if len(ve.Causes) == 0 {
		return []Problem{{Location: ve.InstanceLocation, Message: ve.Message}}
	}
	var out []Problem
	for _, c := range ve.Causes {
		out = append(out, flatten(c)...)
	}
	return out
}
