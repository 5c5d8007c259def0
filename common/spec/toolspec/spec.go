// Package toolspec defines the model-facing tool specification types shared
// between the registry and the request builder.  A Spec carries the tool
// name, description, and the JSON Schema its arguments must satisfy; the
// schema is compiled once at registration time so argument validation on the
// hot path is a pure lookup.
package toolspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Spec describes a single tool as advertised to the model.
type Spec struct {
	// Name is the wire name of the tool (e.g. "read_file", "mcp__fs__stat").
	Name string `json:"name"`

	// Description tells the model what the tool does and when to call it.
	Description string `json:"description,omitempty"`

	// InputSchema is the raw JSON Schema for the tool's arguments object.
	InputSchema json.RawMessage `json:"input_schema,omitempty"`

	compiled *jsonschema.Schema
}

// New builds a Spec and compiles its input schema.  An empty schema is
// treated as "accept any object".
func New(name, description string, inputSchema json.RawMessage) (*Spec, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("toolspec: name must not be empty")
	}
	s := &Spec{Name: name, Description: description, InputSchema: inputSchema}
	if len(inputSchema) == 0 {
		return s, nil
	}

	compiler := jsonschema.NewCompiler()
	resource := "mem://" + name + ".schema.json"
	if err := compiler.AddResource(resource, bytes.NewReader(inputSchema)); err != nil {
		return nil, fmt.Errorf("toolspec: add schema for %q: %w", name, err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("toolspec: compile schema for %q: %w", name, err)
	}
	s.compiled = compiled
	return s, nil
}

// MustNew is like New but panics on error.  Use only for specs defined as
// program literals.
func MustNew(name, description string, inputSchema json.RawMessage) *Spec {
	s, err := New(name, description, inputSchema)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateArguments checks a raw JSON arguments document against the tool's
// compiled input schema.  A spec without a schema accepts everything.
func (s *Spec) ValidateArguments(raw json.RawMessage) error {
	if s.compiled == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("toolspec: arguments for %q are not valid JSON: %w", s.Name, err)
	}
	if err := s.compiled.Validate(value); err != nil {
		return fmt.Errorf("toolspec: arguments for %q rejected by schema: %w", s.Name, err)
	}
	return nil
}
