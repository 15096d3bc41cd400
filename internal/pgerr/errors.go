// Package pgerr defines the error kinds raised while translating a process graph.
//
// Every error wraps one of the sentinels below so callers can branch with errors.Is.
package pgerr

import (
	"errors"
	"fmt"
)

var (
	// ErrReference marks an unresolved from_node or from_parameter reference.
	ErrReference = errors.New("reference error")
	// ErrSchema marks an unknown process id or a missing required parameter.
	ErrSchema = errors.New("schema error")
	// ErrStructure marks a malformed document or graph.
	ErrStructure = errors.New("structure error")
	// ErrIO marks a document that could not be read or parsed.
	ErrIO = errors.New("io error")
	// ErrConfig marks an invalid caller-supplied option, such as an unknown sort strategy.
	ErrConfig = errors.New("config error")
)

// ReferenceError is returned when a symbolic reference cannot be resolved.
type ReferenceError struct {
	NodeID string // node holding the reference
	Kind   string // "from_node" or "from_parameter"
	Name   string // referenced name
	Msg    string
}

func (e *ReferenceError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", ErrReference, e.Msg)
	}
	return fmt.Sprintf("%s: node %s: undefined %s %q", ErrReference, e.NodeID, e.Kind, e.Name)
}

func (e *ReferenceError) Unwrap() error { return ErrReference }

// SchemaError is returned when a node does not match the process catalog.
type SchemaError struct {
	ProcessID string
	Msg       string
	Err       error // underlying catalog error, if any
}

func (e *SchemaError) Error() string {
	if e.ProcessID != "" {
		return fmt.Sprintf("%s: process %q: %s", ErrSchema, e.ProcessID, e.Msg)
	}
	return fmt.Sprintf("%s: %s", ErrSchema, e.Msg)
}

func (e *SchemaError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrSchema, e.Err}
	}
	return []error{ErrSchema}
}

// StructureError is returned for documents or graphs that violate structural rules.
type StructureError struct {
	Kind string // "wrapper", "scope", "parent", "edge", "cycle", ...
	Msg  string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("%s: %s", ErrStructure, e.Msg)
}

func (e *StructureError) Unwrap() error { return ErrStructure }

// IOError is returned when a document cannot be read or decoded.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", ErrIO, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrIO, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// ConfigError is returned for invalid options. It never invalidates a graph.
type ConfigError struct {
	Option string
	Msg    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Option, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// Structure is shorthand for building a StructureError.
func Structure(kind, format string, args ...interface{}) error {
	return &StructureError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Kind returns a short name for the error's category, or "internal" when none applies.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReference):
		return "reference"
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrStructure):
		return "structure"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "internal"
	}
}
