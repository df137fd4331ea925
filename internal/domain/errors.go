// Package domain defines core types, interfaces, and errors for the
// Cortex agent grant toolkit.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// UnavailableError indicates the warehouse metadata service could not be reached.
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrUnavailable creates an UnavailableError with a formatted message.
func ErrUnavailable(format string, args ...interface{}) *UnavailableError {
	return &UnavailableError{Message: fmt.Sprintf(format, args...)}
}

// ToolsNotFoundError indicates an agent specification was present but no tool
// list was found at any of the known paths. This is a blocking error: without
// tools there is nothing to generate grants for, and an empty result must not
// be mistaken for "zero tools".
type ToolsNotFoundError struct {
	SearchedPaths []string
}

func (e *ToolsNotFoundError) Error() string {
	return fmt.Sprintf("no tool list found in agent specification (searched %s)",
		strings.Join(e.SearchedPaths, ", "))
}

// MalformedStagePathError indicates a semantic-model-file path did not parse
// into exactly database.schema.stage components.
type MalformedStagePathError struct {
	Path string
}

func (e *MalformedStagePathError) Error() string {
	return fmt.Sprintf("malformed stage path %q: want @DB.SCHEMA.STAGE/path/file.yaml", e.Path)
}

// ResourceUnavailableError indicates the semantic-definition resolver failed
// or returned nothing for an identifier. The affected tool contributes no
// table entries; the rest of the batch continues.
type ResourceUnavailableError struct {
	Identifier string
	Err        error
}

func (e *ResourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("semantic definition %q unavailable: %v", e.Identifier, e.Err)
	}
	return fmt.Sprintf("semantic definition %q unavailable", e.Identifier)
}

func (e *ResourceUnavailableError) Unwrap() error { return e.Err }

// UnsupportedSemanticFormatError indicates a semantic definition parsed as
// YAML but matched neither the flat nor the nested table-reference shape.
type UnsupportedSemanticFormatError struct {
	Identifier string
}

func (e *UnsupportedSemanticFormatError) Error() string {
	return fmt.Sprintf("semantic definition %q contains no recognizable table references (0 tables found)", e.Identifier)
}
