package project

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the shared taxonomy. Adapters map these (and the
// typed errors below) to exit codes, HTTP statuses, and MCP error kinds;
// the mapping must be identical across interfaces.
var (
	ErrNotFound           = errors.New("project not found")
	ErrExists             = errors.New("project already exists")
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("concurrent modification conflict")
	ErrInconsistentConfig = errors.New("global and local config disagree")
)

// Violation is a single validation failure.
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError carries every violation found in one pass. Validation
// never short-circuits on the first failure.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError reports a concurrent-modification race: the version
// marker captured at operation start no longer matches the value on disk.
type ConflictError struct {
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("project %s modified concurrently (version %d, now %d)", e.ID, e.Expected, e.Actual)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundError reports an unknown project id or code, with the nearest
// known codes as suggestions.
type NotFoundError struct {
	Requested   string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("project not found: %s", e.Requested)
	}
	return fmt.Sprintf("project not found: %s (did you mean %s?)", e.Requested, strings.Join(e.Suggestions, ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// InconsistentConfigError reports divergence between a project's global
// registry entry and its local config on an identity-defining field.
// Callers report it as a warning and exclude the record from results.
type InconsistentConfigError struct {
	ID     string
	Field  string
	Global string
	Local  string
}

func (e *InconsistentConfigError) Error() string {
	return fmt.Sprintf("project %s: %s differs between registry (%q) and local config (%q)",
		e.ID, e.Field, e.Global, e.Local)
}

func (e *InconsistentConfigError) Is(target error) bool {
	return target == ErrInconsistentConfig
}
