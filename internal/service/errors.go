package service

import (
	"context"
	"errors"

	"github.com/markdown-ticket/mdt/internal/paths"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/store"
)

// Error kinds rendered by every adapter. The CLI, web, and MCP
// interfaces each map these to their transport's vocabulary, but the
// kind string itself is identical everywhere.
const (
	KindValidation = "validation"
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindExists     = "exists"
	KindPath       = "path"
	KindParse      = "parse"
	KindIO         = "io"
	KindCancelled  = "cancelled"
	KindInternal   = "internal"
)

// ErrorKind classifies a facade error into the shared taxonomy.
func ErrorKind(err error) string {
	var parseErr *store.ParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, project.ErrValidation):
		return KindValidation
	case errors.Is(err, project.ErrNotFound):
		return KindNotFound
	case errors.Is(err, project.ErrConflict),
		errors.Is(err, project.ErrInconsistentConfig):
		return KindConflict
	case errors.Is(err, project.ErrExists):
		return KindExists
	case errors.Is(err, paths.ErrPathTraversal),
		errors.Is(err, paths.ErrPathNotFound),
		errors.Is(err, paths.ErrPathNotReadable),
		errors.Is(err, paths.ErrOutsideRoot),
		errors.Is(err, paths.ErrEmptyPath):
		return KindPath
	case errors.As(err, &parseErr):
		return KindParse
	case errors.Is(err, store.ErrIO):
		return KindIO
	}
	return KindInternal
}

// Violations extracts the violation list from a validation error, nil
// otherwise.
func Violations(err error) []project.Violation {
	var ve *project.ValidationError
	if errors.As(err, &ve) {
		return ve.Violations
	}
	return nil
}

// Suggestions extracts the suggestion list from a not-found error, nil
// otherwise.
func Suggestions(err error) []string {
	var nf *project.NotFoundError
	if errors.As(err, &nf) {
		return nf.Suggestions
	}
	return nil
}
