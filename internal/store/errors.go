package store

import (
	"errors"
	"fmt"
)

// ErrIO marks transient input/output failures. Reads and writes wrapping
// this sentinel have already been retried with backoff before surfacing.
var ErrIO = errors.New("i/o error")

// ParseError reports a malformed persisted TOML file with its location.
// Parse failures are permanent; they are never retried.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed config %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("malformed config %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
