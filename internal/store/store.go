// Package store persists mdt configuration as TOML: the global registry
// (one file per project under ~/.config/mdt/projects) and the per-project
// local config (.mdt-config.toml in the project directory).
//
// Every write goes through a temp-file-and-rename sequence so a crash
// mid-write never leaves a partial file. Transient I/O failures are
// retried with exponential backoff before surfacing.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cenkalti/backoff/v5"

	"github.com/markdown-ticket/mdt/internal/logging"
)

// LocalConfigName is the per-project config file name.
const LocalConfigName = ".mdt-config.toml"

// Store reads and writes registry entries and local configs.
type Store struct {
	projectsDir string
	logger      *logging.Logger
}

// New creates a store over the given global registry directory.
func New(projectsDir string, logger *logging.Logger) *Store {
	return &Store{
		projectsDir: projectsDir,
		logger:      logger.Named("store"),
	}
}

// ProjectsDir returns the global registry directory.
func (s *Store) ProjectsDir() string {
	return s.projectsDir
}

// GlobalPath returns the registry file path for a project id.
func (s *Store) GlobalPath(id string) string {
	return filepath.Join(s.projectsDir, id+".toml")
}

// LocalConfigPath returns the local config path for a project directory.
func LocalConfigPath(projectPath string) string {
	return filepath.Join(projectPath, LocalConfigName)
}

// readTOML reads and decodes a TOML file into dst with retry on
// transient errors. Missing files surface fs.ErrNotExist; malformed
// content surfaces a ParseError. Neither is retried.
func readTOML(ctx context.Context, path string, dst any) error {
	_, err := retryIO(ctx, func() (struct{}, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				// Callers branch on fs.ErrNotExist; keep it unwrapped.
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
		}
		if err := toml.Unmarshal(data, dst); err != nil {
			return struct{}{}, backoff.Permanent(asParseError(path, err))
		}
		return struct{}{}, nil
	})
	return err
}

// writeTOML encodes src and writes it atomically with retry.
func writeTOML(ctx context.Context, path string, src any) error {
	var buf strings.Builder
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(src); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	_, err := retryIO(ctx, func() (struct{}, error) {
		return struct{}{}, writeFileAtomic(path, []byte(buf.String()), 0o644)
	})
	return err
}

// asParseError converts a toml decode failure into a ParseError carrying
// the line where decoding stopped.
func asParseError(path string, err error) error {
	var pe toml.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Path: path, Line: pe.Position.Line, Err: err}
	}
	return &ParseError{Path: path, Err: err}
}

// Snapshot captures the current bytes of a config file for rollback.
// ok is false when the file does not exist.
func (s *Store) Snapshot(path string) (data []byte, ok bool, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%w: read %s: %v", ErrIO, path, err)
	}
	return data, true, nil
}

// Restore rewrites a config file from a snapshot, atomically. A snapshot
// of an absent file removes the target, restoring the pre-operation
// state exactly.
func (s *Store) Restore(ctx context.Context, path string, data []byte, existed bool) error {
	if !existed {
		err := os.Remove(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", ErrIO, path, err)
		}
		return nil
	}
	_, err := retryIO(ctx, func() (struct{}, error) {
		return struct{}{}, writeFileAtomic(path, data, 0o644)
	})
	return err
}

// Version returns the concurrent-modification marker for a file: its
// mtime in UnixNano, or 0 when the file does not exist.
func Version(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	return info.ModTime().UnixNano(), nil
}
