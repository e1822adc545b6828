// Package paths normalizes, expands, and validates filesystem paths.
//
// All user-supplied paths pass through Resolve before any other component
// touches them: tilde expansion, traversal rejection, and an existence and
// readability check.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Path validation errors.
var (
	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrPathTraversal indicates a path contains directory traversal sequences.
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrPathNotFound indicates the resolved path does not exist.
	ErrPathNotFound = errors.New("path does not exist")

	// ErrPathNotReadable indicates the resolved path exists but cannot be read.
	ErrPathNotReadable = errors.New("path is not readable")

	// ErrOutsideRoot indicates a path escapes its required root directory.
	ErrOutsideRoot = errors.New("path escapes allowed root")
)

// Resolve expands a leading "~" to the home directory, rejects traversal
// sequences, and returns the cleaned absolute path. The path must exist
// and be readable.
func Resolve(raw string) (string, error) {
	abs, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrPathNotFound, abs)
		}
		if os.IsPermission(err) {
			return "", fmt.Errorf("%w: %s", ErrPathNotReadable, abs)
		}
		return "", fmt.Errorf("stat %s: %w", abs, err)
	}

	// Stat succeeding does not imply list permission on a directory.
	if info.IsDir() {
		f, err := os.Open(abs)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrPathNotReadable, abs)
		}
		f.Close()
	}

	return abs, nil
}

// ResolveUnder resolves raw like Resolve and additionally requires the
// result to be equal to or nested under root.
func ResolveUnder(raw, root string) (string, error) {
	abs, err := Resolve(raw)
	if err != nil {
		return "", err
	}
	if !Contains(root, abs) {
		return "", fmt.Errorf("%w: %s not under %s", ErrOutsideRoot, abs, root)
	}
	return abs, nil
}

// Normalize expands and cleans a path without requiring it to exist.
func Normalize(raw string) (string, error) {
	if raw == "" {
		return "", ErrEmptyPath
	}

	expanded, err := ExpandHome(raw)
	if err != nil {
		return "", err
	}

	// Reject traversal both before and after cleaning; Clean collapses
	// sequences like "a/../.." that a single check would miss.
	if containsTraversal(expanded) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, raw)
	}
	cleaned := filepath.Clean(expanded)
	if containsTraversal(cleaned) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, raw)
	}

	abs, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %s: %w", raw, err)
	}
	return abs, nil
}

// ExpandHome replaces a leading "~" or "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Contains reports whether candidate equals root or is nested under it.
// Both arguments must already be absolute and cleaned.
func Contains(root, candidate string) bool {
	root = strings.TrimRight(root, string(filepath.Separator))
	if candidate == root {
		return true
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}

func containsTraversal(path string) bool {
	for _, seg := range strings.Split(path, string(filepath.Separator)) {
		if seg == ".." {
			return true
		}
	}
	return false
}
