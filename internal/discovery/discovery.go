// Package discovery scans configured search paths for projects that
// carry a local config but were never explicitly registered.
//
// Each Scan is finite and restartable: it walks every search path to a
// bounded depth, validates each candidate, and reports the survivors.
// Broken candidates are warned about and skipped; a bad directory never
// aborts a scan.
package discovery

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/paths"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/store"
)

// excludedDirs are never descended into, in addition to hidden
// directories.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	".idea":        true,
	".vscode":      true,
}

// Scanner finds auto-discoverable projects under search paths.
type Scanner struct {
	store    *store.Store
	logger   *logging.Logger
	maxDepth int
}

// New creates a scanner. Depth is fixed at config.DiscoveryMaxDepth.
func New(st *store.Store, logger *logging.Logger) *Scanner {
	return &Scanner{
		store:    st,
		logger:   logger.Named("discovery"),
		maxDepth: config.DiscoveryMaxDepth,
	}
}

// Scan walks each search path and returns the validated candidate
// records, in walk order. Duplicates by id or path, invalid candidates,
// and unreadable directories are skipped with a warning. Search paths
// that fail to resolve are skipped the same way.
func (s *Scanner) Scan(ctx context.Context, searchPaths []string) ([]*project.Record, error) {
	seenIDs := make(map[string]string)   // id -> first path
	seenPaths := make(map[string]bool)
	var records []*project.Record

	for _, raw := range searchPaths {
		root, err := paths.Resolve(raw)
		if err != nil {
			s.logger.Warn("skipping unusable search path",
				zap.String("searchPath", raw), zap.Error(err))
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				s.logger.Warn("skipping unreadable directory",
					zap.String("path", path), zap.Error(walkErr))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && skipDirName(d.Name()) {
				return fs.SkipDir
			}
			if depthBelow(root, path) > s.maxDepth {
				return fs.SkipDir
			}

			rec, ok := s.loadCandidate(ctx, path)
			if !ok {
				return nil
			}
			if prev, dup := seenIDs[rec.ID]; dup {
				s.logger.Warn("skipping duplicate project id",
					zap.String("id", rec.ID),
					zap.String("path", rec.Path),
					zap.String("firstSeen", prev))
				return fs.SkipDir
			}
			if seenPaths[rec.Path] {
				s.logger.Warn("skipping duplicate project path",
					zap.String("path", rec.Path))
				return fs.SkipDir
			}
			seenIDs[rec.ID] = rec.Path
			seenPaths[rec.Path] = true
			records = append(records, rec)
			// Projects do not nest; no reason to walk into one.
			return fs.SkipDir
		})
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", root, err)
		}
	}
	return records, nil
}

// loadCandidate reads, validates, and identity-checks one candidate
// directory. Returns false when the directory holds no local config or
// the candidate is invalid.
func (s *Scanner) loadCandidate(ctx context.Context, dir string) (*project.Record, bool) {
	if _, err := os.Stat(store.LocalConfigPath(dir)); err != nil {
		return nil, false
	}

	local, err := s.store.ReadLocal(ctx, dir)
	if err != nil {
		s.logger.Warn("skipping candidate with unreadable config",
			zap.String("path", dir), zap.Error(err))
		return nil, false
	}

	rec, err := project.AutoDiscovered(local).Merge()
	if err != nil {
		s.logger.Warn("skipping candidate with unmergeable config",
			zap.String("path", dir), zap.Error(err))
		return nil, false
	}
	valid, err := project.Validate(project.Fields{
		Name:          rec.Name,
		Code:          rec.Code,
		Path:          rec.Path,
		TicketsPath:   rec.TicketsPath,
		Description:   rec.Description,
		RepositoryURL: rec.RepositoryURL,
		Active:        rec.Active,
		Strategy:      rec.Strategy,
		Document:      rec.Document,
	})
	if err != nil {
		s.logger.Warn("skipping invalid candidate",
			zap.String("path", dir), zap.Error(err))
		return nil, false
	}
	valid.Version = local.Version

	// A config whose recorded path names a different directory (for
	// example a cloned worktree) would produce an id that lies about its
	// location. Excluded silently per the identity invariant.
	if valid.Path != dir || !valid.IdentityConsistent() {
		s.logger.Debug("excluding candidate with mismatched identity",
			zap.String("dir", dir), zap.String("configuredPath", valid.Path))
		return nil, false
	}
	return valid, true
}

func skipDirName(name string) bool {
	return strings.HasPrefix(name, ".") || excludedDirs[name]
}

// depthBelow counts path separators between root and path; the root
// itself is depth 0.
func depthBelow(root, path string) int {
	if path == root {
		return 0
	}
	rel := strings.TrimPrefix(path, root+string(filepath.Separator))
	return strings.Count(rel, string(filepath.Separator)) + 1
}
