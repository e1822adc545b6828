package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/project"
)

// globalFile is the TOML shape of a registry entry. The minimal
// project-first form carries only the first three fields; the complete
// global-only form carries all of them. Presence of a code is what
// distinguishes the two.
type globalFile struct {
	Path           string    `toml:"path"`
	Active         bool      `toml:"active"`
	DateRegistered time.Time `toml:"dateRegistered"`

	Name          string `toml:"name,omitempty"`
	Code          string `toml:"code,omitempty"`
	TicketsPath   string `toml:"ticketsPath,omitempty"`
	Description   string `toml:"description,omitempty"`
	RepositoryURL string `toml:"repositoryUrl,omitempty"`

	Document *project.DocumentSettings `toml:"document,omitempty"`
}

func toGlobalFile(e *project.GlobalEntry) *globalFile {
	gf := &globalFile{
		Path:           e.Path,
		Active:         e.Active,
		DateRegistered: e.DateRegistered,
	}
	if c := e.Complete; c != nil {
		gf.Name = c.Name
		gf.Code = c.Code
		gf.TicketsPath = c.TicketsPath
		gf.Description = c.Description
		gf.RepositoryURL = c.RepositoryURL
		doc := c.Document
		gf.Document = &doc
	}
	return gf
}

func fromGlobalFile(gf *globalFile) *project.GlobalEntry {
	e := &project.GlobalEntry{
		Path:           gf.Path,
		Active:         gf.Active,
		DateRegistered: gf.DateRegistered,
	}
	if gf.Code != "" {
		e.Complete = &project.Record{
			ID:            filepath.Base(gf.Path),
			Code:          gf.Code,
			Name:          gf.Name,
			Path:          gf.Path,
			TicketsPath:   gf.TicketsPath,
			Description:   gf.Description,
			RepositoryURL: gf.RepositoryURL,
			Active:        gf.Active,
			Strategy:      project.StrategyGlobalOnly,
		}
		if gf.Document != nil {
			e.Complete.Document = *gf.Document
		}
	}
	return e
}

// ReadGlobal reads one registry entry by project id. A missing entry
// surfaces fs.ErrNotExist.
func (s *Store) ReadGlobal(ctx context.Context, id string) (*project.GlobalEntry, error) {
	var gf globalFile
	if err := readTOML(ctx, s.GlobalPath(id), &gf); err != nil {
		return nil, err
	}
	return fromGlobalFile(&gf), nil
}

// WriteGlobal persists a registry entry atomically.
func (s *Store) WriteGlobal(ctx context.Context, entry *project.GlobalEntry) error {
	if entry.Path == "" {
		return fmt.Errorf("registry entry has no path")
	}
	return writeTOML(ctx, s.GlobalPath(entry.ID()), toGlobalFile(entry))
}

// DeleteGlobal removes a registry entry. Deleting a missing entry is not
// an error.
func (s *Store) DeleteGlobal(ctx context.Context, id string) error {
	err := os.Remove(s.GlobalPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrIO, s.GlobalPath(id), err)
	}
	return nil
}

// GlobalVersion returns the version marker of a registry entry file.
func (s *Store) GlobalVersion(id string) (int64, error) {
	return Version(s.GlobalPath(id))
}

// ListGlobal reads every registry entry, sorted by id. Entries that fail
// to read or parse are logged and skipped; a broken file must not hide
// the rest of the registry.
func (s *Store) ListGlobal(ctx context.Context) ([]*project.GlobalEntry, error) {
	dirents, err := os.ReadDir(s.projectsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read registry dir %s: %v", ErrIO, s.projectsDir, err)
	}

	var entries []*project.GlobalEntry
	for _, de := range dirents {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".toml") || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, ".toml")
		entry, err := s.ReadGlobal(ctx, id)
		if err != nil {
			s.logger.Warn("skipping unreadable registry entry",
				zap.String("id", id), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID() < entries[j].ID() })
	return entries, nil
}
