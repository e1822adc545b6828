package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/markdown-ticket/mdt/internal/project"
)

// localFile is the TOML shape of .mdt-config.toml: a [project] table
// with the flat fields plus a nested [project.document] table.
type localFile struct {
	Project localProject `toml:"project"`
}

type localProject struct {
	Name          string `toml:"name"`
	Code          string `toml:"code"`
	Path          string `toml:"path"`
	TicketsPath   string `toml:"ticketsPath"`
	Description   string `toml:"description,omitempty"`
	RepositoryURL string `toml:"repositoryUrl,omitempty"`
	Active        bool   `toml:"active"`

	Document project.DocumentSettings `toml:"document,omitempty"`
}

// ReadLocal reads a project's .mdt-config.toml. A missing file surfaces
// fs.ErrNotExist. The returned record's Version is the file's mtime
// marker.
func (s *Store) ReadLocal(ctx context.Context, projectPath string) (*project.Record, error) {
	path := LocalConfigPath(projectPath)
	var lf localFile
	if err := readTOML(ctx, path, &lf); err != nil {
		return nil, err
	}

	p := lf.Project
	if p.Path == "" {
		// Older configs omitted the path field; the file's own location
		// is authoritative then.
		p.Path = projectPath
	}
	version, err := Version(path)
	if err != nil {
		return nil, err
	}

	return &project.Record{
		ID:            filepath.Base(p.Path),
		Code:          p.Code,
		Name:          p.Name,
		Path:          p.Path,
		TicketsPath:   p.TicketsPath,
		Description:   p.Description,
		RepositoryURL: p.RepositoryURL,
		Active:        p.Active,
		Document:      p.Document,
		Version:       version,
	}, nil
}

// WriteLocal persists a record as the project's local config, atomically.
func (s *Store) WriteLocal(ctx context.Context, rec *project.Record) error {
	if rec.Path == "" {
		return fmt.Errorf("record has no path")
	}
	lf := localFile{Project: localProject{
		Name:          rec.Name,
		Code:          rec.Code,
		Path:          rec.Path,
		TicketsPath:   rec.TicketsPath,
		Description:   rec.Description,
		RepositoryURL: rec.RepositoryURL,
		Active:        rec.Active,
		Document:      rec.Document,
	}}
	return writeTOML(ctx, LocalConfigPath(rec.Path), &lf)
}

// DeleteLocal removes a project's local config. Missing is not an error.
func (s *Store) DeleteLocal(ctx context.Context, projectPath string) error {
	path := LocalConfigPath(projectPath)
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove %s: %v", ErrIO, path, err)
	}
	return nil
}

// LocalVersion returns the version marker of a project's local config.
func (s *Store) LocalVersion(projectPath string) (int64, error) {
	return Version(LocalConfigPath(projectPath))
}

