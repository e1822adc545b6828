// Package service implements the project facade consumed by every
// external interface. The CLI, the web API, and the MCP server all call
// this one implementation, which is how they are guaranteed to render
// identical data and identical errors for identical inputs.
package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markdown-ticket/mdt/internal/cache"
	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/discovery"
	"github.com/markdown-ticket/mdt/internal/gitmeta"
	"github.com/markdown-ticket/mdt/internal/guard"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/paths"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/store"
)

// Service orchestrates strategy resolution, persistence, discovery,
// caching, and per-project locking behind the facade operations.
type Service struct {
	cfg     *config.Service
	store   *store.Store
	scanner *discovery.Scanner
	cache   *cache.Cache
	guard   *guard.Guard
	logger  *logging.Logger
}

// New wires the service. The cache is hooked into the config service's
// change notifications so external registry edits invalidate it.
func New(
	cfg *config.Service,
	st *store.Store,
	scanner *discovery.Scanner,
	c *cache.Cache,
	g *guard.Guard,
	logger *logging.Logger,
) *Service {
	s := &Service{
		cfg:     cfg,
		store:   st,
		scanner: scanner,
		cache:   c,
		guard:   g,
		logger:  logger.Named("projects"),
	}
	cfg.OnChange(c.Invalidate)
	return s
}

// CreateSpec is the input to Create.
type CreateSpec struct {
	Name          string
	Code          string
	Path          string
	TicketsPath   string
	Description   string
	RepositoryURL string

	// GlobalOnly forces the global-only strategy regardless of search
	// paths.
	GlobalOnly bool

	Document project.DocumentSettings
}

// Patch is a partial update; nil fields are left unchanged. The path is
// immutable: moving a project is a delete plus a create.
type Patch struct {
	Name          *string
	Code          *string
	TicketsPath   *string
	Description   *string
	RepositoryURL *string
	Document      *project.DocumentSettings
}

// Create registers a new project. The storage strategy is decided from
// the path and the globalOnly flag; the matching file layout is written.
func (s *Service) Create(ctx context.Context, spec CreateSpec) (*project.Record, error) {
	absPath, err := paths.Resolve(spec.Path)
	if err != nil {
		return nil, err
	}

	strategy := project.DecideStrategy(absPath, spec.GlobalOnly, s.searchPaths())

	repoURL := spec.RepositoryURL
	if repoURL == "" {
		repoURL = gitmeta.RemoteURL(absPath)
	}

	rec, err := project.Validate(project.Fields{
		Name:          spec.Name,
		Code:          spec.Code,
		Path:          absPath,
		TicketsPath:   spec.TicketsPath,
		Description:   spec.Description,
		RepositoryURL: repoURL,
		Active:        true,
		Strategy:      strategy,
		Document:      spec.Document,
	})
	if err != nil {
		return nil, err
	}
	rec.DateRegistered = time.Now().UTC()

	err = s.guard.Do(ctx, rec.ID, func() error {
		if existsErr := s.checkAbsent(ctx, rec); existsErr != nil {
			return existsErr
		}
		return s.persist(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate()
	rec.Version, err = store.Version(s.versionPath(rec))
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created",
		zap.String("id", rec.ID),
		zap.String("code", rec.Code),
		zap.Stringer("strategy", rec.Strategy))
	return rec, nil
}

// List returns every known project: registry entries merged with their
// local configs, plus auto-discovered projects when discovery is
// enabled. Results are cached for the TTL; any mutation invalidates.
func (s *Service) List(ctx context.Context) ([]*project.Record, error) {
	return s.cache.GetOrRefresh(ctx, s.loadAll)
}

// Get finds a project by id, code, or path.
func (s *Service) Get(ctx context.Context, idOrPath string) (*project.Record, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	// A path-looking argument is matched by resolved location.
	if strings.ContainsRune(idOrPath, filepath.Separator) || strings.HasPrefix(idOrPath, "~") {
		if abs, err := paths.Normalize(idOrPath); err == nil {
			for _, r := range recs {
				if r.Path == abs {
					return r, nil
				}
			}
		}
		return nil, s.notFound(idOrPath, recs)
	}

	code := project.NormalizeCode(idOrPath)
	for _, r := range recs {
		if r.ID == idOrPath || r.Code == code {
			return r, nil
		}
	}
	return nil, s.notFound(idOrPath, recs)
}

// Update applies a patch to a project. The version marker is captured
// with the lookup, before the lock: of two concurrent updates the
// loser's marker is stale by the time it holds the lock, so commit
// fails it with a ConflictError instead of re-merging its patch on top
// of the winner's write.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (*project.Record, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := project.Fields{
		Name:          valueOr(patch.Name, current.Name),
		Code:          valueOr(patch.Code, current.Code),
		Path:          current.Path,
		TicketsPath:   valueOr(patch.TicketsPath, current.TicketsPath),
		Description:   valueOr(patch.Description, current.Description),
		RepositoryURL: valueOr(patch.RepositoryURL, current.RepositoryURL),
		Active:        current.Active,
		Strategy:      current.Strategy,
		Document:      current.Document,
	}
	if patch.Document != nil {
		fields.Document = *patch.Document
	}

	next, err := project.Validate(fields)
	if err != nil {
		return nil, err
	}
	next.DateRegistered = current.DateRegistered

	err = s.guard.Do(ctx, id, func() error {
		return s.commit(ctx, current, next)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()
	s.logger.Info("project updated", zap.String("id", id))
	return next, nil
}

// SetActive enables or disables a project. Like Update, the version
// marker is captured before the lock so concurrent writers conflict
// instead of silently stacking.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*project.Record, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	next := current.Clone()
	next.Active = active

	err = s.guard.Do(ctx, id, func() error {
		return s.commit(ctx, current, next)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate()
	s.logger.Info("project active flag set",
		zap.String("id", id), zap.Bool("active", active))
	return next, nil
}

// Delete removes a project's configuration files for its strategy. The
// project directory itself is never touched.
func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.guard.Do(ctx, id, func() error {
		current, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		switch current.Strategy {
		case project.StrategyGlobalOnly:
			return s.store.DeleteGlobal(ctx, current.ID)
		case project.StrategyProjectFirst:
			if err := s.store.DeleteLocal(ctx, current.Path); err != nil {
				return err
			}
			return s.store.DeleteGlobal(ctx, current.ID)
		case project.StrategyAutoDiscovery:
			return s.store.DeleteLocal(ctx, current.Path)
		}
		return fmt.Errorf("unknown strategy %v", current.Strategy)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate()
	s.logger.Info("project deleted", zap.String("id", id))
	return nil
}

// searchPaths returns the discovery roots, or nil when auto-discovery
// is disabled. Disabled discovery means search paths take no part in
// strategy decisions either; a project that could never be rediscovered
// must not be stored discovery-only.
func (s *Service) searchPaths() []string {
	d := s.cfg.Discovery()
	if !d.AutoDiscover {
		return nil
	}
	return d.SearchPaths
}

// loadAll is the cache's load function: registry entries plus discovery.
func (s *Service) loadAll(ctx context.Context) ([]*project.Record, error) {
	entries, err := s.store.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}

	var records []*project.Record
	seenPaths := make(map[string]bool)
	for _, entry := range entries {
		rec, err := s.resolveEntry(ctx, entry)
		if err != nil {
			// A broken entry is this entry's problem, not the list's.
			s.logger.Warn("excluding project from results",
				zap.String("id", entry.ID()), zap.Error(err))
			continue
		}
		records = append(records, rec)
		seenPaths[rec.Path] = true
	}

	if sp := s.searchPaths(); len(sp) > 0 {
		discovered, err := s.scanner.Scan(ctx, sp)
		if err != nil {
			return nil, err
		}
		for _, rec := range discovered {
			// Registered projects inside a search path are already in
			// the list with their registered strategy.
			if seenPaths[rec.Path] {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

// resolveEntry turns a registry entry into an effective record.
func (s *Service) resolveEntry(ctx context.Context, entry *project.GlobalEntry) (*project.Record, error) {
	if entry.Complete != nil {
		rec, err := project.GlobalOnly(entry).Merge()
		if err != nil {
			return nil, err
		}
		rec.Version, err = s.store.GlobalVersion(rec.ID)
		if err != nil {
			return nil, err
		}
		return rec, nil
	}

	local, err := s.store.ReadLocal(ctx, entry.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &project.InconsistentConfigError{
				ID:     entry.ID(),
				Field:  "localConfig",
				Global: entry.Path,
				Local:  "(missing)",
			}
		}
		return nil, err
	}
	return project.ProjectFirst(entry, local).Merge()
}

// find loads one project fresh from disk, bypassing the cache. Used by
// mutations, which must see current state.
func (s *Service) find(ctx context.Context, id string) (*project.Record, error) {
	entry, err := s.store.ReadGlobal(ctx, id)
	switch {
	case err == nil:
		return s.resolveEntry(ctx, entry)
	case errors.Is(err, fs.ErrNotExist):
		// Not registered; it may be auto-discovered.
	default:
		return nil, err
	}

	if sp := s.searchPaths(); len(sp) > 0 {
		discovered, scanErr := s.scanner.Scan(ctx, sp)
		if scanErr != nil {
			return nil, scanErr
		}
		for _, rec := range discovered {
			if rec.ID == id {
				return rec, nil
			}
		}
	}

	recs, listErr := s.loadAll(ctx)
	if listErr != nil {
		recs = nil
	}
	return nil, s.notFound(id, recs)
}

// commit writes next in place of current with a version check and full
// rollback. The version marker captured at lookup must still be on disk
// immediately before the write; otherwise another writer won and this
// operation fails with a ConflictError having changed nothing.
func (s *Service) commit(ctx context.Context, current, next *project.Record) error {
	vpath := s.versionPath(current)
	onDisk, err := store.Version(vpath)
	if err != nil {
		return err
	}
	if onDisk != current.Version {
		return &project.ConflictError{
			ID:       current.ID,
			Expected: current.Version,
			Actual:   onDisk,
		}
	}
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	next.Version, err = store.Version(s.versionPath(next))
	return err
}

// persist writes the file layout for the record's strategy. A failure
// after the first of two writes rolls the first back so the layout stays
// consistent.
func (s *Service) persist(ctx context.Context, rec *project.Record) error {
	switch rec.Strategy {
	case project.StrategyGlobalOnly:
		return s.store.WriteGlobal(ctx, &project.GlobalEntry{
			Path:           rec.Path,
			Active:         rec.Active,
			DateRegistered: rec.DateRegistered,
			Complete:       rec,
		})

	case project.StrategyProjectFirst:
		localPath := store.LocalConfigPath(rec.Path)
		snapshot, existed, err := s.store.Snapshot(localPath)
		if err != nil {
			return err
		}
		if err := s.store.WriteLocal(ctx, rec); err != nil {
			return err
		}
		if err := s.store.WriteGlobal(ctx, &project.GlobalEntry{
			Path:           rec.Path,
			Active:         rec.Active,
			DateRegistered: rec.DateRegistered,
		}); err != nil {
			if rbErr := s.store.Restore(ctx, localPath, snapshot, existed); rbErr != nil {
				s.logger.Error("rollback of local config failed",
					zap.String("id", rec.ID), zap.Error(rbErr))
			}
			return err
		}
		return nil

	case project.StrategyAutoDiscovery:
		return s.store.WriteLocal(ctx, rec)
	}
	return fmt.Errorf("unknown strategy %v", rec.Strategy)
}

// checkAbsent fails with ErrExists when the id is already registered or
// the directory already carries a local config.
func (s *Service) checkAbsent(ctx context.Context, rec *project.Record) error {
	if _, err := s.store.ReadGlobal(ctx, rec.ID); err == nil {
		return fmt.Errorf("%w: %s is already registered", project.ErrExists, rec.ID)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if _, existed, err := s.store.Snapshot(store.LocalConfigPath(rec.Path)); err != nil {
		return err
	} else if existed {
		return fmt.Errorf("%w: %s already has a local config", project.ErrExists, rec.Path)
	}
	return nil
}

// versionPath is where a record's version marker lives: the registry
// file for global-only projects, the local config otherwise.
func (s *Service) versionPath(rec *project.Record) string {
	if rec.Strategy == project.StrategyGlobalOnly {
		return s.store.GlobalPath(rec.ID)
	}
	return store.LocalConfigPath(rec.Path)
}

func (s *Service) notFound(requested string, known []*project.Record) error {
	codes := make([]string, 0, len(known))
	for _, r := range known {
		codes = append(codes, r.Code)
	}
	return &project.NotFoundError{
		Requested:   requested,
		Suggestions: project.SuggestCodes(requested, codes),
	}
}

func valueOr(p *string, def string) string {
	if p != nil {
		return *p
	}
	return def
}
