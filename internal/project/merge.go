package project

import (
	"fmt"
	"path/filepath"
	"time"
)

// GlobalEntry is a project's entry in the global registry. The minimal
// form carries only {Path, Active, DateRegistered} and points at a local
// config (project-first); the complete form embeds the full record
// (global-only).
type GlobalEntry struct {
	Path           string
	Active         bool
	DateRegistered time.Time

	// Complete holds the full field set for global-only projects.
	// Nil means this is the minimal project-first form.
	Complete *Record
}

// ID returns the project id implied by the registered path.
func (g *GlobalEntry) ID() string {
	return filepath.Base(g.Path)
}

// ResolvedKind tags the three configuration shapes.
type ResolvedKind int

const (
	// KindGlobalOnly wraps a complete global registry entry.
	KindGlobalOnly ResolvedKind = iota

	// KindProjectFirst pairs a minimal global entry with a local config.
	KindProjectFirst

	// KindAutoDiscovered wraps a local config found by scanning; there is
	// no registry entry.
	KindAutoDiscovered
)

// Resolved is the tagged union over the three storage shapes. Construct
// it with GlobalOnly, ProjectFirst, or AutoDiscovered and collapse it to
// an effective record with Merge.
type Resolved struct {
	Kind   ResolvedKind
	Global *GlobalEntry
	Local  *Record
}

// GlobalOnly wraps a complete registry entry.
func GlobalOnly(g *GlobalEntry) Resolved {
	return Resolved{Kind: KindGlobalOnly, Global: g}
}

// ProjectFirst pairs a registry entry with the project's local config.
func ProjectFirst(g *GlobalEntry, local *Record) Resolved {
	return Resolved{Kind: KindProjectFirst, Global: g, Local: local}
}

// AutoDiscovered wraps a local config with no registry entry.
func AutoDiscovered(local *Record) Resolved {
	return Resolved{Kind: KindAutoDiscovered, Local: local}
}

// Merge collapses the union into one effective record.
//
// For project-first, local values win for every key present in both
// sources; DateRegistered exists only globally and is always carried
// over. A divergent registered path is an identity conflict and fails
// with an InconsistentConfigError; callers log it and skip the record
// rather than aborting the whole operation.
func (r Resolved) Merge() (*Record, error) {
	switch r.Kind {
	case KindGlobalOnly:
		if r.Global == nil || r.Global.Complete == nil {
			return nil, fmt.Errorf("global-only entry for %q has no record data", r.globalID())
		}
		out := r.Global.Complete.Clone()
		out.ID = r.Global.ID()
		out.Path = r.Global.Path
		out.Active = r.Global.Active
		out.DateRegistered = r.Global.DateRegistered
		out.Strategy = StrategyGlobalOnly
		return out, nil

	case KindProjectFirst:
		if r.Global == nil || r.Local == nil {
			return nil, fmt.Errorf("project-first entry for %q is missing a side", r.globalID())
		}
		if r.Global.Path != r.Local.Path {
			return nil, &InconsistentConfigError{
				ID:     r.Global.ID(),
				Field:  "path",
				Global: r.Global.Path,
				Local:  r.Local.Path,
			}
		}
		out := r.Local.Clone()
		out.ID = filepath.Base(out.Path)
		out.DateRegistered = r.Global.DateRegistered
		out.Strategy = StrategyProjectFirst
		return out, nil

	case KindAutoDiscovered:
		if r.Local == nil {
			return nil, fmt.Errorf("auto-discovered entry has no local config")
		}
		out := r.Local.Clone()
		out.ID = filepath.Base(out.Path)
		out.DateRegistered = time.Time{}
		out.Strategy = StrategyAutoDiscovery
		return out, nil
	}
	return nil, fmt.Errorf("unknown resolved kind %d", int(r.Kind))
}

func (r Resolved) globalID() string {
	if r.Global != nil {
		return r.Global.ID()
	}
	return "?"
}
