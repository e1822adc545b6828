// Package project defines the project record domain model: the record
// itself, the storage strategy variants, field validation, and the merge
// of global-registry and local-config data into one effective record.
package project

import (
	"path/filepath"
	"time"
)

// DefaultTicketsPath is where ticket markdown files live relative to the
// project root when the user does not configure one.
const DefaultTicketsPath = "docs/CRs"

// DocumentSettings controls which directories the document scanner
// considers for a project.
type DocumentSettings struct {
	Paths          []string `toml:"paths,omitempty" json:"paths,omitempty"`
	ExcludeFolders []string `toml:"excludeFolders,omitempty" json:"excludeFolders,omitempty"`
	MaxDepth       int      `toml:"maxDepth,omitempty" json:"maxDepth,omitempty"`
}

// Record is the effective, validated view of a project's configuration.
// Every external interface renders exactly this field set.
type Record struct {
	// ID is the project directory basename.
	ID string `json:"id"`

	// Code is the ticket prefix, uppercase, 2-5 letters.
	Code string `json:"code"`

	// Name is the human-readable project name.
	Name string `json:"name"`

	// Path is the absolute project directory.
	Path string `json:"path"`

	// TicketsPath is relative to Path.
	TicketsPath string `json:"ticketsPath"`

	Description   string `json:"description,omitempty"`
	RepositoryURL string `json:"repositoryUrl,omitempty"`

	Active   bool     `json:"active"`
	Strategy Strategy `json:"strategy"`

	Document DocumentSettings `json:"document"`

	// DateRegistered is when the project was first registered. Zero for
	// auto-discovered projects, which are never registered.
	DateRegistered time.Time `json:"dateRegistered,omitzero"`

	// Version is an opaque concurrent-modification marker: the
	// modification time of the backing config file in UnixNano, or 0
	// when the record has never been persisted.
	Version int64 `json:"version"`
}

// IdentityConsistent reports whether the record's ID matches its path
// basename. Records violating this (for example a worktree clone whose
// local config names a different directory) are excluded from discovery
// results rather than errored.
func (r *Record) IdentityConsistent() bool {
	return r.ID != "" && r.ID == filepath.Base(r.Path)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Document.Paths = append([]string(nil), r.Document.Paths...)
	out.Document.ExcludeFolders = append([]string(nil), r.Document.ExcludeFolders...)
	return &out
}
