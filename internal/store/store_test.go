package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/project"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(t.TempDir(), logging.NewNop())
}

func completeEntry(path string) *project.GlobalEntry {
	return &project.GlobalEntry{
		Path:           path,
		Active:         true,
		DateRegistered: time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC),
		Complete: &project.Record{
			ID:          filepath.Base(path),
			Code:        "MDT",
			Name:        "Markdown Tickets",
			Path:        path,
			TicketsPath: "docs/CRs",
			Active:      true,
			Strategy:    project.StrategyGlobalOnly,
		},
	}
}

func TestGlobalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	entry := completeEntry(filepath.Join(dir, "mdt"))
	if err := s.WriteGlobal(ctx, entry); err != nil {
		t.Fatalf("WriteGlobal failed: %v", err)
	}

	got, err := s.ReadGlobal(ctx, "mdt")
	if err != nil {
		t.Fatalf("ReadGlobal failed: %v", err)
	}
	if got.Path != entry.Path || !got.Active {
		t.Errorf("entry fields lost: %+v", got)
	}
	if got.Complete == nil {
		t.Fatal("complete entry read back as minimal")
	}
	if got.Complete.Code != "MDT" || got.Complete.Name != "Markdown Tickets" {
		t.Errorf("record fields lost: %+v", got.Complete)
	}
	if !got.DateRegistered.Equal(entry.DateRegistered) {
		t.Errorf("DateRegistered = %v, want %v", got.DateRegistered, entry.DateRegistered)
	}
}

func TestGlobalMinimalForm(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entry := &project.GlobalEntry{
		Path:           "/home/user/work/api",
		Active:         true,
		DateRegistered: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.WriteGlobal(ctx, entry); err != nil {
		t.Fatalf("WriteGlobal failed: %v", err)
	}

	got, err := s.ReadGlobal(ctx, "api")
	if err != nil {
		t.Fatalf("ReadGlobal failed: %v", err)
	}
	if got.Complete != nil {
		t.Errorf("minimal entry read back as complete: %+v", got.Complete)
	}

	// The minimal form must not contain record fields on disk.
	data, err := os.ReadFile(s.GlobalPath("api"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "code") {
		t.Errorf("minimal registry file carries record fields:\n%s", data)
	}
}

func TestReadGlobalMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadGlobal(context.Background(), "ghost")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("ReadGlobal error = %v, want fs.ErrNotExist", err)
	}
}

func TestReadGlobalParseError(t *testing.T) {
	s := newTestStore(t)
	path := s.GlobalPath("broken")
	if err := os.WriteFile(path, []byte("path = \"/x\"\nactive = [not toml"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := s.ReadGlobal(context.Background(), "broken")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("ReadGlobal error = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
	}
	if pe.Line == 0 {
		t.Error("ParseError.Line not populated")
	}
}

func TestListGlobalSkipsBrokenEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.WriteGlobal(ctx, completeEntry("/home/user/work/alpha")); err != nil {
		t.Fatal(err)
	}
	if err := s.WriteGlobal(ctx, completeEntry("/home/user/work/beta")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.GlobalPath("broken"), []byte("= nonsense"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Non-TOML files and dotfiles are ignored entirely.
	if err := os.WriteFile(filepath.Join(s.ProjectsDir(), "README.md"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := s.ListGlobal(ctx)
	if err != nil {
		t.Fatalf("ListGlobal failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID() != "alpha" || entries[1].ID() != "beta" {
		t.Errorf("entries not sorted by id: %s, %s", entries[0].ID(), entries[1].ID())
	}
}

func TestListGlobalMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"), logging.NewNop())
	entries, err := s.ListGlobal(context.Background())
	if err != nil {
		t.Fatalf("ListGlobal failed: %v", err)
	}
	if entries != nil {
		t.Errorf("got %v, want nil for missing registry dir", entries)
	}
}

func TestLocalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()

	rec := &project.Record{
		ID:          filepath.Base(dir),
		Code:        "API",
		Name:        "API Server",
		Path:        dir,
		TicketsPath: "tickets",
		Description: "the backend",
		Active:      true,
		Document:    project.DocumentSettings{Paths: []string{"docs"}},
	}
	if err := s.WriteLocal(ctx, rec); err != nil {
		t.Fatalf("WriteLocal failed: %v", err)
	}

	got, err := s.ReadLocal(ctx, dir)
	if err != nil {
		t.Fatalf("ReadLocal failed: %v", err)
	}
	if got.Code != "API" || got.Name != "API Server" || got.TicketsPath != "tickets" {
		t.Errorf("fields lost: %+v", got)
	}
	if len(got.Document.Paths) != 1 || got.Document.Paths[0] != "docs" {
		t.Errorf("document settings lost: %+v", got.Document)
	}
	if got.Version == 0 {
		t.Error("Version not populated from file mtime")
	}
}

func TestReadLocalPathFallback(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	content := "[project]\nname = \"Legacy\"\ncode = \"LEG\"\nticketsPath = \"docs/CRs\"\n"
	if err := os.WriteFile(LocalConfigPath(dir), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadLocal(context.Background(), dir)
	if err != nil {
		t.Fatalf("ReadLocal failed: %v", err)
	}
	if got.Path != dir {
		t.Errorf("Path = %q, want file location %q", got.Path, dir)
	}
	if got.ID != filepath.Base(dir) {
		t.Errorf("ID = %q, want %q", got.ID, filepath.Base(dir))
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.DeleteGlobal(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteGlobal on missing entry failed: %v", err)
	}
	if err := s.DeleteLocal(ctx, t.TempDir()); err != nil {
		t.Errorf("DeleteLocal on missing config failed: %v", err)
	}
}

func TestVersionMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.toml")

	v, err := Version(path)
	if err != nil || v != 0 {
		t.Fatalf("Version(missing) = %d, %v, want 0, nil", v, err)
	}

	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	v1, err := Version(path)
	if err != nil || v1 == 0 {
		t.Fatalf("Version = %d, %v, want nonzero, nil", v1, err)
	}

	// A later write moves the marker forward.
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	v2, err := Version(path)
	if err != nil {
		t.Fatal(err)
	}
	if v2 <= v1 {
		t.Errorf("version did not advance: %d -> %d", v1, v2)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "f.toml")

	// Absent file: restore removes whatever was written since.
	data, existed, err := s.Snapshot(path)
	if err != nil {
		t.Fatal(err)
	}
	if existed {
		t.Fatal("Snapshot reported a missing file as existing")
	}
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, path, data, existed); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Restore of an absent snapshot left the file behind")
	}

	// Existing file: restore brings back the old bytes.
	if err := os.WriteFile(path, []byte("a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, existed, err = s.Snapshot(path)
	if err != nil || !existed {
		t.Fatalf("Snapshot = existed %t, %v", existed, err)
	}
	if err := os.WriteFile(path, []byte("a = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Restore(ctx, path, data, existed); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	back, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(back) != "a = 1\n" {
		t.Errorf("restored content = %q, want %q", back, "a = 1\n")
	}
}
