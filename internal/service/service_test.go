package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdown-ticket/mdt/internal/cache"
	"github.com/markdown-ticket/mdt/internal/config"
	"github.com/markdown-ticket/mdt/internal/discovery"
	"github.com/markdown-ticket/mdt/internal/guard"
	"github.com/markdown-ticket/mdt/internal/logging"
	"github.com/markdown-ticket/mdt/internal/project"
	"github.com/markdown-ticket/mdt/internal/store"
)

// fixture wires a full service over scratch directories.
type fixture struct {
	svc         *Service
	store       *store.Store
	projectsDir string
	searchRoot  string
}

// newFixture builds a service. When discover is true the config enables
// auto-discovery over fixture.searchRoot.
func newFixture(t *testing.T, discover bool) *fixture {
	t.Helper()

	projectsDir := t.TempDir()
	searchRoot := t.TempDir()

	content := "[discovery]\nautoDiscover = false\n"
	if discover {
		content = fmt.Sprintf("[discovery]\nautoDiscover = true\nsearchPaths = [%q]\n", searchRoot)
	}
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	cfgSvc, err := config.NewService(cfgPath)
	require.NoError(t, err)

	logger := logging.NewNop()
	st := store.New(projectsDir, logger)
	svc := New(
		cfgSvc,
		st,
		discovery.New(st, logger),
		cache.New(time.Minute, logger, nil),
		guard.New(),
		logger,
	)

	return &fixture{svc: svc, store: st, projectsDir: projectsDir, searchRoot: searchRoot}
}

func (f *fixture) projectDir(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func TestCreateProjectFirst(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "myproj")

	rec, err := f.svc.Create(ctx, CreateSpec{Name: "My Project", Code: "myp", Path: dir})
	require.NoError(t, err)

	assert.Equal(t, "myproj", rec.ID)
	assert.Equal(t, "MYP", rec.Code, "code normalized to uppercase")
	assert.Equal(t, project.StrategyProjectFirst, rec.Strategy)
	assert.Equal(t, project.DefaultTicketsPath, rec.TicketsPath)
	assert.True(t, rec.Active)
	assert.False(t, rec.DateRegistered.IsZero())
	assert.NotZero(t, rec.Version)

	// Layout: complete local config plus a minimal registry pointer.
	assert.FileExists(t, store.LocalConfigPath(dir))
	assert.FileExists(t, f.store.GlobalPath("myproj"))
	entry, err := f.store.ReadGlobal(ctx, "myproj")
	require.NoError(t, err)
	assert.Nil(t, entry.Complete, "registry entry must be the minimal form")

	// Round trip through every lookup form.
	for _, key := range []string{"myproj", "MYP", "myp", dir} {
		got, err := f.svc.Get(ctx, key)
		require.NoError(t, err, "Get(%q)", key)
		assert.Equal(t, rec.ID, got.ID)
	}
}

func TestCreateGlobalOnly(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "remote")

	rec, err := f.svc.Create(ctx, CreateSpec{
		Name: "Remote", Code: "REM", Path: dir, GlobalOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, project.StrategyGlobalOnly, rec.Strategy)

	// Nothing written into the project directory.
	assert.NoFileExists(t, store.LocalConfigPath(dir))
	entry, err := f.store.ReadGlobal(ctx, "remote")
	require.NoError(t, err)
	require.NotNil(t, entry.Complete, "registry entry must be the complete form")
	assert.Equal(t, "REM", entry.Complete.Code)

	got, err := f.svc.Get(ctx, "remote")
	require.NoError(t, err)
	assert.Equal(t, project.StrategyGlobalOnly, got.Strategy)
}

func TestCreateAutoDiscovery(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	dir := filepath.Join(f.searchRoot, "sidecar")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	rec, err := f.svc.Create(ctx, CreateSpec{Name: "Sidecar", Code: "SIDE", Path: dir})
	require.NoError(t, err)
	assert.Equal(t, project.StrategyAutoDiscovery, rec.Strategy)

	// Local config only; never registered.
	assert.FileExists(t, store.LocalConfigPath(dir))
	assert.NoFileExists(t, f.store.GlobalPath("sidecar"))

	// Found again through the scan.
	got, err := f.svc.Get(ctx, "sidecar")
	require.NoError(t, err)
	assert.Equal(t, project.StrategyAutoDiscovery, got.Strategy)
	assert.True(t, got.DateRegistered.IsZero(), "auto-discovered projects have no registration date")
}

func TestCreateDiscoveryDisabledIgnoresSearchPaths(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := filepath.Join(f.searchRoot, "wouldbe")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	rec, err := f.svc.Create(ctx, CreateSpec{Name: "Would Be", Code: "WBD", Path: dir})
	require.NoError(t, err)
	assert.Equal(t, project.StrategyProjectFirst, rec.Strategy,
		"a project that could never be rediscovered must not be stored discovery-only")
}

func TestCreateRejectsDuplicate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "dup")

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Dup", Code: "DUP", Path: dir})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateSpec{Name: "Dup Again", Code: "DUA", Path: dir})
	assert.ErrorIs(t, err, project.ErrExists)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "valid")

	_, err := f.svc.Create(ctx, CreateSpec{Name: "", Code: "TEST123", Path: dir})
	require.ErrorIs(t, err, project.ErrValidation)

	var ve *project.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Violations, 2, "all violations collected in one error")

	// Nothing was written.
	assert.NoFileExists(t, store.LocalConfigPath(dir))
}

func TestCreateDefaultsRepositoryURLFromGit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "gitproj")

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{"git@github.com:owner/gitproj.git"},
	})
	require.NoError(t, err)

	rec, err := f.svc.Create(ctx, CreateSpec{Name: "Git Project", Code: "GIT", Path: dir})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/owner/gitproj", rec.RepositoryURL)
}

func TestGetNotFoundSuggestions(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSpec{Name: "P", Code: "MDT", Path: f.projectDir(t, "p")})
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, "MTD")
	require.ErrorIs(t, err, project.ErrNotFound)

	var nf *project.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, []string{"MDT"}, nf.Suggestions)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "upd")

	created, err := f.svc.Create(ctx, CreateSpec{Name: "Before", Code: "UPD", Path: dir})
	require.NoError(t, err)

	name := "After"
	desc := "now with a description"
	got, err := f.svc.Update(ctx, "upd", Patch{Name: &name, Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, desc, got.Description)
	assert.Equal(t, created.DateRegistered, got.DateRegistered, "registration date survives updates")

	// The change is on disk, not just in memory.
	fresh, err := f.svc.Get(ctx, "upd")
	require.NoError(t, err)
	assert.Equal(t, "After", fresh.Name)
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSpec{Name: "P", Code: "UPV", Path: f.projectDir(t, "upv")})
	require.NoError(t, err)

	bad := "not a code"
	_, err = f.svc.Update(ctx, "upv", Patch{Code: &bad})
	assert.ErrorIs(t, err, project.ErrValidation)

	// The stored record is untouched.
	got, err := f.svc.Get(ctx, "upv")
	require.NoError(t, err)
	assert.Equal(t, "UPV", got.Code)
}

func TestUpdateNotFound(t *testing.T) {
	f := newFixture(t, false)
	name := "x"
	_, err := f.svc.Update(context.Background(), "ghost", Patch{Name: &name})
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestCommitConflict(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "race")

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Race", Code: "RAC", Path: dir})
	require.NoError(t, err)

	current, err := f.svc.find(ctx, "race")
	require.NoError(t, err)

	// Another writer lands between this writer's lookup and its commit.
	other := current.Clone()
	other.Name = "Other Writer"
	require.NoError(t, f.store.WriteLocal(ctx, other))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(store.LocalConfigPath(dir), future, future))

	next := current.Clone()
	next.Name = "Loser"
	err = f.svc.commit(ctx, current, next)
	require.ErrorIs(t, err, project.ErrConflict)

	var ce *project.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "race", ce.ID)

	// The losing write changed nothing.
	onDisk, err := f.store.ReadLocal(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, "Other Writer", onDisk.Name)
}

func TestUpdateConcurrentWritersConflict(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "cw")

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Original", Code: "CWX", Path: dir})
	require.NoError(t, err)

	// Back-date the version marker so the winner's write visibly bumps
	// it even on coarse filesystem timestamps.
	past := time.Now().Add(-5 * time.Second)
	require.NoError(t, os.Chtimes(store.LocalConfigPath(dir), past, past))

	// Hold the project's lock so both writers capture the same version
	// marker before either can commit.
	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.svc.guard.Do(ctx, "cw", func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	name := "Writer A"
	desc := "writer b description"
	results := make(chan error, 2)
	go func() {
		_, err := f.svc.Update(ctx, "cw", Patch{Name: &name})
		results <- err
	}()
	go func() {
		_, err := f.svc.Update(ctx, "cw", Patch{Description: &desc})
		results <- err
	}()

	// Let both writers finish their lookup and queue on the lock.
	time.Sleep(200 * time.Millisecond)
	close(release)

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
		} else {
			require.ErrorIs(t, err, project.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, successes, "exactly one writer wins")
	assert.Equal(t, 1, conflicts, "the loser fails with a conflict")

	// The final state carries exactly the winner's patch, never a merge
	// of both.
	final, err := f.svc.Get(ctx, "cw")
	require.NoError(t, err)
	wonName := final.Name == name
	wonDesc := final.Description == desc
	assert.True(t, wonName != wonDesc,
		"final state mixes both patches: name=%q desc=%q", final.Name, final.Description)
}

func TestSetActive(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	dir := f.projectDir(t, "tog")

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Toggle", Code: "TOG", Path: dir})
	require.NoError(t, err)

	got, err := f.svc.SetActive(ctx, "tog", false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	// Both halves of the project-first layout agree.
	entry, err := f.store.ReadGlobal(ctx, "tog")
	require.NoError(t, err)
	assert.False(t, entry.Active)
	local, err := f.store.ReadLocal(ctx, dir)
	require.NoError(t, err)
	assert.False(t, local.Active)
}

func TestDeletePerStrategy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	pfDir := f.projectDir(t, "pf")
	_, err := f.svc.Create(ctx, CreateSpec{Name: "PF", Code: "PFX", Path: pfDir})
	require.NoError(t, err)

	goDir := f.projectDir(t, "go")
	_, err = f.svc.Create(ctx, CreateSpec{Name: "GO", Code: "GOX", Path: goDir, GlobalOnly: true})
	require.NoError(t, err)

	adDir := filepath.Join(f.searchRoot, "ad")
	require.NoError(t, os.MkdirAll(adDir, 0o755))
	_, err = f.svc.Create(ctx, CreateSpec{Name: "AD", Code: "ADX", Path: adDir})
	require.NoError(t, err)

	for _, id := range []string{"pf", "go", "ad"} {
		require.NoError(t, f.svc.Delete(ctx, id), "delete %s", id)
		_, err := f.svc.Get(ctx, id)
		assert.ErrorIs(t, err, project.ErrNotFound, "%s still found after delete", id)
	}

	assert.NoFileExists(t, store.LocalConfigPath(pfDir))
	assert.NoFileExists(t, f.store.GlobalPath("pf"))
	assert.NoFileExists(t, f.store.GlobalPath("go"))
	assert.NoFileExists(t, store.LocalConfigPath(adDir))

	// The directories themselves are never touched.
	for _, dir := range []string{pfDir, goDir, adDir} {
		assert.DirExists(t, dir)
	}
}

func TestDeleteNotFound(t *testing.T) {
	f := newFixture(t, false)
	err := f.svc.Delete(context.Background(), "ghost")
	assert.ErrorIs(t, err, project.ErrNotFound)
}

func TestListMergesRegistryAndDiscovery(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Registered", Code: "REG", Path: f.projectDir(t, "reg")})
	require.NoError(t, err)

	// A project that only exists as a local config under the search root.
	wild := filepath.Join(f.searchRoot, "wild")
	require.NoError(t, os.MkdirAll(wild, 0o755))
	require.NoError(t, f.store.WriteLocal(ctx, &project.Record{
		ID: "wild", Code: "WLD", Name: "Wild", Path: wild, TicketsPath: "docs/CRs",
	}))

	recs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	byID := map[string]*project.Record{}
	for _, r := range recs {
		byID[r.ID] = r
	}
	assert.Equal(t, project.StrategyProjectFirst, byID["reg"].Strategy)
	assert.Equal(t, project.StrategyAutoDiscovery, byID["wild"].Strategy)
}

func TestListSkipsBrokenRegistryEntry(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateSpec{Name: "Fine", Code: "FIN", Path: f.projectDir(t, "fine")})
	require.NoError(t, err)

	// A registered project whose local config has gone missing.
	gone := f.projectDir(t, "gone")
	_, err = f.svc.Create(ctx, CreateSpec{Name: "Gone", Code: "GON", Path: gone})
	require.NoError(t, err)
	require.NoError(t, os.Remove(store.LocalConfigPath(gone)))
	f.svc.cache.Invalidate()

	recs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1, "the broken entry must not hide the healthy one")
	assert.Equal(t, "fine", recs[0].ID)
}

func TestMutationsInvalidateCache(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	recs, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = f.svc.Create(ctx, CreateSpec{Name: "New", Code: "NEW", Path: f.projectDir(t, "new")})
	require.NoError(t, err)

	recs, err = f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1, "create must invalidate the cached list")
}

func TestRegisteredProjectInsideSearchPathNotDuplicated(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	// Registered global-only, but its directory sits under the search
	// root and carries no local config, so only the registry entry counts.
	dir := filepath.Join(f.searchRoot, "both")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err := f.svc.Create(ctx, CreateSpec{Name: "Both", Code: "BTH", Path: dir, GlobalOnly: true})
	require.NoError(t, err)

	recs, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, project.StrategyGlobalOnly, recs[0].Strategy,
		"the registered strategy wins over discovery")
}
