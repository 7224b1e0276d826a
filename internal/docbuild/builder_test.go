package docbuild

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/docindex"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
	"git.home.luguber.info/inful/docfleet/internal/registry"
	"git.home.luguber.info/inful/docfleet/internal/testutil"
)

type fixture struct {
	repos  string
	deploy string
	reg    *registry.Registry
}

// newFixture registers alice/foo with one workspace "ws" holding foo-core and foo-cli.
func newFixture(t *testing.T, generated ...string) (fixture, metadata.Workspace) {
	t.Helper()
	base := t.TempDir()
	f := fixture{
		repos:  filepath.Join(base, "repos"),
		deploy: filepath.Join(base, "deploy"),
		reg:    registry.New(),
	}
	wsDir := filepath.Join(f.repos, "alice", "foo", "ws")
	ws := metadata.Workspace{
		Dir:       wsDir,
		OutputDir: filepath.Join(wsDir, "target", "doc"),
		Components: []metadata.Component{
			{Name: "foo-core", Slug: "foo_core"},
			{Name: "foo-cli", Slug: "foo_cli"},
		},
	}
	for _, slug := range generated {
		require.NoError(t, os.MkdirAll(filepath.Join(ws.OutputDir, slug), 0o750))
	}
	require.NoError(t, os.MkdirAll(wsDir, 0o750))
	f.reg.Insert(metadata.RepoMetadata{
		ID:         testutil.ID("alice/foo"),
		Dir:        filepath.Join(f.repos, "alice", "foo"),
		Workspaces: []metadata.Workspace{ws},
	})
	return f, ws
}

func TestBuildAliceFooScenario(t *testing.T) {
	f, ws := newFixture(t, "foo_core")
	// Non-directory entries are not documentation units.
	require.NoError(t, os.WriteFile(filepath.Join(ws.OutputDir, "foo_cli"), []byte("x"), 0o600))

	runner := &command.FakeRunner{}
	b := &Builder{Runner: runner, ReposRoot: f.repos, DeployRoot: f.deploy, URLPrefix: "https://docs.example.com"}
	ix := docindex.New()

	relocs, results, err := b.Build(context.Background(), f.reg, ix)
	require.NoError(t, err)
	ix.Finalize()

	data, err := json.Marshal(ix)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"alice":{"foo":{"foo-core":"https://docs.example.com/alice/foo/ws/foo_core","foo-cli":null}}}`,
		string(data))

	require.Len(t, relocs, 1)
	assert.Equal(t, ws.OutputDir, relocs[0].Source)
	assert.Equal(t, filepath.Join(f.deploy, "alice", "foo", "ws"), relocs[0].Destination)
	assert.Equal(t, "alice/foo/ws", relocs[0].Workspace)

	require.Len(t, results, 1)
	assert.Equal(t, []string{"foo-cli"}, results[0].Missing())
	assert.NoError(t, results[0].BuildErr)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, ws.Dir, calls[0].Dir)
	assert.Equal(t, "cargo", calls[0].Name)
	assert.Equal(t, []string{"doc", "--document-private-items", "--workspace", "--no-deps"}, calls[0].Args)
}

func TestBuildFailureStillInspectsOutput(t *testing.T) {
	f, _ := newFixture(t, "foo_core", "foo_cli")
	runner := &command.FakeRunner{Handler: func(command.Spec) (command.Output, error) {
		return command.Output{ExitCode: 101}, &command.ExitError{Command: "cargo doc", ExitCode: 101}
	}}
	b := &Builder{Runner: runner, ReposRoot: f.repos, DeployRoot: f.deploy}
	ix := docindex.New()

	relocs, results, err := b.Build(context.Background(), f.reg, ix)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, errors.HasCategory(results[0].BuildErr, errors.CategoryBuild))
	assert.Empty(t, results[0].Missing())
	assert.Len(t, relocs, 1)

	got, ok := ix.Lookup("alice", "foo", "foo-core")
	require.True(t, ok)
	assert.Equal(t, "/alice/foo/ws/foo_core", got.URL, "empty prefix yields a root-relative URL")
}

func TestUnlistableOutputMarksAllMissing(t *testing.T) {
	f, _ := newFixture(t) // no output directory at all
	next := metadata.RepoMetadata{
		ID: testutil.ID("bob/bar"),
		Workspaces: []metadata.Workspace{{
			Dir:        filepath.Join(f.repos, "bob", "bar"),
			OutputDir:  filepath.Join(f.repos, "bob", "bar", "target", "doc"),
			Components: []metadata.Component{{Name: "bar", Slug: "bar"}},
		}},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(next.Workspaces[0].OutputDir, "bar"), 0o750))
	f.reg.Insert(next)

	b := &Builder{Runner: &command.FakeRunner{}, ReposRoot: f.repos, DeployRoot: f.deploy, URLPrefix: "https://d/"}
	ix := docindex.New()
	relocs, results, err := b.Build(context.Background(), f.reg, ix)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Error(t, results[0].ListErr)
	assert.ElementsMatch(t, []string{"foo-core", "foo-cli"}, results[0].Missing())

	// Processing continued with the next workspace.
	require.Len(t, relocs, 1)
	assert.Equal(t, "bob/bar", relocs[0].Workspace)
	got, _ := ix.Lookup("bob", "bar", "bar")
	assert.Equal(t, "https://d/bob/bar/bar", got.URL)

	cli, ok := ix.Lookup("alice", "foo", "foo-cli")
	require.True(t, ok)
	assert.False(t, cli.Present)
}

func TestWorkspaceOutsideReposRoot(t *testing.T) {
	f, _ := newFixture(t, "foo_core")
	b := &Builder{Runner: &command.FakeRunner{}, ReposRoot: filepath.Join(f.repos, "elsewhere"), DeployRoot: f.deploy}
	ix := docindex.New()

	relocs, results, err := b.Build(context.Background(), f.reg, ix)
	require.NoError(t, err)
	assert.Empty(t, relocs)
	require.Len(t, results, 1)
	assert.True(t, errors.HasCategory(results[0].ListErr, errors.CategoryRelocation))
}

func TestBuildStopsOnCancel(t *testing.T) {
	f, _ := newFixture(t, "foo_core")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &command.FakeRunner{}
	b := &Builder{Runner: runner, ReposRoot: f.repos, DeployRoot: f.deploy}

	_, _, err := b.Build(ctx, f.reg, docindex.New())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.Calls())
}

func TestDocURL(t *testing.T) {
	assert.Equal(t, "https://docs.example.com/alice/foo/ws/foo_core", DocURL("https://docs.example.com/", "alice/foo/ws", "foo_core"))
	assert.Equal(t, "/alice/foo/foo", DocURL("", "alice/foo", "foo"))
}

func TestLaterWorkspaceReplacesSharedComponent(t *testing.T) {
	f, ws := newFixture(t, "foo_core")
	second := metadata.Workspace{
		Dir:        filepath.Join(f.repos, "alice", "foo", "ws2"),
		OutputDir:  filepath.Join(f.repos, "alice", "foo", "ws2", "target", "doc"),
		Components: []metadata.Component{{Name: "foo-cli", Slug: "foo_cli"}},
	}
	require.NoError(t, os.MkdirAll(filepath.Join(second.OutputDir, "foo_cli"), 0o750))
	f.reg.Insert(metadata.RepoMetadata{
		ID:         testutil.ID("alice/foo"),
		Dir:        filepath.Join(f.repos, "alice", "foo"),
		Workspaces: []metadata.Workspace{ws, second},
	})

	b := &Builder{Runner: &command.FakeRunner{}, ReposRoot: f.repos, DeployRoot: f.deploy}
	ix := docindex.New()
	_, results, err := b.Build(context.Background(), f.reg, ix)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"foo-cli"}, results[0].Missing())

	got, ok := ix.Lookup("alice", "foo", "foo-cli")
	require.True(t, ok)
	assert.True(t, got.Present)
	assert.Equal(t, "/alice/foo/ws2/foo_cli", got.URL)
}
