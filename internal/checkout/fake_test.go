package checkout

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sort"
	"sync"

	"git.home.luguber.info/inful/docfleet/internal/git"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
)

// fakeVCS keeps submodules in memory and records every mutating call.
type fakeVCS struct {
	mu        sync.Mutex
	root      string
	modules   map[string]string // path -> url
	state     map[string]bool   // paths with on-disk leftovers
	ops       []string
	failAdd   map[string]bool // path -> add fails
	leaveOnly bool            // failed add leaves state behind
	failStep  map[string]bool // op name -> fails
}

func newFakeVCS(initial map[string]string) *fakeVCS {
	f := &fakeVCS{
		root:     "/work",
		modules:  map[string]string{},
		state:    map[string]bool{},
		failAdd:  map[string]bool{},
		failStep: map[string]bool{},
	}
	for p, u := range initial {
		f.modules[p] = u
		f.state[p] = true
	}
	return f
}

func (f *fakeVCS) record(op, path string) error {
	f.ops = append(f.ops, op+" "+path)
	if f.failStep[op] {
		return stderrors.New(op + " failed")
	}
	return nil
}

func (f *fakeVCS) Root() string { return f.root }

func (f *fakeVCS) Submodules(context.Context) ([]git.Submodule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]git.Submodule, 0, len(f.modules))
	for p, u := range f.modules {
		out = append(out, git.Submodule{Name: p, Path: p, URL: u})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *fakeVCS) Add(_ context.Context, path, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "add "+path)
	if f.failAdd[path] {
		if f.leaveOnly {
			f.state[path] = true
		}
		return stderrors.New("clone failed")
	}
	f.modules[path] = url
	f.state[path] = true
	return nil
}

func (f *fakeVCS) Deinit(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("deinit", path)
}

func (f *fakeVCS) Untrack(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("untrack", path); err != nil {
		return err
	}
	delete(f.modules, path)
	return nil
}

func (f *fakeVCS) PurgeModuleState(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("purge", path)
}

func (f *fakeVCS) RemoveWorkdir(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete", path); err != nil {
		return err
	}
	delete(f.state, path)
	return nil
}

func (f *fakeVCS) HasState(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[path]
}

func (f *fakeVCS) Commit(_ context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("commit", message)
}

func (f *fakeVCS) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// fakeResolver fails for identifiers in fail and records resolved dirs.
type fakeResolver struct {
	fail  map[identifier.ID]error
	calls []string
}

func (r *fakeResolver) Resolve(_ context.Context, id identifier.ID, dir string) (metadata.RepoMetadata, error) {
	r.calls = append(r.calls, filepath.ToSlash(dir))
	if err, ok := r.fail[id]; ok {
		return metadata.RepoMetadata{}, err
	}
	return metadata.RepoMetadata{
		ID:  id,
		Dir: dir,
		Workspaces: []metadata.Workspace{{
			Dir:        filepath.Join(dir, "ws"),
			Components: []metadata.Component{{Name: id.Name, Slug: id.Name}},
		}},
	}, nil
}
