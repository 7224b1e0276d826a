package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// Submodule is one entry of .gitmodules as seen by the tracker.
type Submodule struct {
	Name string
	Path string // relative to the repository root, slash separated
	URL  string
}

// Options configures commit identity and whether commits are recorded at all.
type Options struct {
	AuthorName  string
	AuthorEmail string
	Commit      bool
}

// Repository manages the submodules of the git repository rooted at Root.
type Repository struct {
	root   string
	gitDir string
	repo   *gogit.Repository
	runner command.Runner
	opts   Options
}

// Open opens the git repository at root. Failure to open it is fatal for a run.
func Open(root string, runner command.Runner, opts Options) (*Repository, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.VCSError("failed to resolve repository root").Fatal().WithCause(err).WithContext("path", root).Build()
	}
	repo, err := gogit.PlainOpen(abs)
	if err != nil {
		return nil, errors.VCSError("failed to open git repository").Fatal().WithCause(err).WithContext("path", abs).Build()
	}
	gitDir, err := resolveGitDir(abs)
	if err != nil {
		return nil, errors.VCSError("failed to locate git directory").Fatal().WithCause(err).WithContext("path", abs).Build()
	}
	if runner == nil {
		runner = command.NewExecRunner()
	}
	return &Repository{root: abs, gitDir: gitDir, repo: repo, runner: runner, opts: opts}, nil
}

// Root returns the absolute repository root.
func (r *Repository) Root() string { return r.root }

// Submodules re-reads .gitmodules and returns the tracked submodules sorted by path.
func (r *Repository) Submodules(_ context.Context) ([]Submodule, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, errors.VCSError("failed to open worktree").WithCause(err).Build()
	}
	subs, err := wt.Submodules()
	if err != nil {
		return nil, errors.VCSError("failed to read submodules").WithCause(err).WithContext("path", r.root).Build()
	}
	out := make([]Submodule, 0, len(subs))
	for _, s := range subs {
		cfg := s.Config()
		out = append(out, Submodule{Name: cfg.Name, Path: filepath.ToSlash(cfg.Path), URL: cfg.URL})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	slog.Debug("Enumerated submodules", logfields.Count(len(out)))
	return out, nil
}

// Add registers url as a submodule checked out at path.
func (r *Repository) Add(ctx context.Context, path, url string) error {
	return r.git(ctx, "submodule add", path, "submodule", "add", "--", url, path)
}

// Deinit unregisters the submodule and clears its working tree.
func (r *Repository) Deinit(ctx context.Context, path string) error {
	return r.git(ctx, "submodule deinit", path, "submodule", "deinit", "-f", "--", path)
}

// Untrack removes the submodule from the index and .gitmodules.
func (r *Repository) Untrack(ctx context.Context, path string) error {
	return r.git(ctx, "rm", path, "rm", "-f", "--", path)
}

// PurgeModuleState deletes the submodule's internal repository under <gitdir>/modules.
func (r *Repository) PurgeModuleState(_ context.Context, path string) error {
	dir := r.moduleStateDir(path)
	if err := os.RemoveAll(dir); err != nil {
		return errors.VCSError("failed to purge submodule state").WithCause(err).WithContext("path", dir).Build()
	}
	return nil
}

// RemoveWorkdir deletes the submodule's working directory.
func (r *Repository) RemoveWorkdir(_ context.Context, path string) error {
	dir := filepath.Join(r.root, filepath.FromSlash(path))
	if err := os.RemoveAll(dir); err != nil {
		return errors.FileSystemError("failed to remove checkout directory").WithCause(err).WithContext("path", dir).Build()
	}
	return nil
}

// HasState reports whether anything of a checkout exists on disk (working dir or module state).
func (r *Repository) HasState(path string) bool {
	for _, p := range []string{filepath.Join(r.root, filepath.FromSlash(path)), r.moduleStateDir(path)} {
		if _, err := os.Stat(p); err == nil {
			return true
		}
	}
	return false
}

// Commit records staged changes. An empty index is not an error.
func (r *Repository) Commit(ctx context.Context, message string) error {
	if !r.opts.Commit {
		slog.Debug("Commit disabled, leaving changes staged", slog.String("message", message))
		return nil
	}
	args := []string{
		"-c", "user.name=" + r.opts.AuthorName,
		"-c", "user.email=" + r.opts.AuthorEmail,
		"commit", "-m", message,
	}
	out, err := r.runner.Run(ctx, command.Spec{Dir: r.root, Name: "git", Args: args})
	if err != nil {
		if nothingToCommit(out.Stdout) {
			slog.Debug("Nothing to commit", slog.String("message", message))
			return nil
		}
		return classify("commit", "", err)
	}
	return nil
}

func (r *Repository) git(ctx context.Context, op, path string, args ...string) error {
	if _, err := r.runner.Run(ctx, command.Spec{Dir: r.root, Name: "git", Args: args}); err != nil {
		return classify(op, path, err)
	}
	return nil
}

func (r *Repository) moduleStateDir(path string) string {
	return filepath.Join(r.gitDir, "modules", filepath.FromSlash(path))
}

func nothingToCommit(stdout []byte) bool {
	s := string(stdout)
	return strings.Contains(s, "nothing to commit") || strings.Contains(s, "no changes added to commit")
}

// resolveGitDir follows a ".git" file (worktrees, nested submodules) to the real git directory.
func resolveGitDir(root string) (string, error) {
	dotgit := filepath.Join(root, ".git")
	info, err := os.Stat(dotgit)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return dotgit, nil
	}
	data, err := os.ReadFile(dotgit)
	if err != nil {
		return "", err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(scanner.Text()), "gitdir:"); ok {
			dir := strings.TrimSpace(rest)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(root, dir)
			}
			return filepath.Clean(dir), nil
		}
	}
	return "", fmt.Errorf("%s: no gitdir line", dotgit)
}
