// Package docbuild runs the documentation build for every registered workspace,
// checks the generated output against the expected components and queues the
// output directories for deployment.
package docbuild

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/docindex"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
	"git.home.luguber.info/inful/docfleet/internal/registry"
	"git.home.luguber.info/inful/docfleet/internal/util/sets"
)

// DefaultDocCommand documents every workspace member including private items.
var DefaultDocCommand = []string{"cargo", "doc", "--document-private-items", "--workspace", "--no-deps"}

// Relocation moves a workspace's generated documentation into the deploy tree.
type Relocation struct {
	ID          identifier.ID
	Workspace   string // slash separated, relative to the repositories root
	Source      string
	Destination string
}

// WorkspaceResult is the outcome of documenting one workspace.
type WorkspaceResult struct {
	ID        identifier.ID
	Workspace string
	Duration  time.Duration
	// BuildErr is the build command failure, if any. Output is still inspected.
	BuildErr error
	// ListErr is set when the output directory could not be read; every component is then missing.
	ListErr  error
	Outcomes []docindex.ComponentOutcome
}

// Missing lists the components without generated documentation.
func (r WorkspaceResult) Missing() []string {
	var out []string
	for _, o := range r.Outcomes {
		if !o.Outcome.Present {
			out = append(out, o.Name)
		}
	}
	return out
}

// Builder documents workspaces one at a time.
type Builder struct {
	Runner command.Runner
	// Command is run in each workspace directory.
	Command []string
	// ReposRoot is the directory holding checkouts; workspace paths are made relative to it.
	ReposRoot string
	// DeployRoot receives relocated output.
	DeployRoot string
	// URLPrefix is prepended to every documentation URL, without trailing slash.
	URLPrefix string
}

// Build documents every workspace of reg in registry order, merging outcomes
// into ix as each workspace completes. Only cancellation aborts the loop.
func (b *Builder) Build(ctx context.Context, reg *registry.Registry, ix *docindex.Index) ([]Relocation, []WorkspaceResult, error) {
	var (
		relocations []Relocation
		results     []WorkspaceResult
	)
	for _, meta := range reg.Entries() {
		for _, ws := range meta.Workspaces {
			if err := ctx.Err(); err != nil {
				return relocations, results, err
			}
			res, reloc := b.buildWorkspace(ctx, meta, ws)
			results = append(results, res)
			if reloc != nil {
				relocations = append(relocations, *reloc)
			}
			mergeOutcomes(ix, meta, res)
		}
	}
	return relocations, results, nil
}

// mergeOutcomes records res in ix. A component name already indexed for the
// repository is replaced by the later workspace.
func mergeOutcomes(ix *docindex.Index, meta metadata.RepoMetadata, res WorkspaceResult) {
	for _, c := range res.Outcomes {
		if _, seen := ix.Lookup(meta.Owner(), meta.Repo(), c.Name); seen {
			slog.Warn("Component already indexed by another workspace, replacing its outcome",
				logfields.Repository(meta.ID.String()),
				logfields.Workspace(res.Workspace),
				logfields.Component(c.Name))
		}
	}
	ix.Merge(meta.Owner(), meta.Repo(), res.Outcomes)
}

func (b *Builder) buildWorkspace(ctx context.Context, meta metadata.RepoMetadata, ws metadata.Workspace) (WorkspaceResult, *Relocation) {
	start := time.Now()
	res := WorkspaceResult{ID: meta.ID}

	rel, err := b.relativeWorkspace(ws.Dir)
	if err != nil {
		res.Workspace = filepath.ToSlash(ws.Dir)
		res.ListErr = err
		res.Outcomes = allMissing(ws.Components)
		slog.Error("Workspace is outside the repositories root", logfields.Workspace(ws.Dir), logfields.Error(err))
		return res, nil
	}
	res.Workspace = rel
	log := slog.With(logfields.Repository(meta.ID.String()), logfields.Workspace(rel))

	if err := b.runBuild(ctx, ws.Dir); err != nil {
		res.BuildErr = err
		// Partial output is common; verify what was produced anyway.
		log.Error("Documentation build failed, inspecting output anyway", logfields.Error(err))
	}

	generated, err := listSlugs(ws.OutputDir)
	if err != nil {
		res.ListErr = errors.BuildCommandError("documentation output directory is not readable").
			WithCause(err).
			WithContext("path", ws.OutputDir).
			WithContext("workspace", rel).
			Build()
		res.Outcomes = allMissing(ws.Components)
		res.Duration = time.Since(start)
		log.Error("Cannot list documentation output", logfields.Path(ws.OutputDir), logfields.Error(err))
		return res, nil
	}

	res.Outcomes = make([]docindex.ComponentOutcome, 0, len(ws.Components))
	for _, c := range ws.Components {
		if !generated.Has(c.Slug) {
			log.Warn("Component produced no documentation", logfields.Component(c.Name), logfields.Slug(c.Slug))
			res.Outcomes = append(res.Outcomes, docindex.ComponentOutcome{Name: c.Name, Outcome: docindex.Missing})
			continue
		}
		res.Outcomes = append(res.Outcomes, docindex.ComponentOutcome{
			Name:    c.Name,
			Outcome: docindex.Documented(DocURL(b.URLPrefix, rel, c.Slug)),
		})
	}
	res.Duration = time.Since(start)

	reloc := &Relocation{
		ID:          meta.ID,
		Workspace:   rel,
		Source:      ws.OutputDir,
		Destination: filepath.Join(b.DeployRoot, filepath.FromSlash(rel)),
	}
	log.Info("Documented workspace",
		logfields.Count(len(res.Outcomes)),
		slog.Int("missing", len(res.Missing())),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
	return res, reloc
}

func (b *Builder) runBuild(ctx context.Context, dir string) error {
	cmdline := b.Command
	if len(cmdline) == 0 {
		cmdline = DefaultDocCommand
	}
	if _, err := b.Runner.Run(ctx, command.Spec{Dir: dir, Name: cmdline[0], Args: cmdline[1:]}); err != nil {
		return errors.BuildCommandError("documentation build failed").
			WithCause(err).
			WithContext("path", dir).
			Build()
	}
	return nil
}

// relativeWorkspace returns dir relative to the repositories root in slash form.
func (b *Builder) relativeWorkspace(dir string) (string, error) {
	root, err := filepath.Abs(b.ReposRoot)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, dir)
	if err == nil && !escapes(rel) {
		return filepath.ToSlash(rel), nil
	}
	// Tools report resolved paths; retry with symlinks evaluated on both sides.
	rroot, rerr := filepath.EvalSymlinks(root)
	rdir, derr := filepath.EvalSymlinks(dir)
	if rerr == nil && derr == nil {
		if rel, err = filepath.Rel(rroot, rdir); err == nil && !escapes(rel) {
			return filepath.ToSlash(rel), nil
		}
	}
	return "", errors.RelocationError("workspace is not below the repositories root").
		WithContext("workspace", dir).
		WithContext("repos_root", root).
		Build()
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}

// DocURL joins the URL prefix, the workspace path and the component slug.
// An empty prefix yields a root-relative URL.
func DocURL(prefix, workspace, slug string) string {
	return strings.TrimRight(prefix, "/") + "/" + workspace + "/" + slug
}

// listSlugs returns the names of the subdirectories of dir.
func listSlugs(dir string) (sets.Set[string], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := sets.New[string]()
	for _, e := range entries {
		if e.IsDir() {
			out.Add(e.Name())
			continue
		}
		if e.Type()&os.ModeSymlink != 0 {
			if info, err := os.Stat(filepath.Join(dir, e.Name())); err == nil && info.IsDir() {
				out.Add(e.Name())
			}
		}
	}
	return out, nil
}

func allMissing(components []metadata.Component) []docindex.ComponentOutcome {
	out := make([]docindex.ComponentOutcome, 0, len(components))
	for _, c := range components {
		out = append(out, docindex.ComponentOutcome{Name: c.Name, Outcome: docindex.Missing})
	}
	return out
}
