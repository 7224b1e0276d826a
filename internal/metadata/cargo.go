package metadata

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// DefaultMetadataCommand prints workspace metadata as JSON.
var DefaultMetadataCommand = []string{"cargo", "metadata", "--format-version", "1", "--no-deps"}

// DefaultOutputSubdir is the documentation folder inside a target directory.
const DefaultOutputSubdir = "doc"

// cargoMetadata is the subset of `cargo metadata` output that is consumed.
type cargoMetadata struct {
	Packages []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"packages"`
	WorkspaceMembers []string `json:"workspace_members"`
	TargetDirectory  string   `json:"target_directory"`
	WorkspaceRoot    string   `json:"workspace_root"`
}

// CargoResolver resolves workspaces by running the metadata command in each
// discovered workspace root.
type CargoResolver struct {
	Runner         command.Runner
	Command        []string
	OutputSubdir   string
	SlugSeparators string
}

// NewCargoResolver returns a resolver with default command settings.
func NewCargoResolver(runner command.Runner) *CargoResolver {
	return &CargoResolver{
		Runner:         runner,
		Command:        DefaultMetadataCommand,
		OutputSubdir:   DefaultOutputSubdir,
		SlugSeparators: DefaultSlugSeparators,
	}
}

func (r *CargoResolver) Resolve(ctx context.Context, id identifier.ID, dir string) (RepoMetadata, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return RepoMetadata{}, errors.MetadataError("failed to resolve checkout path").
			WithCause(err).WithContext("repository", id.String()).Build()
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return RepoMetadata{}, errors.MetadataError("checkout directory is missing").
			WithCause(err).
			WithContext("repository", id.String()).
			WithContext("path", abs).
			Build()
	}

	roots, err := discoverRoots(abs)
	if err != nil {
		return RepoMetadata{}, withRepository(err, id)
	}

	meta := RepoMetadata{ID: id, Dir: abs}
	seen := make(map[string]struct{}, len(roots))
	for _, rel := range roots {
		if err := ctx.Err(); err != nil {
			return RepoMetadata{}, err
		}
		ws, err := r.workspace(ctx, filepath.Join(abs, filepath.FromSlash(rel)))
		if err != nil {
			return RepoMetadata{}, withRepository(err, id)
		}
		if _, dup := seen[ws.Dir]; dup {
			continue
		}
		seen[ws.Dir] = struct{}{}
		meta.Workspaces = append(meta.Workspaces, ws)
	}
	sort.Slice(meta.Workspaces, func(i, j int) bool { return meta.Workspaces[i].Dir < meta.Workspaces[j].Dir })

	slog.Debug("Resolved repository metadata",
		logfields.Repository(id.String()),
		logfields.Count(len(meta.Workspaces)))
	return meta, nil
}

func (r *CargoResolver) workspace(ctx context.Context, dir string) (Workspace, error) {
	cmdline := r.Command
	if len(cmdline) == 0 {
		cmdline = DefaultMetadataCommand
	}
	out, err := r.Runner.Run(ctx, command.Spec{Dir: dir, Name: cmdline[0], Args: cmdline[1:]})
	if err != nil {
		return Workspace{}, errors.MetadataError("metadata command failed").
			WithCause(err).WithContext("path", dir).Build()
	}

	var md cargoMetadata
	if err := json.Unmarshal(out.Stdout, &md); err != nil {
		return Workspace{}, errors.MetadataError("metadata output is malformed").
			WithCause(err).WithContext("path", dir).Build()
	}
	if md.WorkspaceRoot == "" || md.TargetDirectory == "" {
		return Workspace{}, errors.MetadataError("metadata output lacks workspace_root or target_directory").
			WithContext("path", dir).Build()
	}

	members := make(map[string]struct{}, len(md.WorkspaceMembers))
	for _, m := range md.WorkspaceMembers {
		members[m] = struct{}{}
	}
	subdir := r.OutputSubdir
	if subdir == "" {
		subdir = DefaultOutputSubdir
	}

	ws := Workspace{
		Dir:       filepath.Clean(md.WorkspaceRoot),
		OutputDir: filepath.Join(md.TargetDirectory, subdir),
	}
	names := make(map[string]struct{}, len(md.Packages))
	for _, p := range md.Packages {
		if _, ok := members[p.ID]; !ok {
			continue
		}
		if _, dup := names[p.Name]; dup {
			continue
		}
		names[p.Name] = struct{}{}
		ws.Components = append(ws.Components, Component{Name: p.Name, Slug: Slug(p.Name, r.SlugSeparators)})
	}
	return ws, nil
}

func withRepository(err error, id identifier.ID) error {
	if ce, ok := errors.AsClassified(err); ok {
		return ce.WithContext("repository", id.String())
	}
	return err
}
