package metadata

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

const manifestName = "Cargo.toml"

// manifest is the subset of Cargo.toml needed to find workspace roots.
type manifest struct {
	Package *struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Workspace *struct {
		Members []string `toml:"members"`
		Exclude []string `toml:"exclude"`
	} `toml:"workspace"`
}

func (m manifest) isWorkspace() bool { return m.Workspace != nil }
func (m manifest) isPackage() bool   { return m.Package != nil }

// discoverRoots returns the slash-separated directories (relative to dir, "." for
// the checkout root) in which the metadata command must run.
func discoverRoots(dir string) ([]string, error) {
	fsys := os.DirFS(dir)

	rootData, err := fs.ReadFile(fsys, manifestName)
	if err != nil {
		return nil, errors.MetadataError("checkout has no root manifest").
			WithCause(err).WithContext("path", dir).Build()
	}
	var root manifest
	if err := toml.Unmarshal(rootData, &root); err != nil {
		return nil, errors.MetadataError("root manifest is malformed").
			WithCause(err).WithContext("path", dir).Build()
	}
	if !root.isWorkspace() && !root.isPackage() {
		return nil, errors.MetadataError("root manifest declares neither a package nor a workspace").
			WithContext("path", dir).Build()
	}

	matches, err := doublestar.Glob(fsys, "**/"+manifestName)
	if err != nil {
		return nil, errors.MetadataError("failed to scan for manifests").
			WithCause(err).WithContext("path", dir).Build()
	}

	workspaces := []string{"."}
	packages := []string{}
	if !root.isWorkspace() {
		workspaces = nil
		packages = append(packages, ".")
	}
	for _, match := range matches {
		if match == manifestName || skipManifest(match) {
			continue
		}
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			slog.Warn("Skipping unreadable manifest", logfields.Path(match), logfields.Error(err))
			continue
		}
		var m manifest
		if err := toml.Unmarshal(data, &m); err != nil {
			slog.Warn("Skipping malformed manifest", logfields.Path(match), logfields.Error(err))
			continue
		}
		mdir := path.Dir(match)
		switch {
		case m.isWorkspace():
			workspaces = append(workspaces, mdir)
		case m.isPackage():
			packages = append(packages, mdir)
		}
	}

	roots := append([]string(nil), workspaces...)
	for _, p := range packages {
		if !nestedInAny(p, workspaces) {
			roots = append(roots, p)
		}
	}
	sort.Strings(roots)
	return roots, nil
}

// skipManifest excludes build output and hidden directories.
func skipManifest(rel string) bool {
	for _, seg := range strings.Split(path.Dir(rel), "/") {
		if seg == "target" || (strings.HasPrefix(seg, ".") && seg != ".") {
			return true
		}
	}
	return false
}

func nestedInAny(dir string, roots []string) bool {
	for _, r := range roots {
		if r == "." || dir == r || strings.HasPrefix(dir, r+"/") {
			return true
		}
	}
	return false
}
