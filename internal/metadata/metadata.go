// Package metadata resolves the build layout of a tracked checkout: its
// workspaces, the components each workspace documents and where the generated
// documentation lands.
package metadata

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/docfleet/internal/identifier"
)

// Component is one documentation unit of a workspace.
type Component struct {
	Name string // display name (package name)
	Slug string // directory name the documentation build produces
}

// Workspace is a directory documented by a single build invocation.
type Workspace struct {
	Dir        string // absolute workspace root
	OutputDir  string // absolute directory whose subdirectories are per-component docs
	Components []Component
}

// RepoMetadata is the resolved layout of one checkout. It is immutable once registered.
type RepoMetadata struct {
	ID         identifier.ID
	Dir        string
	Workspaces []Workspace
}

// Owner returns the identifier's owner segment.
func (m RepoMetadata) Owner() string { return m.ID.Owner }

// Repo returns the identifier's repository segment.
func (m RepoMetadata) Repo() string { return m.ID.Name }

// ComponentCount is the number of components across all workspaces.
func (m RepoMetadata) ComponentCount() int {
	n := 0
	for _, ws := range m.Workspaces {
		n += len(ws.Components)
	}
	return n
}

// Resolver resolves the metadata of the checkout of id located at dir.
type Resolver interface {
	Resolve(ctx context.Context, id identifier.ID, dir string) (RepoMetadata, error)
}

// DefaultSlugSeparators are the characters replaced by '_' in slugs.
const DefaultSlugSeparators = "-"

// Slug derives the generated documentation directory name from a display name.
func Slug(name, separators string) string {
	if separators == "" {
		separators = DefaultSlugSeparators
	}
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) {
			return '_'
		}
		return r
	}, name)
}
