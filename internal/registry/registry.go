// Package registry holds the metadata of every checkout resolved during a run,
// keyed by repository identifier in insertion order.
package registry

import (
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
)

// Registry is an insertion-ordered identifier → metadata map. It is not safe
// for concurrent use; a run owns exactly one.
type Registry struct {
	order   []identifier.ID
	entries map[identifier.ID]metadata.RepoMetadata
}

func New() *Registry {
	return &Registry{entries: make(map[identifier.ID]metadata.RepoMetadata)}
}

// Insert adds or replaces the entry for meta.ID. Replacement keeps the original position.
func (r *Registry) Insert(meta metadata.RepoMetadata) {
	if _, ok := r.entries[meta.ID]; !ok {
		r.order = append(r.order, meta.ID)
	}
	r.entries[meta.ID] = meta
}

func (r *Registry) Contains(id identifier.ID) bool {
	_, ok := r.entries[id]
	return ok
}

func (r *Registry) Get(id identifier.ID) (metadata.RepoMetadata, bool) {
	m, ok := r.entries[id]
	return m, ok
}

func (r *Registry) Len() int { return len(r.order) }

// IDs returns identifiers in insertion order.
func (r *Registry) IDs() []identifier.ID {
	return append([]identifier.ID(nil), r.order...)
}

// Entries returns the registered metadata in insertion order.
func (r *Registry) Entries() []metadata.RepoMetadata {
	out := make([]metadata.RepoMetadata, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// WorkspaceCount is the total number of workspaces across entries.
func (r *Registry) WorkspaceCount() int {
	n := 0
	for _, m := range r.entries {
		n += len(m.Workspaces)
	}
	return n
}
