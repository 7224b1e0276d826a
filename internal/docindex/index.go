// Package docindex accumulates per-component documentation outcomes into the
// three level owner → repository → component index written as docs.json.
package docindex

import (
	"encoding/json"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

type (
	componentMap = orderedmap.OrderedMap[string, Outcome]
	repoMap      = orderedmap.OrderedMap[string, *componentMap]
	ownerMap     = orderedmap.OrderedMap[string, *repoMap]
)

// Index is the nested documentation index. Keys keep insertion order until
// Finalize sorts every level; serialization follows the stored order.
type Index struct {
	owners    *ownerMap
	finalized bool
}

func New() *Index {
	return &Index{owners: orderedmap.New[string, *repoMap]()}
}

// Merge records outcomes under owner/repo, creating either level on demand.
// A component already present is overwritten.
func (ix *Index) Merge(owner, repo string, outcomes []ComponentOutcome) {
	repos, ok := ix.owners.Get(owner)
	if !ok {
		repos = orderedmap.New[string, *componentMap]()
		ix.owners.Set(owner, repos)
	}
	comps, ok := repos.Get(repo)
	if !ok {
		comps = orderedmap.New[string, Outcome]()
		repos.Set(repo, comps)
	}
	for _, c := range outcomes {
		comps.Set(c.Name, c.Outcome)
	}
	ix.finalized = false
}

// Finalize sorts owners, repositories and components by key.
func (ix *Index) Finalize() {
	ix.owners = sortedCopy(ix.owners, func(repos *repoMap) *repoMap {
		return sortedCopy(repos, func(comps *componentMap) *componentMap {
			return sortedCopy(comps, func(o Outcome) Outcome { return o })
		})
	})
	ix.finalized = true
}

// Finalized reports whether no Merge happened since the last Finalize.
func (ix *Index) Finalized() bool { return ix.finalized }

// sortedCopy rebuilds m with keys in ascending order, transforming each value.
func sortedCopy[V any](m *orderedmap.OrderedMap[string, V], fn func(V) V) *orderedmap.OrderedMap[string, V] {
	keys := keysOf(m)
	sort.Strings(keys)
	out := orderedmap.New[string, V](len(keys))
	for _, k := range keys {
		v, _ := m.Get(k)
		out.Set(k, fn(v))
	}
	return out
}

func keysOf[V any](m *orderedmap.OrderedMap[string, V]) []string {
	keys := make([]string, 0, m.Len())
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Owners returns owner keys in stored order.
func (ix *Index) Owners() []string { return keysOf(ix.owners) }

// Repos returns the repository keys of owner in stored order.
func (ix *Index) Repos(owner string) []string {
	repos, ok := ix.owners.Get(owner)
	if !ok {
		return nil
	}
	return keysOf(repos)
}

// Components returns the outcomes of owner/repo in stored order.
func (ix *Index) Components(owner, repo string) []ComponentOutcome {
	repos, ok := ix.owners.Get(owner)
	if !ok {
		return nil
	}
	comps, ok := repos.Get(repo)
	if !ok {
		return nil
	}
	out := make([]ComponentOutcome, 0, comps.Len())
	for p := comps.Oldest(); p != nil; p = p.Next() {
		out = append(out, ComponentOutcome{Name: p.Key, Outcome: p.Value})
	}
	return out
}

// Lookup returns the outcome of a single component.
func (ix *Index) Lookup(owner, repo, component string) (Outcome, bool) {
	repos, ok := ix.owners.Get(owner)
	if !ok {
		return Outcome{}, false
	}
	comps, ok := repos.Get(repo)
	if !ok {
		return Outcome{}, false
	}
	return comps.Get(component)
}

// Stats counts index entries.
type Stats struct {
	Owners       int `json:"owners"`
	Repositories int `json:"repositories"`
	Documented   int `json:"documented"`
	Missing      int `json:"missing"`
}

func (ix *Index) Stats() Stats {
	var s Stats
	for op := ix.owners.Oldest(); op != nil; op = op.Next() {
		s.Owners++
		for rp := op.Value.Oldest(); rp != nil; rp = rp.Next() {
			s.Repositories++
			for cp := rp.Value.Oldest(); cp != nil; cp = cp.Next() {
				if cp.Value.Present {
					s.Documented++
				} else {
					s.Missing++
				}
			}
		}
	}
	return s
}

func (ix *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(ix.owners)
}

func (ix *Index) UnmarshalJSON(data []byte) error {
	owners := orderedmap.New[string, *repoMap]()
	if err := json.Unmarshal(data, owners); err != nil {
		return err
	}
	ix.owners = owners
	ix.finalized = false
	return nil
}

// Encode renders the index as indented JSON with a trailing newline.
func (ix *Index) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(ix, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
