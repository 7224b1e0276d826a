// Package identifier parses and derives repository identifiers of the form owner/name.
package identifier

import (
	"strings"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// DefaultHostPrefix is stripped from submodule remote URLs to obtain owner/name.
const DefaultHostPrefix = "https://github.com/"

// ID identifies a tracked repository. The zero value is invalid.
type ID struct {
	Owner string
	Name  string
}

// Parse parses "owner/name". There must be exactly two segments and each must
// be usable as a single path element below the checkout directory.
func Parse(s string) (ID, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return ID{}, errors.IdentifierError("repository identifier must be owner/name").
			WithContext("value", s).
			Build()
	}
	for _, seg := range parts {
		if reason := invalidSegment(seg); reason != "" {
			return ID{}, errors.IdentifierError("repository identifier must be owner/name").
				WithContext("value", s).
				WithContext("reason", reason).
				Build()
		}
	}
	return ID{Owner: parts[0], Name: parts[1]}, nil
}

func invalidSegment(seg string) string {
	switch {
	case seg == "":
		return "empty segment"
	case seg == "." || seg == "..":
		return "relative path segment"
	case strings.ContainsRune(seg, '\\'):
		return "backslash in segment"
	case strings.HasPrefix(seg, "-"):
		return "segment starts with a dash"
	}
	return ""
}

// FromRemoteURL derives an ID from a remote URL by stripping hostPrefix and an optional ".git" suffix.
func FromRemoteURL(url, hostPrefix string) (ID, error) {
	if hostPrefix == "" {
		hostPrefix = DefaultHostPrefix
	}
	rest, ok := strings.CutPrefix(url, hostPrefix)
	if !ok {
		return ID{}, errors.IdentifierError("remote URL does not start with host prefix").
			WithContext("url", url).
			WithContext("prefix", hostPrefix).
			Build()
	}
	rest = strings.TrimSuffix(rest, ".git")
	id, err := Parse(rest)
	if err != nil {
		return ID{}, errors.IdentifierError("remote URL does not name owner/name").
			WithContext("url", url).
			WithCause(err).
			Build()
	}
	return id, nil
}

func (id ID) String() string { return id.Owner + "/" + id.Name }

// RemoteURL is the clone URL used when adding the repository as a submodule.
func (id ID) RemoteURL(hostPrefix string) string {
	if hostPrefix == "" {
		hostPrefix = DefaultHostPrefix
	}
	return hostPrefix + id.Owner + "/" + id.Name + ".git"
}

// ParseList parses identifiers in order, collapsing duplicates (first occurrence wins).
// Malformed entries are returned separately so callers can log and skip them.
func ParseList(values []string) ([]ID, []error) {
	seen := make(map[ID]struct{}, len(values))
	ids := make([]ID, 0, len(values))
	var errs []error
	for _, v := range values {
		id, err := Parse(v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, errs
}
