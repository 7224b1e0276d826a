package testutil

import "git.home.luguber.info/inful/docfleet/internal/identifier"

// ID parses a static owner/name fixture and panics when it is malformed.
func ID(s string) identifier.ID {
	id, err := identifier.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}
