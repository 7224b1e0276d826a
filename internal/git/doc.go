// Package git is the version-control collaborator of the checkout tracker.
//
// Tracked repositories are git submodules of the repository docfleet runs in.
// Enumeration reads .gitmodules through go-git on every call so out-of-band
// changes are always observed. Membership changes (submodule add, deinit, rm,
// commit) shell out to the git CLI because go-git does not implement them.
package git
