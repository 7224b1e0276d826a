// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gogit "github.com/go-git/go-git/v5"
)

// Module is one .gitmodules entry.
type Module struct {
	Path string
	URL  string
}

// InitRepo initializes a git repository in a temporary directory and writes
// a .gitmodules file listing modules. It returns the repository root.
func InitRepo(t *testing.T, modules ...Module) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := gogit.PlainInit(dir, false); err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}
	if len(modules) > 0 {
		WriteGitmodules(t, dir, modules...)
	}
	return dir
}

// WriteGitmodules replaces the .gitmodules file of the repository at dir.
func WriteGitmodules(t *testing.T, dir string, modules ...Module) {
	t.Helper()
	var b strings.Builder
	for _, m := range modules {
		fmt.Fprintf(&b, "[submodule %q]\n\tpath = %s\n\turl = %s\n", m.Path, m.Path, m.URL)
	}
	if err := os.WriteFile(filepath.Join(dir, ".gitmodules"), []byte(b.String()), 0o600); err != nil {
		t.Fatalf("failed to write .gitmodules: %v", err)
	}
}
