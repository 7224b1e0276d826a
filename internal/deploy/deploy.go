// Package deploy moves generated documentation into the deploy tree and writes
// the index file (and optionally a landing page) next to it.
package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/docfleet/internal/docbuild"
	"git.home.luguber.info/inful/docfleet/internal/docindex"
	"git.home.luguber.info/inful/docfleet/internal/foundation"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// DefaultIndexFile is the index written under the deploy root.
const DefaultIndexFile = "docs.json"

// LandingFile is the optional HTML rendering of the index.
const LandingFile = "index.html"

// Deployer applies relocations and persists the index.
type Deployer struct {
	FS        afero.Fs
	Root      string
	IndexFile string
	// Landing enables index.html; Title heads the page.
	Landing      bool
	LandingTitle string
}

// New returns a Deployer on the OS filesystem.
func New(root string) *Deployer {
	return &Deployer{FS: afero.NewOsFs(), Root: root, IndexFile: DefaultIndexFile}
}

// Method tells how a relocation was carried out.
type Method string

const (
	MethodRename Method = "rename"
	MethodCopy   Method = "copy"
)

// RelocationResult is the outcome of one relocation.
type RelocationResult struct {
	Relocation docbuild.Relocation
	Method     Method
	Replaced   bool // a previous deployment was replaced
	Err        error
}

// Report summarizes a deployment.
type Report struct {
	Results     []RelocationResult
	IndexPath   string
	LandingPath string
	LandingErr  error
}

// Failed returns the relocations that did not complete.
func (r Report) Failed() []RelocationResult {
	var out []RelocationResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Relocated counts successful relocations.
func (r Report) Relocated() int { return len(r.Results) - len(r.Failed()) }

// Apply executes relocations in order, then writes the finalized index.
// Relocation failures are reported per entry; only an index write failure
// (or cancellation) is returned as an error.
func (d *Deployer) Apply(ctx context.Context, relocations []docbuild.Relocation, ix *docindex.Index) (Report, error) {
	var report Report
	for _, reloc := range relocations {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res := d.relocate(reloc)
		report.Results = append(report.Results, res)
	}

	if !ix.Finalized() {
		ix.Finalize()
	}
	path, err := d.WriteIndex(ix)
	if err != nil {
		return report, err
	}
	report.IndexPath = path

	if d.Landing {
		report.LandingPath, report.LandingErr = d.WriteLanding(ix)
		if report.LandingErr != nil {
			slog.Warn("Failed to write landing page", logfields.Error(report.LandingErr))
		}
	}

	slog.Info("Deployment complete",
		logfields.Count(report.Relocated()),
		slog.Int("failed", len(report.Failed())),
		logfields.Path(report.IndexPath))
	return report, nil
}

func (d *Deployer) relocate(reloc docbuild.Relocation) RelocationResult {
	res := RelocationResult{Relocation: reloc}
	log := slog.With(logfields.Source(reloc.Source), logfields.Destination(reloc.Destination))

	fail := func(msg string, err error) RelocationResult {
		res.Err = errors.RelocationError(msg).
			WithCause(err).
			WithContext("source", reloc.Source).
			WithContext("destination", reloc.Destination).
			Build()
		log.Error("Relocation failed", logfields.Error(res.Err))
		return res
	}

	if _, err := d.FS.Stat(reloc.Source); err != nil {
		return fail("relocation source does not exist", err)
	}
	if err := d.FS.MkdirAll(filepath.Dir(reloc.Destination), 0o755); err != nil {
		return fail("failed to create destination parent", err)
	}

	// The previous deployment stays recoverable until the new one is in place.
	var previous string
	if exists, err := afero.Exists(d.FS, reloc.Destination); err != nil {
		return fail("failed to stat destination", err)
	} else if exists {
		previous = previousName(reloc.Destination)
		if err := d.FS.RemoveAll(previous); err != nil {
			return fail("failed to clear stale previous deployment", err)
		}
		if aside := moveTree(d.FS, reloc.Destination, previous); aside.IsErr() {
			return fail("failed to set aside existing destination", aside.UnwrapErr())
		}
	}

	moved := moveTree(d.FS, reloc.Source, reloc.Destination)
	if moved.IsErr() {
		if previous != "" {
			if restored := moveTree(d.FS, previous, reloc.Destination); restored.IsErr() {
				log.Error("Failed to restore previous deployment",
					logfields.Path(previous), logfields.Error(restored.UnwrapErr()))
			} else {
				log.Warn("Restored previous deployment")
			}
		}
		return fail("failed to move documentation", moved.UnwrapErr())
	}
	res.Method = moved.Unwrap()

	if previous != "" {
		res.Replaced = true
		if err := d.FS.RemoveAll(previous); err != nil {
			log.Warn("Failed to remove previous deployment", logfields.Path(previous), logfields.Error(err))
		}
	}
	log.Info("Relocated documentation", slog.String("method", string(res.Method)))
	return res
}

// previousName is the hidden sibling holding a replaced deployment.
func previousName(dst string) string {
	return filepath.Join(filepath.Dir(dst), "."+filepath.Base(dst)+".previous")
}

// moveTree places src at dst by rename, falling back to a copy followed by
// removal of src. A failed copy leaves no partial dst behind.
func moveTree(fs afero.Fs, src, dst string) foundation.Result[Method, error] {
	renameErr := fs.Rename(src, dst)
	if renameErr == nil {
		return foundation.Ok[Method, error](MethodRename)
	}
	slog.Debug("Rename failed, falling back to copy",
		logfields.Source(src), logfields.Destination(dst), logfields.Error(renameErr))

	if err := copyTree(fs, src, dst); err != nil {
		_ = fs.RemoveAll(dst)
		return foundation.Err[Method](err)
	}
	if err := fs.RemoveAll(src); err != nil {
		slog.Warn("Copied tree but failed to remove source", logfields.Source(src), logfields.Error(err))
	}
	return foundation.Ok[Method, error](MethodCopy)
}

// WriteIndex writes the index to <Root>/<IndexFile> through a temp file and rename.
func (d *Deployer) WriteIndex(ix *docindex.Index) (string, error) {
	data, err := ix.Encode()
	if err != nil {
		return "", errors.InternalError("failed to encode documentation index").WithCause(err).Build()
	}
	name := d.IndexFile
	if name == "" {
		name = DefaultIndexFile
	}
	path := filepath.Join(d.Root, name)
	if err := WriteAtomic(d.FS, path, data); err != nil {
		return "", errors.FileSystemError("failed to write documentation index").
			WithCause(err).WithContext("path", path).Build()
	}
	return path, nil
}

// WriteAtomic replaces path with data so readers never observe a partial file.
func WriteAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory: %w", err)
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fs.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := fs.Chmod(tmpName, 0o644); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := fs.Rename(tmpName, path); err != nil {
		_ = fs.Remove(tmpName)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
