package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyStep       = "step"
	KeyDurationMS = "duration_ms"
	KeyRepo       = "repository"
	KeyOwner      = "owner"
	KeyWorkspace  = "workspace"
	KeyComponent  = "component"
	KeySlug       = "slug"
	KeyPath       = "path"
	KeyURL        = "url"
	KeySource     = "source"
	KeyDest       = "destination"
	KeyCount      = "count"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Step(name string) slog.Attr      { return slog.String(KeyStep, name) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Owner(o string) slog.Attr        { return slog.String(KeyOwner, o) }
func Workspace(w string) slog.Attr    { return slog.String(KeyWorkspace, w) }
func Component(c string) slog.Attr    { return slog.String(KeyComponent, c) }
func Slug(s string) slog.Attr         { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Source(p string) slog.Attr       { return slog.String(KeySource, p) }
func Destination(p string) slog.Attr  { return slog.String(KeyDest, p) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
