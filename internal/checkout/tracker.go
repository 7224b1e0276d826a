package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
	"git.home.luguber.info/inful/docfleet/internal/registry"
	"git.home.luguber.info/inful/docfleet/internal/util/sets"
)

// DefaultReposDir is where checkouts live relative to the git root.
const DefaultReposDir = "repos"

// Tracker owns the tracked set of checkouts.
type Tracker struct {
	vcs        VCS
	resolver   metadata.Resolver
	hostPrefix string
	reposDir   string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHostPrefix sets the remote URL prefix used to derive identifiers and remote URLs.
func WithHostPrefix(prefix string) Option {
	return func(t *Tracker) { t.hostPrefix = prefix }
}

// WithReposDir sets the slash separated checkout directory relative to the git root.
func WithReposDir(dir string) Option {
	return func(t *Tracker) { t.reposDir = path.Clean(dir) }
}

func NewTracker(vcs VCS, resolver metadata.Resolver, opts ...Option) *Tracker {
	t := &Tracker{
		vcs:        vcs,
		resolver:   resolver,
		hostPrefix: identifier.DefaultHostPrefix,
		reposDir:   DefaultReposDir,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// PathFor returns the checkout path of id relative to the git root.
func (t *Tracker) PathFor(id identifier.ID) string {
	return path.Join(t.reposDir, id.Owner, id.Name)
}

// contained cleans p and requires it to name a directory strictly below the
// checkout directory. Paths that fail here are never added or removed.
func (t *Tracker) contained(p string) (string, error) {
	clean := path.Clean(filepath.ToSlash(p))
	var inside bool
	switch {
	case path.IsAbs(clean), clean == "..", strings.HasPrefix(clean, "../"):
	case t.reposDir == ".":
		inside = clean != "."
	default:
		inside = strings.HasPrefix(clean, t.reposDir+"/")
	}
	if !inside {
		return "", errors.FileSystemError("checkout path is outside the checkout directory").
			WithContext("path", p).
			WithContext("repos_dir", t.reposDir).
			Build()
	}
	return clean, nil
}

// checkoutPathFor re-validates id and returns its contained checkout path.
func (t *Tracker) checkoutPathFor(id identifier.ID) (string, error) {
	parsed, err := identifier.Parse(id.String())
	if err != nil {
		return "", err
	}
	if parsed != id {
		return "", errors.IdentifierError("repository identifier is not in canonical form").
			WithContext("value", id.String()).
			Build()
	}
	return t.contained(t.PathFor(id))
}

// Checkouts enumerates the currently tracked checkouts, re-reading version control.
func (t *Tracker) Checkouts(ctx context.Context) ([]Checkout, error) {
	subs, err := t.vcs.Submodules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Checkout, 0, len(subs))
	for _, s := range subs {
		c := Checkout{Path: s.Path, URL: s.URL}
		c.ID, c.ParseErr = identifier.FromRemoteURL(s.URL, t.hostPrefix)
		out = append(out, c)
	}
	return out, nil
}

// Reconcile adds missing desired checkouts, then resolves every tracked checkout
// not yet present in reg. Only enumeration failures are returned as errors;
// per-checkout failures are logged and reported.
func (t *Tracker) Reconcile(ctx context.Context, desired []identifier.ID, reg *registry.Registry) (ReconcileReport, error) {
	report := ReconcileReport{Desired: len(desired)}

	current, err := t.Checkouts(ctx)
	if err != nil {
		return report, err
	}
	tracked := sets.New[identifier.ID]()
	for _, c := range current {
		if c.Valid() {
			tracked.Add(c.ID)
		}
	}

	for _, id := range desired {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if tracked.Has(id) {
			report.AlreadyTracked = append(report.AlreadyTracked, id)
			continue
		}
		if f := t.add(ctx, id); f != nil {
			report.AddFailed = append(report.AddFailed, *f)
			continue
		}
		tracked.Add(id)
		report.Added = append(report.Added, id)
	}

	// Re-read: additions and out-of-band changes are only trusted once git reports them.
	current, err = t.Checkouts(ctx)
	if err != nil {
		return report, err
	}

	wanted := sets.New(desired...)
	for _, c := range current {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !c.Valid() {
			slog.Warn("Ignoring checkout with unrecognized remote",
				logfields.Path(c.Path), logfields.URL(c.URL), logfields.Error(c.ParseErr))
			report.Unparseable = append(report.Unparseable, c)
			continue
		}
		if !wanted.Has(c.ID) {
			report.Undesired = append(report.Undesired, c.ID)
		}
		if reg.Contains(c.ID) {
			continue
		}
		t.resolve(ctx, c, reg, &report)
	}

	slog.Info("Reconciled checkouts",
		slog.Int("desired", report.Desired),
		slog.Int("added", len(report.Added)),
		slog.Int("registered", len(report.Registered)),
		slog.Int("rolled_back", len(report.RolledBack)))
	return report, nil
}

// resolve walks one checkout through Resolving to Registered or Untracked.
func (t *Tracker) resolve(ctx context.Context, c Checkout, reg *registry.Registry, report *ReconcileReport) {
	step := func(from, to State) {
		report.Transitions = append(report.Transitions, Transition{ID: c.ID, From: from, To: to})
		slog.Debug("Checkout state change", logfields.Repository(c.ID.String()),
			slog.String("from", string(from)), slog.String("to", string(to)))
	}

	step(StateTracked, StateResolving)
	start := time.Now()
	meta, err := t.resolver.Resolve(ctx, c.ID, t.absPath(c.Path))
	if err == nil {
		reg.Insert(meta)
		step(StateResolving, StateRegistered)
		report.Registered = append(report.Registered, c.ID)
		slog.Info("Registered checkout",
			logfields.Repository(c.ID.String()),
			logfields.Count(len(meta.Workspaces)),
			slog.Int("components", meta.ComponentCount()),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		return
	}

	step(StateResolving, StateRollingBack)
	attrs := []any{logfields.Repository(c.ID.String()), logfields.Path(c.Path), logfields.Error(err)}
	if ce, ok := errors.AsClassified(err); ok {
		attrs = append(attrs, slog.String("category", string(ce.Category())))
	}
	slog.Error("Metadata resolution failed, removing checkout", attrs...)

	cleanup := t.Remove(ctx, c.ID, c.Path)
	step(StateRollingBack, StateUntracked)
	report.RolledBack = append(report.RolledBack, Failure{ID: c.ID, Path: c.Path, Err: err, CleanupErr: cleanup})
}

func (t *Tracker) add(ctx context.Context, id identifier.ID) *Failure {
	p, err := t.checkoutPathFor(id)
	if err != nil {
		slog.Error("Refusing to add checkout", logfields.Repository(id.String()), logfields.Error(err))
		return &Failure{ID: id, Path: t.PathFor(id), Err: err}
	}
	url := id.RemoteURL(t.hostPrefix)
	slog.Info("Adding checkout", logfields.Repository(id.String()), logfields.Path(p), logfields.URL(url))

	if err := t.vcs.Add(ctx, p, url); err != nil {
		f := &Failure{ID: id, Path: p, Err: err}
		slog.Error("Failed to add checkout", logfields.Repository(id.String()), logfields.Error(err))
		if t.vcs.HasState(p) {
			slog.Warn("Removing leftovers of failed add", logfields.Path(p))
			f.CleanupErr = t.Remove(ctx, id, p)
		}
		return f
	}
	if err := t.vcs.Commit(ctx, fmt.Sprintf("Add %s", id)); err != nil {
		// The submodule is registered in the index; a later commit picks it up.
		slog.Warn("Failed to commit added checkout", logfields.Repository(id.String()), logfields.Error(err))
	}
	return nil
}

func (t *Tracker) absPath(rel string) string {
	return filepath.Join(t.vcs.Root(), filepath.FromSlash(rel))
}
