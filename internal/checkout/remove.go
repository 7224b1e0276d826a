package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// removalStep is one best-effort step of removing a checkout.
type removalStep struct {
	name string
	run  func(ctx context.Context, path string) error
}

// Remove deinitializes, untracks, purges module state, deletes the working
// directory and commits. Every step runs even when an earlier one fails; the
// returned error aggregates the failures and is nil when all succeeded.
// A path outside the checkout directory is refused before any step runs.
func (t *Tracker) Remove(ctx context.Context, id identifier.ID, path string) error {
	path, err := t.contained(path)
	if err != nil {
		slog.Error("Refusing to remove checkout", logfields.Repository(id.String()), logfields.Error(err))
		return err
	}
	steps := []removalStep{
		{"deinit", t.vcs.Deinit},
		{"untrack", t.vcs.Untrack},
		{"purge", t.vcs.PurgeModuleState},
		{"delete", t.vcs.RemoveWorkdir},
		{"commit", func(ctx context.Context, _ string) error {
			return t.vcs.Commit(ctx, fmt.Sprintf("Remove %s", id))
		}},
	}

	var result *multierror.Error
	for _, s := range steps {
		if err := s.run(ctx, path); err != nil {
			slog.Warn("Checkout removal step failed",
				logfields.Repository(id.String()),
				logfields.Path(path),
				logfields.Step(s.name),
				logfields.Error(err))
			result = multierror.Append(result, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	slog.Info("Removed checkout", logfields.Repository(id.String()), logfields.Path(path))
	return nil
}
