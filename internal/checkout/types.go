package checkout

import (
	"context"

	"git.home.luguber.info/inful/docfleet/internal/git"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
)

// State is the lifecycle position of a checkout during reconciliation.
type State string

const (
	StateTracked     State = "tracked"
	StateResolving   State = "resolving"
	StateRegistered  State = "registered"
	StateRollingBack State = "rolling_back"
	StateUntracked   State = "untracked"
)

// Checkout is a tracked repository as seen by the rest of the pipeline.
type Checkout struct {
	Path string // slash separated, relative to the git root
	URL  string
	ID   identifier.ID
	// ParseErr is set when URL does not derive an identifier; ID is zero then.
	ParseErr error
}

// Valid reports whether the checkout has a usable identifier.
func (c Checkout) Valid() bool { return c.ParseErr == nil }

// VCS is the version-control collaborator. *git.Repository implements it.
type VCS interface {
	Root() string
	Submodules(ctx context.Context) ([]git.Submodule, error)
	Add(ctx context.Context, path, url string) error
	Deinit(ctx context.Context, path string) error
	Untrack(ctx context.Context, path string) error
	PurgeModuleState(ctx context.Context, path string) error
	RemoveWorkdir(ctx context.Context, path string) error
	HasState(path string) bool
	Commit(ctx context.Context, message string) error
}

var _ VCS = (*git.Repository)(nil)

// Failure pairs a checkout with the error that moved it off the happy path.
type Failure struct {
	ID   identifier.ID
	Path string
	Err  error
	// CleanupErr aggregates removal steps that failed while compensating.
	CleanupErr error
}

// Transition records one state change for reporting and debugging.
type Transition struct {
	ID   identifier.ID
	From State
	To   State
}

// ReconcileReport summarizes one reconciliation.
type ReconcileReport struct {
	Desired        int
	AlreadyTracked []identifier.ID
	Added          []identifier.ID
	AddFailed      []Failure
	Registered     []identifier.ID
	RolledBack     []Failure
	// Unparseable lists tracked checkouts whose URL yields no identifier. They are left alone.
	Unparseable []Checkout
	// Undesired lists tracked identifiers absent from the desired list. They are not removed.
	Undesired   []identifier.ID
	Transitions []Transition
}

// Changed reports whether reconciliation modified the tracked set.
func (r ReconcileReport) Changed() bool {
	return len(r.Added) > 0 || len(r.RolledBack) > 0
}
