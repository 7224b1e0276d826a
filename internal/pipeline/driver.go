package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"git.home.luguber.info/inful/docfleet/internal/checkout"
	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/config"
	"git.home.luguber.info/inful/docfleet/internal/deploy"
	"git.home.luguber.info/inful/docfleet/internal/docbuild"
	"git.home.luguber.info/inful/docfleet/internal/docindex"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/history"
	"git.home.luguber.info/inful/docfleet/internal/identifier"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
	"git.home.luguber.info/inful/docfleet/internal/metadata"
	"git.home.luguber.info/inful/docfleet/internal/metrics"
	"git.home.luguber.info/inful/docfleet/internal/notify"
	"git.home.luguber.info/inful/docfleet/internal/registry"
)

// HistoryRecorder persists finished runs. *history.SQLiteStore implements it.
type HistoryRecorder interface {
	Record(ctx context.Context, run history.Run, components []history.ComponentRecord) error
}

// Notifier publishes a finished run. *notify.Notifier implements it.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event) error
}

type textfileWriter interface {
	WriteTextfile(path string) error
}

// Pipeline runs reconcile, build and deploy for one repository list.
type Pipeline struct {
	cfg      *config.Config
	tracker  *checkout.Tracker
	builder  *docbuild.Builder
	deployer *deploy.Deployer

	resolver metadata.Resolver
	recorder metrics.Recorder
	history  HistoryRecorder
	notifier Notifier
	fs       afero.Fs
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResolver replaces the cargo metadata resolver.
func WithResolver(r metadata.Resolver) Option { return func(p *Pipeline) { p.resolver = r } }

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option { return func(p *Pipeline) { p.recorder = r } }

// WithHistory enables the run ledger.
func WithHistory(h HistoryRecorder) Option { return func(p *Pipeline) { p.history = h } }

// WithNotifier enables run notifications.
func WithNotifier(n Notifier) Option { return func(p *Pipeline) { p.notifier = n } }

// WithFS sets the filesystem used for deployment artifacts.
func WithFS(fs afero.Fs) Option { return func(p *Pipeline) { p.fs = fs } }

// New wires a pipeline for the git repository served by vcs. Relative
// repository and deploy roots are resolved against the git root.
func New(cfg *config.Config, vcs checkout.VCS, runner command.Runner, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.ConfigError("configuration is required").Fatal().Build()
	}
	p := &Pipeline{
		cfg:      cfg,
		recorder: metrics.NoopRecorder{},
		fs:       afero.NewOsFs(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	root := vcs.Root()
	reposRoot := rooted(root, cfg.ReposRoot)
	reposDir, err := filepath.Rel(root, reposRoot)
	if err != nil || reposDir == ".." || strings.HasPrefix(reposDir, ".."+string(filepath.Separator)) {
		return nil, errors.ConfigError("repos_root must be inside the git repository").
			WithContext("repos_root", reposRoot).
			WithContext("git_root", root).
			Fatal().Build()
	}

	if p.resolver == nil {
		cr := metadata.NewCargoResolver(runner)
		cr.Command = cfg.Build.MetadataCommand
		cr.OutputSubdir = cfg.Build.OutputSubdir
		cr.SlugSeparators = cfg.Build.SlugSeparators
		p.resolver = cr
	}
	p.tracker = checkout.NewTracker(vcs, p.resolver,
		checkout.WithHostPrefix(cfg.HostPrefix),
		checkout.WithReposDir(filepath.ToSlash(reposDir)))
	p.builder = &docbuild.Builder{
		Runner:     runner,
		Command:    cfg.Build.DocCommand,
		ReposRoot:  reposRoot,
		DeployRoot: rooted(root, cfg.DeployRoot),
		URLPrefix:  cfg.URLPrefix(),
	}
	p.deployer = &deploy.Deployer{
		FS:           p.fs,
		Root:         p.builder.DeployRoot,
		IndexFile:    cfg.IndexFile,
		Landing:      cfg.Deploy.LandingPage,
		LandingTitle: cfg.Deploy.LandingTitle,
	}
	return p, nil
}

func rooted(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

// Tracker exposes the checkout tracker for read-only commands.
func (p *Pipeline) Tracker() *checkout.Tracker { return p.tracker }

// DeployRoot is the absolute deployment directory.
func (p *Pipeline) DeployRoot() string { return p.deployer.Root }

// runState carries per-run data between stages.
type runState struct {
	report    *RunReport
	desired   []identifier.ID
	reconcile checkout.ReconcileReport
	registry  *registry.Registry
	index     *docindex.Index
	relocs    []docbuild.Relocation
	results   []docbuild.WorkspaceResult
	deployed  deploy.Report
}

type stageFunc func(ctx context.Context, st *runState) error

// Run executes one full pass over listFile (cfg.ListFile when empty). The
// returned report is always non-nil; the error is the fatal cause, if any.
func (p *Pipeline) Run(ctx context.Context, listFile string) (*RunReport, error) {
	if listFile == "" {
		listFile = p.cfg.ListFile
	}
	st := &runState{
		report:   newRunReport(uuid.NewString(), p.now()),
		registry: registry.New(),
		index:    docindex.New(),
	}
	slog.Info("Run started", logfields.RunID(st.report.RunID), logfields.Path(listFile))

	stages := []struct {
		name StageName
		fn   stageFunc
	}{
		{StageReadList, func(_ context.Context, st *runState) error { return p.readList(listFile, st) }},
		{StageReconcile, p.reconcileStage},
		{StageBuild, p.buildStage},
		{StageDeploy, p.deployStage},
	}
	for _, s := range stages {
		if err := p.runStage(ctx, s.name, s.fn, st); err != nil {
			break
		}
	}

	st.report.finish(p.now())
	p.publish(ctx, st)
	p.recorder.ObserveRunDuration(st.report.Duration)
	p.recorder.IncRunOutcome(string(st.report.Outcome))
	p.flushMetrics(st.report)

	log := slog.Info
	if st.report.Outcome == OutcomeFailed {
		log = slog.Error
	}
	log("Run finished", logfields.RunID(st.report.RunID),
		slog.String("outcome", string(st.report.Outcome)), slog.String("summary", st.report.Summary()))
	return st.report, st.report.Err()
}

func (p *Pipeline) runStage(ctx context.Context, name StageName, fn stageFunc, st *runState) error {
	start := time.Now()
	issues := len(st.report.Issues)
	err := ctx.Err()
	if err == nil {
		err = fn(ctx, st)
	}
	d := time.Since(start)
	st.report.StageDurations[name] = d
	p.recorder.ObserveStageDuration(string(name), d)

	switch {
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		st.report.cancel(name, err)
		p.recorder.IncStageResult(string(name), metrics.ResultCanceled)
	case err != nil:
		st.report.fail(name, err)
		p.recorder.IncStageResult(string(name), metrics.ResultFatal)
	case len(st.report.Issues) > issues:
		p.recorder.IncStageResult(string(name), metrics.ResultWarning)
	default:
		p.recorder.IncStageResult(string(name), metrics.ResultSuccess)
	}
	slog.Debug("Stage complete", logfields.Stage(string(name)),
		logfields.DurationMS(float64(d.Milliseconds())), logfields.Error(err))
	return err
}

func (p *Pipeline) readList(listFile string, st *runState) error {
	ids, skipped, err := config.ReadRepoList(listFile)
	if err != nil {
		return err
	}
	for _, e := range skipped {
		st.report.AddIssue(IssueMalformedEntry, StageReadList, SeverityWarning, "", "malformed entry", e)
	}
	st.desired = ids
	st.report.Desired = len(ids)
	return nil
}

func (p *Pipeline) reconcileStage(ctx context.Context, st *runState) error {
	rep, err := p.tracker.Reconcile(ctx, st.desired, st.registry)
	st.reconcile = rep
	r := st.report
	r.AlreadyTracked = len(rep.AlreadyTracked)
	r.Added = len(rep.Added)
	r.AddFailures = len(rep.AddFailed)
	r.Registered = st.registry.Len()
	r.RolledBack = len(rep.RolledBack)
	r.CheckoutsChanged = rep.Changed()

	for range rep.Added {
		p.recorder.IncCheckoutChange(metrics.CheckoutAdded)
	}
	for _, f := range rep.AddFailed {
		p.recorder.IncCheckoutChange(metrics.CheckoutAddFailed)
		r.AddIssue(IssueAddFailure, StageReconcile, SeverityError, f.ID.String(), "add failed", f.Err)
		if f.CleanupErr != nil {
			r.AddIssue(IssueRollbackCleanup, StageReconcile, SeverityWarning, f.ID.String(), "cleanup after failed add incomplete", f.CleanupErr)
		}
	}
	for _, f := range rep.RolledBack {
		p.recorder.IncCheckoutChange(metrics.CheckoutRolledBack)
		r.AddIssue(IssueRollback, StageReconcile, SeverityError, f.ID.String(), "metadata resolution failed, checkout removed", f.Err)
		if f.CleanupErr != nil {
			r.AddIssue(IssueRollbackCleanup, StageReconcile, SeverityWarning, f.ID.String(), "removal incomplete", f.CleanupErr)
		}
	}
	for _, c := range rep.Unparseable {
		r.AddIssue(IssueUnrecognized, StageReconcile, SeverityWarning, "", "checkout "+c.Path+" ignored", c.ParseErr)
	}
	p.recorder.SetTrackedRepositories(st.registry.Len())
	return err
}

func (p *Pipeline) buildStage(ctx context.Context, st *runState) error {
	relocs, results, err := p.builder.Build(ctx, st.registry, st.index)
	st.relocs, st.results = relocs, results
	r := st.report
	r.Workspaces = len(results)
	for _, res := range results {
		repo := res.ID.String()
		p.recorder.ObserveWorkspaceBuild(repo, res.Duration, res.BuildErr == nil)
		if res.BuildErr != nil {
			r.BuildFailures++
			r.AddIssue(IssueBuildFailure, StageBuild, SeverityWarning, repo, "documentation build failed for "+res.Workspace, res.BuildErr)
		}
		if res.ListErr != nil {
			r.AddIssue(IssueOutputUnreadable, StageBuild, SeverityWarning, repo, "output of "+res.Workspace+" unreadable", res.ListErr)
		}
		documented := len(res.Outcomes) - len(res.Missing())
		r.Documented += documented
		r.Missing += len(res.Missing())
		p.recorder.AddComponents(documented, len(res.Missing()))
		if res.ListErr == nil {
			for _, name := range res.Missing() {
				r.AddIssue(IssueMissingDocs, StageBuild, SeverityWarning, repo, "no documentation for "+name, nil)
			}
		}
	}
	return err
}

func (p *Pipeline) deployStage(ctx context.Context, st *runState) error {
	rep, err := p.deployer.Apply(ctx, st.relocs, st.index)
	st.deployed = rep
	r := st.report
	r.Relocated = rep.Relocated()
	r.RelocationFailures = len(rep.Failed())
	r.IndexPath = rep.IndexPath
	for _, res := range rep.Results {
		p.recorder.IncRelocation(res.Err == nil)
	}
	for _, res := range rep.Failed() {
		r.AddIssue(IssueRelocationFailure, StageDeploy, SeverityError, res.Relocation.ID.String(),
			"relocation of "+res.Relocation.Workspace+" failed", res.Err)
	}
	if rep.LandingErr != nil {
		r.AddIssue(IssueLandingPage, StageDeploy, SeverityWarning, "", "landing page not written", rep.LandingErr)
	}
	return err
}

// publish persists the report, records history and sends the notification.
// None of these change the outcome.
func (p *Pipeline) publish(ctx context.Context, st *runState) {
	start := time.Now()
	defer func() {
		d := time.Since(start)
		st.report.StageDurations[StagePublish] = d
		p.recorder.ObserveStageDuration(string(StagePublish), d)
	}()
	// Side channels still run when the run was canceled.
	ctx = context.WithoutCancel(ctx)

	if p.history != nil {
		if err := p.history.Record(ctx, historyRun(st.report), componentRecords(st.results)); err != nil {
			slog.Warn("Failed to record run history", logfields.Error(err))
			st.report.AddIssue(IssueHistory, StagePublish, SeverityWarning, "", "history not recorded", err)
		}
	}
	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, notifyEvent(st)); err != nil {
			slog.Warn("Failed to publish run notification", logfields.Error(err))
			st.report.AddIssue(IssueNotify, StagePublish, SeverityWarning, "", "notification not sent", err)
		}
	}
	if p.cfg.Deploy.ReportEnabled() {
		if err := p.fs.MkdirAll(p.deployer.Root, 0o755); err == nil {
			err = st.report.Persist(p.fs, p.deployer.Root)
			if err != nil {
				slog.Warn("Failed to persist run report", logfields.Error(err))
			}
		}
	}
}

func (p *Pipeline) flushMetrics(r *RunReport) {
	if p.cfg.Metrics.Textfile == "" {
		return
	}
	w, ok := p.recorder.(textfileWriter)
	if !ok {
		return
	}
	if err := w.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(p.cfg.Metrics.Textfile), logfields.Error(err))
		r.AddIssue(IssueMetrics, StagePublish, SeverityWarning, "", "metrics textfile not written", err)
	}
}

func historyRun(r *RunReport) history.Run {
	return history.Run{
		ID:                 r.RunID,
		Start:              r.Start,
		End:                r.End,
		Outcome:            string(r.Outcome),
		Desired:            r.Desired,
		Added:              r.Added,
		RolledBack:         r.RolledBack,
		Registered:         r.Registered,
		Workspaces:         r.Workspaces,
		BuildFailures:      r.BuildFailures,
		Documented:         r.Documented,
		Missing:            r.Missing,
		RelocationFailures: r.RelocationFailures,
	}
}

func componentRecords(results []docbuild.WorkspaceResult) []history.ComponentRecord {
	var out []history.ComponentRecord
	for _, res := range results {
		for _, o := range res.Outcomes {
			out = append(out, history.ComponentRecord{
				Repository: res.ID.String(),
				Workspace:  res.Workspace,
				Component:  o.Name,
				URL:        o.Outcome.URL,
				Present:    o.Outcome.Present,
			})
		}
	}
	return out
}

func notifyEvent(st *runState) notify.Event {
	r := st.report
	ev := notify.Event{
		RunID:              r.RunID,
		Outcome:            string(r.Outcome),
		Start:              r.Start,
		End:                r.End,
		Repositories:       st.registry.Len(),
		Documented:         r.Documented,
		RelocationFailures: r.RelocationFailures,
		IndexPath:          r.IndexPath,
	}
	for _, res := range st.results {
		for _, name := range res.Missing() {
			ev.Missing = append(ev.Missing, notify.MissingComponent{Repository: res.ID.String(), Component: name})
		}
	}
	for _, id := range st.reconcile.Added {
		ev.Added = append(ev.Added, id.String())
	}
	for _, f := range st.reconcile.RolledBack {
		ev.RolledBack = append(ev.RolledBack, f.ID.String())
	}
	return ev
}

// String describes the wiring for debug logs.
func (p *Pipeline) String() string {
	return fmt.Sprintf("pipeline(repos=%s deploy=%s)", p.builder.ReposRoot, p.deployer.Root)
}
