package pipeline

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"git.home.luguber.info/inful/docfleet/internal/deploy"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
)

// Report file names written next to the index.
const (
	ReportJSONFile = "docfleet-report.json"
	ReportTextFile = "docfleet-report.txt"
)

// RunOutcome is the typed enumeration of final run states.
type RunOutcome string

const (
	OutcomeSuccess  RunOutcome = "success"
	OutcomeWarning  RunOutcome = "warning"
	OutcomeFailed   RunOutcome = "failed"
	OutcomeCanceled RunOutcome = "canceled"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageReadList  StageName = "read_list"
	StageReconcile StageName = "reconcile"
	StageBuild     StageName = "build"
	StageDeploy    StageName = "deploy"
	StagePublish   StageName = "publish"
)

// IssueCode enumerates machine-parseable issue identifiers. Codes are only appended.
type IssueCode string

const (
	IssueMalformedEntry    IssueCode = "MALFORMED_ENTRY"
	IssueAddFailure        IssueCode = "ADD_FAILURE"
	IssueRollback          IssueCode = "ROLLBACK"
	IssueRollbackCleanup   IssueCode = "ROLLBACK_CLEANUP"
	IssueUnrecognized      IssueCode = "UNRECOGNIZED_REMOTE"
	IssueBuildFailure      IssueCode = "BUILD_FAILURE"
	IssueOutputUnreadable  IssueCode = "OUTPUT_UNREADABLE"
	IssueMissingDocs       IssueCode = "MISSING_DOCS"
	IssueRelocationFailure IssueCode = "RELOCATION_FAILURE"
	IssueLandingPage       IssueCode = "LANDING_PAGE"
	IssueFatal             IssueCode = "FATAL"
	IssueCanceled          IssueCode = "RUN_CANCELED"
	// Side-channel issues never change the outcome.
	IssueHistory IssueCode = "HISTORY_FAILURE"
	IssueNotify  IssueCode = "NOTIFY_FAILURE"
	IssueMetrics IssueCode = "METRICS_FAILURE"
)

func (c IssueCode) affectsOutcome() bool {
	switch c {
	case IssueHistory, IssueNotify, IssueMetrics:
		return false
	default:
		return true
	}
}

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a structured entry describing a discrete problem of a run.
type Issue struct {
	Code       IssueCode     `json:"code"`
	Stage      StageName     `json:"stage"`
	Severity   IssueSeverity `json:"severity"`
	Message    string        `json:"message"`
	Repository string        `json:"repository,omitempty"`
	Transient  bool          `json:"transient"`
}

// RunReport captures what a run did.
type RunReport struct {
	SchemaVersion int           `json:"schema_version"`
	RunID         string        `json:"run_id"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	Outcome       RunOutcome    `json:"outcome"`
	Duration      time.Duration `json:"duration_ns"`

	Desired            int `json:"desired"`
	AlreadyTracked     int `json:"already_tracked"`
	Added              int `json:"added"`
	AddFailures        int `json:"add_failures"`
	Registered         int `json:"registered"`
	RolledBack         int `json:"rolled_back"`
	Workspaces         int `json:"workspaces"`
	BuildFailures      int `json:"build_failures"`
	Documented         int `json:"documented"`
	Missing            int `json:"missing"`
	Relocated          int `json:"relocated"`
	RelocationFailures int `json:"relocation_failures"`

	// CheckoutsChanged is set when reconciliation added or removed a checkout.
	CheckoutsChanged bool `json:"checkouts_changed"`

	IndexPath      string                      `json:"index_path,omitempty"`
	StageDurations map[StageName]time.Duration `json:"stage_durations_ns"`
	Issues         []Issue                     `json:"issues"`

	fatal    error
	canceled bool
}

func newRunReport(runID string, now time.Time) *RunReport {
	return &RunReport{
		SchemaVersion:  1,
		RunID:          runID,
		Start:          now,
		StageDurations: make(map[StageName]time.Duration),
		Issues:         []Issue{},
	}
}

// AddIssue records an issue. Transient follows the error's retry strategy when classified.
func (r *RunReport) AddIssue(code IssueCode, stage StageName, severity IssueSeverity, repo, msg string, err error) {
	issue := Issue{Code: code, Stage: stage, Severity: severity, Message: msg, Repository: repo}
	if err != nil {
		issue.Message = fmt.Sprintf("%s: %v", msg, err)
		if ce, ok := errors.AsClassified(err); ok {
			issue.Transient = ce.CanRetry()
		}
	}
	r.Issues = append(r.Issues, issue)
}

// IssuesByCode filters issues.
func (r *RunReport) IssuesByCode(code IssueCode) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Code == code {
			out = append(out, i)
		}
	}
	return out
}

// Err returns the fatal error of the run, if any.
func (r *RunReport) Err() error { return r.fatal }

func (r *RunReport) fail(stage StageName, err error) {
	r.fatal = err
	r.AddIssue(IssueFatal, stage, SeverityError, "", "run aborted", err)
}

func (r *RunReport) cancel(stage StageName, err error) {
	r.canceled = true
	r.fatal = err
	r.AddIssue(IssueCanceled, stage, SeverityError, "", "run canceled", nil)
}

func (r *RunReport) finish(now time.Time) {
	r.End = now
	r.Duration = r.End.Sub(r.Start)
	r.deriveOutcome()
}

func (r *RunReport) deriveOutcome() {
	switch {
	case r.canceled:
		r.Outcome = OutcomeCanceled
	case r.fatal != nil:
		r.Outcome = OutcomeFailed
	default:
		r.Outcome = OutcomeSuccess
		for _, i := range r.Issues {
			if i.Code.affectsOutcome() {
				r.Outcome = OutcomeWarning
				break
			}
		}
	}
}

// Summary returns a human-readable single-line summary.
func (r *RunReport) Summary() string {
	return fmt.Sprintf("run=%s outcome=%s duration=%s desired=%d added=%d registered=%d rolled_back=%d workspaces=%d build_failures=%d documented=%d missing=%d relocated=%d relocation_failures=%d issues=%d",
		r.RunID, r.Outcome, r.Duration.Truncate(time.Millisecond), r.Desired, r.Added, r.Registered,
		r.RolledBack, r.Workspaces, r.BuildFailures, r.Documented, r.Missing, r.Relocated,
		r.RelocationFailures, len(r.Issues))
}

// Persist writes the JSON report and the text summary into root atomically.
// Failures are returned for logging and do not change the outcome.
func (r *RunReport) Persist(fs afero.Fs, root string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := deploy.WriteAtomic(fs, filepath.Join(root, ReportJSONFile), append(data, '\n')); err != nil {
		return fmt.Errorf("write report json: %w", err)
	}
	text := r.Summary() + "\n"
	for _, i := range r.Issues {
		text += fmt.Sprintf("%s %s [%s] %s\n", i.Severity, i.Code, i.Stage, i.Message)
	}
	if err := deploy.WriteAtomic(fs, filepath.Join(root, ReportTextFile), []byte(text)); err != nil {
		return fmt.Errorf("write report summary: %w", err)
	}
	return nil
}
