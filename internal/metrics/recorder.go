package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// Checkout change actions.
const (
	CheckoutAdded      = "added"
	CheckoutAddFailed  = "add_failed"
	CheckoutRolledBack = "rolled_back"
)

// Recorder defines observability hooks for a pipeline run.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome string) // success|warning|failed|canceled
	IncCheckoutChange(action string)
	SetTrackedRepositories(n int)
	ObserveWorkspaceBuild(repo string, d time.Duration, success bool)
	AddComponents(documented, missing int)
	IncRelocation(success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)        {}
func (NoopRecorder) IncStageResult(string, ResultLabel)                {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                  {}
func (NoopRecorder) IncRunOutcome(string)                              {}
func (NoopRecorder) IncCheckoutChange(string)                          {}
func (NoopRecorder) SetTrackedRepositories(int)                        {}
func (NoopRecorder) ObserveWorkspaceBuild(string, time.Duration, bool) {}
func (NoopRecorder) AddComponents(int, int)                            {}
func (NoopRecorder) IncRelocation(bool)                                {}

var _ Recorder = NoopRecorder{}
