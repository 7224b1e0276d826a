package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "docfleet"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	stageDuration   *prom.HistogramVec
	stageResults    *prom.CounterVec
	runDuration     prom.Histogram
	runOutcome      *prom.CounterVec
	checkoutChanges *prom.CounterVec
	tracked         prom.Gauge
	wsDuration      *prom.HistogramVec
	wsResults       *prom.CounterVec
	components      *prom.CounterVec
	relocations     *prom.CounterVec
	lastRun         prom.Gauge
}

var _ Recorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder constructs and registers the metrics on reg (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total pipeline run duration",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400, 3600},
		}),
		runOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Pipeline runs by final status",
		}, []string{"outcome"}),
		checkoutChanges: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_changes_total",
			Help:      "Checkout additions, failed additions and rollbacks",
		}, []string{"action"}),
		tracked: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_repositories",
			Help:      "Repositories registered in the last run",
		}),
		wsDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "workspace_build_duration_seconds",
			Help:      "Duration of documentation builds per repository",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"repository", "result"}),
		wsResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "workspace_builds_total",
			Help:      "Workspace documentation builds by success/failure",
		}, []string{"result"}),
		components: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "components_total",
			Help:      "Components by documentation status",
		}, []string{"status"}),
		relocations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "relocations_total",
			Help:      "Documentation relocations by success/failure",
		}, []string{"result"}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcome,
		pr.checkoutChanges, pr.tracked, pr.wsDuration, pr.wsResults, pr.components,
		pr.relocations, pr.lastRun)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncRunOutcome(outcome string) {
	if p == nil {
		return
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncCheckoutChange(action string) {
	if p == nil {
		return
	}
	p.checkoutChanges.WithLabelValues(action).Inc()
}

func (p *PrometheusRecorder) SetTrackedRepositories(n int) {
	if p == nil {
		return
	}
	p.tracked.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveWorkspaceBuild(repo string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := resultLabel(success)
	p.wsDuration.WithLabelValues(repo, res).Observe(d.Seconds())
	p.wsResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) AddComponents(documented, missing int) {
	if p == nil {
		return
	}
	p.components.WithLabelValues("documented").Add(float64(documented))
	p.components.WithLabelValues("missing").Add(float64(missing))
}

func (p *PrometheusRecorder) IncRelocation(success bool) {
	if p == nil {
		return
	}
	p.relocations.WithLabelValues(resultLabel(success)).Inc()
}

// WriteTextfile writes the current samples in the node-exporter textfile format.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failed"
}
