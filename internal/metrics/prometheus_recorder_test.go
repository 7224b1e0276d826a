package metrics

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration("reconcile", 150*time.Millisecond)
	pr.IncStageResult("reconcile", ResultSuccess)
	pr.ObserveRunDuration(3 * time.Second)
	pr.IncRunOutcome("warning")
	pr.IncCheckoutChange(CheckoutAdded)
	pr.IncCheckoutChange(CheckoutAdded)
	pr.IncCheckoutChange(CheckoutRolledBack)
	pr.SetTrackedRepositories(4)
	pr.ObserveWorkspaceBuild("alice/foo", 2*time.Second, false)
	pr.AddComponents(3, 1)
	pr.IncRelocation(true)

	assert.InDelta(t, 2, testutil.ToFloat64(pr.checkoutChanges.WithLabelValues(CheckoutAdded)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.checkoutChanges.WithLabelValues(CheckoutRolledBack)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(pr.tracked), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.components.WithLabelValues("documented")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.components.WithLabelValues("missing")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.wsResults.WithLabelValues("failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.runOutcome.WithLabelValues("warning")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestNilPrometheusRecorderIsSafe(t *testing.T) {
	var pr *PrometheusRecorder
	assert.NotPanics(t, func() {
		pr.IncRunOutcome("success")
		pr.AddComponents(1, 1)
		pr.IncRelocation(false)
	})
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncRunOutcome("success")

	path := filepath.Join(t.TempDir(), "docfleet.prom")
	require.NoError(t, pr.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `docfleet_run_outcomes_total{outcome="success"} 1`)
}

func TestHTTPHandler(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.SetTrackedRepositories(2)

	rec := httptest.NewRecorder()
	pr.HTTPHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "docfleet_tracked_repositories 2")
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NoopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveStageDuration("x", time.Second)
		r.IncRunOutcome("success")
		r.ObserveWorkspaceBuild("a/b", time.Second, true)
	})
}
