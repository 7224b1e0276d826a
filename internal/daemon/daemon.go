// Package daemon re-runs the pipeline on an interval and when the repository
// list changes, optionally serving metrics over HTTP.
package daemon

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

const runJob = "docfleet-run"

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) error

// Options configures a Daemon.
type Options struct {
	Interval   time.Duration
	RunOnStart bool
	// ListFile is watched when non-empty.
	ListFile string
	Debounce time.Duration
	// MetricsAddr serves MetricsHandler when both are set.
	MetricsAddr    string
	MetricsHandler http.Handler
}

// Daemon drives scheduled runs until its context ends.
type Daemon struct {
	run  RunFunc
	opts Options

	runs     atomic.Int64
	failures atomic.Int64
}

// New returns a Daemon calling run.
func New(run RunFunc, opts Options) *Daemon {
	return &Daemon{run: run, opts: opts}
}

// Runs reports how many runs completed and how many of them returned an error.
func (d *Daemon) Runs() (total, failed int64) {
	return d.runs.Load(), d.failures.Load()
}

// Run blocks until ctx is canceled. Runs never overlap.
func (d *Daemon) Run(ctx context.Context) error {
	sched, err := NewScheduler()
	if err != nil {
		return err
	}
	if _, err := sched.ScheduleEvery(runJob, d.opts.Interval, func() { d.execute(ctx) }); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(context.Background()); err != nil {
			slog.Error("Scheduler shutdown failed", logfields.Error(err))
		}
	}()

	trigger := func(reason string) {
		slog.Info("Triggering run", slog.String("reason", reason))
		if err := sched.RunNow(runJob); err != nil {
			slog.Error("Failed to trigger run", logfields.Error(err))
		}
	}

	if d.opts.ListFile != "" {
		lw, err := NewListWatcher(d.opts.ListFile, d.opts.Debounce, func() { trigger("list_changed") })
		if err != nil {
			return err
		}
		if err := lw.Start(ctx); err != nil {
			lw.Stop()
			return err
		}
		defer lw.Stop()
	}

	srv, errCh := d.serveMetrics()
	if d.opts.RunOnStart {
		trigger("startup")
	}
	if next, err := sched.NextRun(runJob); err == nil {
		slog.Info("Daemon started", slog.String("interval", d.opts.Interval.String()), slog.Time("next_run", next))
	}

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon")
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Metrics server shutdown failed", logfields.Error(err))
		}
	}
	return nil
}

func (d *Daemon) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	err := d.run(ctx)
	d.runs.Add(1)
	if err != nil {
		d.failures.Add(1)
		slog.Error("Scheduled run failed", logfields.Error(err),
			logfields.DurationMS(float64(time.Since(start).Milliseconds())))
		return
	}
	slog.Info("Scheduled run complete", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// serveMetrics starts the metrics listener. The channel receives a listen failure.
func (d *Daemon) serveMetrics() (*http.Server, <-chan error) {
	errCh := make(chan error, 1)
	if d.opts.MetricsAddr == "" || d.opts.MetricsHandler == nil {
		return nil, errCh
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.opts.MetricsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{
		Addr:              d.opts.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("Serving metrics", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return srv, errCh
}
