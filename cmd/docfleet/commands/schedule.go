package commands

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/docfleet/internal/daemon"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
)

// ScheduleCmd implements the long running 'schedule' command.
type ScheduleCmd struct {
	ListFile    string `arg:"" optional:"" help:"Repository list file (defaults to list_file from the configuration)"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address (overrides metrics.listen)"`
}

func (c *ScheduleCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, root, true)
	if err != nil {
		return err
	}
	defer s.Close()

	list := c.ListFile
	if list == "" {
		list = s.cfg.ListFile
	}
	opts := daemon.Options{
		Interval:       s.cfg.Schedule.Interval,
		RunOnStart:     s.cfg.Schedule.RunOnStart,
		MetricsAddr:    s.cfg.Metrics.Listen,
		MetricsHandler: s.recorder.HTTPHandler(),
	}
	if c.MetricsAddr != "" {
		opts.MetricsAddr = c.MetricsAddr
	}
	if s.cfg.Schedule.WatchList {
		opts.ListFile = list
	}

	d := daemon.New(func(ctx context.Context) error {
		report, err := s.pipeline.Run(ctx, list)
		if err == nil {
			slog.Info("Run summary", logfields.RunID(report.RunID), slog.String("outcome", string(report.Outcome)))
		}
		return err
	}, opts)
	return d.Run(ctx)
}
