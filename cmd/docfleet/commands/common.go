package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docfleet/internal/command"
	"git.home.luguber.info/inful/docfleet/internal/config"
	"git.home.luguber.info/inful/docfleet/internal/git"
	"git.home.luguber.info/inful/docfleet/internal/history"
	"git.home.luguber.info/inful/docfleet/internal/logfields"
	"git.home.luguber.info/inful/docfleet/internal/metrics"
	"git.home.luguber.info/inful/docfleet/internal/notify"
	"git.home.luguber.info/inful/docfleet/internal/pipeline"
)

// Global is passed to every command's Run.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docfleet.yaml"`
	Root    string           `help:"Git repository holding the checkouts" default:"." type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run       RunCmd       `cmd:"" default:"withargs" help:"Reconcile checkouts, build documentation and deploy the index (default)"`
	Checkouts CheckoutsCmd `cmd:"" help:"List tracked checkouts and their identifiers"`
	History   HistoryCmd   `cmd:"" help:"Show recorded runs"`
	Schedule  ScheduleCmd  `cmd:"" help:"Run on an interval and whenever the repository list changes"`
	Init      InitCmd      `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: config.ParseLogLevel(c.Verbose)}))
	slog.SetDefault(logger)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// session bundles the collaborators of one invocation.
type session struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	recorder *metrics.PrometheusRecorder
	closers  []func()
}

// openSession loads configuration, opens the git root and wires the pipeline.
// With sideChannels, metrics, history and notification are attached; failing
// to open history or notification only disables them.
func openSession(ctx context.Context, root *CLI, sideChannels bool) (*session, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	runner := command.NewExecRunner()
	repo, err := git.Open(root.Root, runner, git.Options{
		AuthorName:  cfg.Git.AuthorName,
		AuthorEmail: cfg.Git.AuthorEmail,
		Commit:      cfg.Git.CommitEnabled(),
	})
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	var opts []pipeline.Option
	if sideChannels {
		s.recorder = metrics.NewPrometheusRecorder(nil)
		opts = append(opts, pipeline.WithRecorder(s.recorder))

		if cfg.History.Path != "" {
			store, err := history.Open(cfg.History.Path)
			if err != nil {
				slog.Warn("Run history disabled", logfields.Path(cfg.History.Path), logfields.Error(err))
			} else {
				opts = append(opts, pipeline.WithHistory(store))
				s.closers = append(s.closers, func() { _ = store.Close() })
			}
		}
		if cfg.Notify.NATSURL != "" {
			n, err := notify.Connect(ctx, notify.Options{
				URL:     cfg.Notify.NATSURL,
				Subject: cfg.Notify.Subject,
				Timeout: cfg.Notify.Timeout,
			})
			if err != nil {
				slog.Warn("Run notifications disabled", logfields.URL(cfg.Notify.NATSURL), logfields.Error(err))
			} else {
				opts = append(opts, pipeline.WithNotifier(n))
				s.closers = append(s.closers, n.Close)
			}
		}
	}

	p, err := pipeline.New(cfg, repo, runner, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.pipeline = p
	slog.Debug("Session ready", slog.String("pipeline", p.String()))
	return s, nil
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
