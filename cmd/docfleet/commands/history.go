package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/docfleet/internal/config"
	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int           `short:"n" help:"Number of runs to show" default:"20"`
	RunID string        `name:"run" help:"Show component outcomes of one run"`
	Prune time.Duration `help:"Delete runs older than this before listing"`
	Last  string        `help:"Show when owner/name/component last had documentation" placeholder:"OWNER/NAME/COMPONENT"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("run history is not configured").
			WithContext("setting", "history.path").
			UserAction().
			Build()
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if h.Prune > 0 {
		n, err := store.Prune(ctx, time.Now().Add(-h.Prune))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(g.Out, "pruned %d runs\n", n)
	}

	if h.Last != "" {
		return h.printLastDocumented(ctx, g, store)
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	if h.RunID != "" {
		run, err := store.Run(ctx, h.RunID)
		if err != nil {
			return err
		}
		comps, err := store.Components(ctx, run.ID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(g.Out, "run %s %s (%s)\n", run.ID, run.Outcome, run.Duration().Truncate(time.Millisecond))
		_, _ = fmt.Fprintln(tw, "REPOSITORY\tWORKSPACE\tCOMPONENT\tURL")
		for _, c := range comps {
			url := c.URL
			if !c.Present {
				url = "(missing)"
			}
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Repository, c.Workspace, c.Component, url)
		}
		return tw.Flush()
	}

	runs, err := store.Recent(ctx, h.Limit)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tOUTCOME\tREPOS\tDOCUMENTED\tMISSING\tADDED\tROLLED BACK")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.Start.Local().Format(time.DateTime), r.Outcome, r.Registered,
			r.Documented, r.Missing, r.Added, r.RolledBack)
	}
	return tw.Flush()
}

func (h *HistoryCmd) printLastDocumented(ctx context.Context, g *Global, store *history.SQLiteStore) error {
	parts := strings.SplitN(h.Last, "/", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return errors.NewError(errors.CategoryValidation, "component must be given as owner/name/component").
			WithContext("value", h.Last).
			UserAction().
			Build()
	}
	repository := parts[0] + "/" + parts[1]
	at, ok, err := store.LastDocumented(ctx, repository, parts[2])
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintf(g.Out, "%s: never documented\n", h.Last)
		return nil
	}
	_, _ = fmt.Fprintf(g.Out, "%s: last documented %s\n", h.Last, at.Local().Format(time.DateTime))
	return nil
}
