package commands

import (
	"fmt"

	"git.home.luguber.info/inful/docfleet/internal/foundation/errors"
	"git.home.luguber.info/inful/docfleet/internal/pipeline"
)

// RunCmd implements the default 'run' command.
type RunCmd struct {
	ListFile      string `arg:"" optional:"" help:"Repository list file (defaults to list_file from the configuration)"`
	FailOnWarning bool   `help:"Exit non-zero when the run finished with warnings"`
}

func (r *RunCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, root, true)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.pipeline.Run(ctx, r.ListFile)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.Out, report.Summary())
	if r.FailOnWarning && report.Outcome == pipeline.OutcomeWarning {
		return errors.NewError(errors.CategoryRuntime, "run finished with warnings").
			WithContext("run_id", report.RunID).
			WithContext("issues", len(report.Issues)).
			Build()
	}
	return nil
}
