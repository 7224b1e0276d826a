package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
)

// CheckoutsCmd implements the 'checkouts' command.
type CheckoutsCmd struct {
	JSON bool `help:"Print JSON instead of a table"`
}

type checkoutView struct {
	ID    string `json:"id,omitempty"`
	Path  string `json:"path"`
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

func (c *CheckoutsCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	s, err := openSession(ctx, root, false)
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.pipeline.Tracker().Checkouts(ctx)
	if err != nil {
		return err
	}
	views := make([]checkoutView, 0, len(list))
	for _, co := range list {
		v := checkoutView{Path: co.Path, URL: co.URL}
		if co.Valid() {
			v.ID = co.ID.String()
		} else {
			v.Error = co.ParseErr.Error()
		}
		views = append(views, v)
	}
	return printCheckouts(g, views, c.JSON)
}

func printCheckouts(g *Global, views []checkoutView, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tPATH\tURL")
	for _, v := range views {
		id := v.ID
		if id == "" {
			id = "(unrecognized)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", id, v.Path, v.URL)
	}
	return tw.Flush()
}
