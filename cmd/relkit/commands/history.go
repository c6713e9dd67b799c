package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/relkit/internal/config"
	ferrors "git.home.luguber.info/inful/relkit/internal/foundation/errors"
	"git.home.luguber.info/inful/relkit/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Task  string `help:"Only show runs of this task (ant, release-notes)"`
	Limit int    `short:"n" help:"Number of runs to show" default:"20"`
}

func (h *HistoryCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load config").Build()
	}
	if !cfg.History.Enabled {
		fmt.Fprintln(g.Out, "history is disabled (set history.enabled: true)")
		return nil
	}

	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "open history").
			WithContext("path", cfg.History.Path).
			Build()
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, h.Task, h.Limit)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryStorage, "list history").Build()
	}
	return PrintRuns(g.Out, runs)
}

// PrintRuns writes runs as an aligned table.
func PrintRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tTASK\tSUBJECT\tOUTCOME\tFAILURE\tEXIT\tDURATION")
	for _, r := range runs {
		failure := r.Failure
		if failure == "" {
			failure = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.Task, r.Subject, r.Outcome, failure, r.ExitCode,
			r.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
