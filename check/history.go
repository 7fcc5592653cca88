package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	cli "github.com/urfave/cli/v3"

	"csscompat/history"
	"csscompat/state"
)

// History is the "history" command action listing recent checks.
func History(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	cfg := env.Cfg.History
	if len(cfg.Path) == 0 {
		return errors.New("history database is not configured, set history.path in configuration")
	}

	store, err := history.Open(cfg.Path, env.Log)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		if runs == nil {
			runs = []history.Run{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}
	writeHistory(os.Stdout, runs)
	return nil
}

func writeHistory(w io.Writer, runs []history.Run) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Started", "Sources", "Stylesheets", "Failed", "Results"})
	for _, run := range runs {
		results := make([]string, 0, len(run.Results))
		for _, r := range run.Results {
			results = append(results, fmt.Sprintf("%s: %d/%d %s", r.Runtime, r.Compatible, r.Total, r.Status))
		}
		t.AppendRow(table.Row{
			run.Started.Local().Format(time.DateTime),
			strings.Join(run.Sources, "\n"),
			run.StyleSheets,
			run.Failed,
			strings.Join(results, "\n"),
		})
	}
	t.Render()
}
