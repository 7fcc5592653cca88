package check

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	cli "github.com/urfave/cli/v3"

	"csscompat/compat"
	"csscompat/state"
)

// Runtimes is the "runtimes" command action. It lists runtimes dataset knows
// about or, with --targets, runtimes checks would be performed against.
func Runtimes(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	d, err := env.Dataset()
	if err != nil {
		return err
	}

	var list []compat.Runtime
	switch {
	case cmd.Bool("targets"):
		if targets := cmd.StringSlice("target"); len(targets) > 0 {
			env.Targets = targets
		}
		if list, err = env.Runtimes(d); err != nil {
			return err
		}
	case cmd.Bool("all"):
		names := cmd.Args().Slice()
		if len(names) == 0 {
			names = compat.DefaultBrowsers
		}
		for _, name := range names {
			list = append(list, d.Releases(strings.ToLower(name))...)
		}
	default:
		names := cmd.Args().Slice()
		for i := range names {
			names[i] = strings.ToLower(names[i])
		}
		list = compat.SelectableRuntimes(d, names...)
	}
	writeRuntimes(os.Stdout, d, list)
	return nil
}

func writeRuntimes(w io.Writer, d *compat.Dataset, list []compat.Runtime) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Runtime", "Name", "Version", "Status", "Released", "Engine", "Executable"})
	for _, rt := range list {
		var released, engine string
		if b := d.Browsers[rt.Name]; b != nil {
			if r := b.Releases[rt.Release]; r != nil {
				released = r.ReleaseDate
				engine = strings.TrimSpace(r.EngineName + " " + r.EngineVersion)
			}
		}
		t.AppendRow(table.Row{rt.Name, rt.BrandName, rt.VersionText(), rt.Status, released, engine, rt.ExecutablePath})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(list)})
	t.Render()
}
