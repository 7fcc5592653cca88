package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"csscompat/state"
)

// Parse is the "parse" command action. It outputs parsed structure of every
// stylesheet found in sources without analyzing it.
func Parse(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("parse")

	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return errors.New("no input source has been specified")
	}
	tree := true
	switch f := cmd.String("format"); f {
	case "tree":
	case "css":
		tree = false
	default:
		return fmt.Errorf("unknown parse output format %q, use tree or css", f)
	}

	c := New(nil, NewFetcher(&env.Cfg.Fetch, log), Options{MaxBytes: env.Cfg.Fetch.MaxBytes}, env.Rpt, log)
	return c.dump(ctx, os.Stdout, sources, tree)
}

// dump writes every stylesheet of sources to w. Sources which cannot be
// processed are logged and skipped.
func (c *Checker) dump(ctx context.Context, w io.Writer, sources []string, tree bool) error {
	var count int
	for _, src := range sources {
		jobs, err := c.collect(ctx, src)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("Unable to process source", zap.String("source", src), zap.Error(err))
			continue
		}
		for _, j := range jobs {
			text, _, err := c.textOf(ctx, j)
			if err != nil {
				c.log.Error("Unable to load stylesheet", zap.Stringer("stylesheet", j.ref), zap.Error(err))
				continue
			}
			sheet := c.parser.ParseString(text, j.ref.String())
			c.store(j.ref, text, sheet)

			fmt.Fprintf(w, "/* %s */\n", j.ref)
			if tree {
				io.WriteString(w, sheet.Dump())
			} else if _, err := sheet.WriteTo(w); err != nil {
				return err
			}
			for _, warn := range sheet.Warnings {
				fmt.Fprintf(w, "/* warning: %s */\n", warn)
			}
			fmt.Fprintln(w)
			count++
		}
	}
	if count == 0 {
		return errors.New("no stylesheets were found")
	}
	return nil
}
