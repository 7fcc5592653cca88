package check

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"csscompat/analyze"
	"csscompat/config"
	"csscompat/history"
	"csscompat/state"
)

// Run is the "check" command action.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("check")

	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return errors.New("no input source has been specified")
	}
	if targets := cmd.StringSlice("target"); len(targets) > 0 {
		env.Targets = targets
	}

	out := env.Cfg.Output
	if cmd.IsSet("format") {
		if out.Format, err = config.ParseOutputFmt(cmd.String("format")); err != nil {
			return err
		}
	}
	if cmd.IsSet("show-issues") {
		out.ShowIssues = cmd.Bool("show-issues")
	}
	if out.Format == config.OutputFmtTemplate && len(out.SummaryTemplate) == 0 {
		return fmt.Errorf("template output requested but %s is not configured", config.SummaryTemplateFieldName)
	}

	var failOn analyze.Status
	if s := cmd.String("fail-on"); len(s) > 0 {
		if failOn, err = analyze.ParseStatus(s); err != nil {
			return err
		}
		if failOn != analyze.StatusWarning && failOn != analyze.StatusError {
			return fmt.Errorf("fail-on must be either %s or %s", analyze.StatusWarning, analyze.StatusError)
		}
	}

	analysis := env.Cfg.Analysis
	if cmd.IsSet("at-rules") {
		analysis.CheckAtRules = cmd.Bool("at-rules")
	}
	if cmd.IsSet("jobs") {
		analysis.Concurrency = cmd.Int("jobs")
	}
	if cmd.IsSet("no-imports") {
		analysis.FollowImports = !cmd.Bool("no-imports")
	}

	d, err := env.Dataset()
	if err != nil {
		return err
	}
	targets, err := env.Runtimes(d)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, t.String())
	}

	an := analyze.New(d, targets, analyze.Options{CheckAtRules: analysis.CheckAtRules}, log)
	checker := New(an, NewFetcher(&env.Cfg.Fetch, log), Options{
		Concurrency:   analysis.Concurrency,
		FollowImports: analysis.FollowImports,
		ImportDepth:   analysis.ImportDepth,
		MaxBytes:      env.Cfg.Fetch.MaxBytes,
	}, env.Rpt, log)

	log.Info("Checking starting", zap.Strings("sources", sources), zap.Strings("runtimes", names))

	rep, err := checker.Check(ctx, sources)
	if err != nil {
		return err
	}

	log.Info("Checking completed",
		zap.String("id", rep.ID),
		zap.Int("stylesheets", len(rep.StyleSheets)),
		zap.Int("failed", rep.Failed()),
		zap.Duration("elapsed", rep.Elapsed))

	if env.Cfg.History.Enable {
		if err := record(&env.Cfg.History, rep, log); err != nil {
			log.Warn("Unable to record check history", zap.Error(err))
		}
	}

	if err := writeReport(cmd.String("output"), rep, &out); err != nil {
		return err
	}

	if len(rep.StyleSheets) == 0 && rep.Failed() > 0 {
		return fmt.Errorf("nothing was analyzed: %w", rep.Err())
	}
	if failOn != analyze.StatusOk {
		if worst, ok := rep.Result.Worst(); ok && worst.Status() >= failOn {
			return fmt.Errorf("compatibility with %s is %s (%s)", worst.Runtime, percent(worst), worst.Status())
		}
	}
	return nil
}

// writeReport renders report into dst file, or to colored stdout when dst
// is empty.
func writeReport(dst string, rep *Report, out *config.OutputConfig) (err error) {
	var (
		w     io.Writer = os.Stdout
		color bool
	)
	if len(dst) > 0 {
		f, er := os.Create(dst)
		if er != nil {
			return fmt.Errorf("unable to create output file: %w", er)
		}
		defer func() {
			if er := f.Close(); er != nil && err == nil {
				err = fmt.Errorf("unable to close output file: %w", er)
			}
		}()
		w = f
	} else {
		color = config.EnableColorOutput(os.Stdout)
	}
	if err := Render(w, rep, out, color); err != nil {
		return fmt.Errorf("unable to output report: %w", err)
	}
	return nil
}

func record(cfg *config.HistoryConfig, rep *Report, log *zap.Logger) error {
	store, err := history.Open(cfg.Path, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Record(rep.Run()); err != nil {
		return err
	}
	if _, err := store.Prune(cfg.Keep); err != nil {
		return err
	}
	return nil
}
