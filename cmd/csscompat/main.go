package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"csscompat/analyze"
	"csscompat/check"
	"csscompat/config"
	"csscompat/misc"
	"csscompat/nativehost"
	"csscompat/state"
)

const nativeHostCommand = "native-host"

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)
	env.DatasetPath = cmd.String("dataset")

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}

	// when serving native messages stdout carries protocol
	stdout := os.Stdout
	if cmd.Args().First() == nativeHostCommand {
		stdout = os.Stderr
	}
	if env.Log, err = env.Cfg.Logging.PrepareFor(env.Rpt, stdout, os.Stderr); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - cli.Exit() is not needed, regular
// errors are returned from subcommands.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

const sourceHelp = `
SOURCE:
    where stylesheets come from, following forms are supported:
        URL of a document or a stylesheet: "https://example.com/index.html"
        path to a stylesheet or HTML document: "[path_to_file]file.css", "[path_to_file]index.html"
        path to a directory: "[path_to_directory]directory" - recursively process all stylesheets, documents and archives under directory
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]"
        "-" to read a stylesheet from STDIN

	Processing of archives inside archives is not supported.
`

func main() {

	// allow graceful shutdown on interrupt, remote fetching may take a while
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "checks CSS compatibility with browser runtimes",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.StringFlag{Name: "dataset", DefaultText: "", Usage: "load compatibility data from `FILE` (JSON), overrides configuration"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "check",
				Usage:        "Checks compatibility of stylesheets with target runtimes",
				OnUsageError: usageErrorHandler,
				Action:       check.Run,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "target", Aliases: []string{"t"},
						Usage: "check against `RUNTIME` (\"firefox 68\"), may be repeated, replaces configured targets"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"},
						Usage: "report `TYPE` (supported types: " + strings.Join(config.OutputFmtNames(), ", ") + ")"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write report to `FILE` instead of STDOUT"},
					&cli.BoolFlag{Name: "show-issues", Usage: "list every unsupported construct with its location"},
					&cli.BoolFlag{Name: "at-rules", Usage: "evaluate at-rules in addition to properties"},
					&cli.BoolFlag{Name: "no-imports", Usage: "do not follow @import rules"},
					&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Usage: "analyze `N` stylesheets concurrently (0 - number of CPUs)"},
					&cli.StringFlag{Name: "fail-on",
						Usage: "exit with error when the least compatible runtime has `STATUS` (" + analyze.StatusWarning.String() + " or " + analyze.StatusError.String() + ") or worse"},
				},
				ArgsUsage:          "SOURCE [SOURCE...]",
				CustomHelpTemplate: fmt.Sprintf("%s%s", cli.CommandHelpTemplate, sourceHelp),
			},
			{
				Name:         "parse",
				Usage:        "Outputs parsed structure of stylesheets without analyzing them",
				OnUsageError: usageErrorHandler,
				Action:       check.Parse,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "tree", Usage: "output `TYPE` (tree or css)"},
				},
				ArgsUsage:          "SOURCE [SOURCE...]",
				CustomHelpTemplate: fmt.Sprintf("%s%s", cli.CommandHelpTemplate, sourceHelp),
			},
			{
				Name:         "runtimes",
				Usage:        "Lists runtimes known to compatibility data",
				OnUsageError: usageErrorHandler,
				Action:       check.Runtimes,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "list every release, not only current, beta and nightly ones"},
					&cli.BoolFlag{Name: "targets", Usage: "list runtimes checks are performed against"},
					&cli.StringSliceFlag{Name: "target", Aliases: []string{"t"}, Usage: "with --targets, resolve `RUNTIME` instead of configured targets"},
				},
				ArgsUsage: "[NAME...]",
				CustomHelpTemplate: fmt.Sprintf(`%s
NAME:
    runtime names as used by compatibility data ("firefox", "chrome", ...)
    if absent - firefox, chrome, safari and edge
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "history",
				Usage:        "Lists results of recent checks",
				OnUsageError: usageErrorHandler,
				Action:       check.History,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "show at most `N` latest checks (0 - all)"},
					&cli.BoolFlag{Name: "json", Usage: "output as JSON"},
				},
			},
			{
				Name:         "open",
				Usage:        "Opens document in target runtime",
				OnUsageError: usageErrorHandler,
				Action:       nativehost.Open,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "configured target `RUNTIME` (\"firefox 68\") to use"},
					&cli.StringFlag{Name: "path", Usage: "runtime executable `FILE`, overrides target"},
				},
				ArgsUsage: "URL",
			},
			{
				Name:         nativeHostCommand,
				Usage:        "Serves a single native messaging launch request on STDIN/STDOUT",
				OnUsageError: usageErrorHandler,
				Action:       nativehost.Host,
				CustomHelpTemplate: fmt.Sprintf(`%s
Reads one length prefixed JSON message {"path": "...", "url": "..."} and replies
with {"ok": true} or {"ok": false, "error": "..."}. Logs never go to STDOUT.
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
