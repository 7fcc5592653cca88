package nativehost

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"csscompat/compat"
	"csscompat/config"
	"csscompat/state"
)

// Open is the "open" command action. It starts runtime executable, given
// directly or taken from configured target, with document URL.
func Open(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("launch")

	doc := cmd.Args().First()
	if len(doc) == 0 {
		return errors.New("no document URL has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many documents", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	path := cmd.String("path")
	if len(path) == 0 {
		spec := cmd.String("target")
		if len(spec) == 0 {
			return errors.New("either target or executable path must be specified")
		}
		rt, err := compat.ParseRuntime(spec)
		if err != nil {
			return err
		}
		if path, err = executableOf(env.Cfg.Targets, rt); err != nil {
			return err
		}
	}

	if err := Launch(ctx, LaunchRequest{Path: path, URL: doc}); err != nil {
		return err
	}
	log.Info("Runtime started", zap.String("path", path), zap.String("url", doc))
	return nil
}

// executableOf finds configured executable of the runtime.
func executableOf(targets []config.TargetConfig, rt compat.Runtime) (string, error) {
	for _, t := range targets {
		v, ok := compat.ParseVersion(t.Version)
		if !ok || v != rt.Version || !strings.EqualFold(t.Name, rt.Name) {
			continue
		}
		if len(t.Path) == 0 {
			return "", fmt.Errorf("%s: %w", rt, ErrNoExecutable)
		}
		return t.Path, nil
	}
	return "", fmt.Errorf("%s is not among configured targets: %w", rt, ErrNoExecutable)
}

// Host is the "native-host" command action. Standard output belongs to the
// messaging protocol, logs must not go there.
func Host(ctx context.Context, _ *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)
	return Serve(ctx, os.Stdin, os.Stdout, nil, env.Log.Named("native-host"))
}
