// Package state defines shared program state.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"csscompat/compat"
	"csscompat/config"
)

type envKey struct{}

// ErrNoDataset is returned when compatibility data location was neither
// configured nor specified on command line.
var ErrNoDataset = errors.New("no compatibility dataset, use --dataset or set dataset.path in configuration")

// LocalEnv keeps everything program needs in a single place.
type LocalEnv struct {
	Cfg *config.Config
	Rpt *config.Report
	Log *zap.Logger

	// set from command line, take precedence over configuration
	DatasetPath string
	Targets     []string

	dataset       *compat.Dataset
	start         time.Time
	restoreStdLog func()
}

func EnvFromContext(ctx context.Context) *LocalEnv {
	if env, ok := ctx.Value(envKey{}).(*LocalEnv); ok {
		return env
	}
	// this should never happen
	panic("localenv not found in context")
}

func ContextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, newLocalEnv())
}

func (e *LocalEnv) Uptime() time.Duration {
	return time.Since(e.start)
}

func (e *LocalEnv) RedirectStdLog() {
	if e.Log == nil {
		return
	}
	e.restoreStdLog = zap.RedirectStdLog(e.Log)
}

func (e *LocalEnv) RestoreStdLog() {
	if e.Log != nil {
		_ = e.Log.Sync()
	}
	if e.restoreStdLog != nil {
		e.restoreStdLog()
	}
}

// Dataset loads compatibility data once and returns it on subsequent calls.
// Alias entries are added when configuration asks for them.
func (e *LocalEnv) Dataset() (*compat.Dataset, error) {
	if e.dataset != nil {
		return e.dataset, nil
	}

	path := e.DatasetPath
	aliases := false
	if e.Cfg != nil {
		if len(path) == 0 {
			path = e.Cfg.Dataset.Path
		}
		aliases = e.Cfg.Dataset.Aliases
	}
	if len(path) == 0 {
		return nil, ErrNoDataset
	}

	start := time.Now()
	d, err := compat.Load(path)
	if err != nil {
		return nil, err
	}
	if aliases {
		d = compat.WithAliases(d)
	}
	if e.Log != nil {
		e.Log.Debug("Compatibility data loaded",
			zap.String("path", path),
			zap.Int("properties", len(d.CSS.Properties)),
			zap.Int("at-rules", len(d.CSS.AtRules)),
			zap.Bool("aliases", aliases),
			zap.Duration("elapsed", time.Since(start)))
	}
	e.dataset = d
	return d, nil
}

// Runtimes returns analysis targets. Runtimes from command line replace
// configured ones, when neither is present every selectable runtime of the
// dataset is used.
func (e *LocalEnv) Runtimes(d *compat.Dataset) ([]compat.Runtime, error) {
	var (
		specs []compat.Runtime
		err   error
	)
	switch {
	case len(e.Targets) > 0:
		specs, err = parseTargets(e.Targets)
	case e.Cfg != nil:
		specs, err = targetsFromConfig(e.Cfg.Targets)
	}
	if err != nil {
		return nil, err
	}

	targets := compat.ResolveTargets(d, specs)
	if dups := len(specs) - len(targets); len(specs) > 0 && dups > 0 && e.Log != nil {
		e.Log.Warn("Repeated runtimes ignored", zap.Int("count", dups))
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no runtimes to check against, dataset knows none of %v", compat.DefaultBrowsers)
	}
	return targets, nil
}
