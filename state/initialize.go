package state

import (
	"fmt"
	"strings"
	"time"

	"csscompat/compat"
	"csscompat/config"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start: time.Now(),
	}
}

func parseTargets(specs []string) ([]compat.Runtime, error) {
	list := make([]compat.Runtime, 0, len(specs))
	for _, spec := range specs {
		rt, err := compat.ParseRuntime(spec)
		if err != nil {
			return nil, err
		}
		list = append(list, rt)
	}
	return list, nil
}

func targetsFromConfig(targets []config.TargetConfig) ([]compat.Runtime, error) {
	list := make([]compat.Runtime, 0, len(targets))
	for i, t := range targets {
		version, ok := compat.ParseVersion(t.Version)
		if !ok {
			return nil, fmt.Errorf("target %d (%s): bad version %q: %w", i, t.Name, t.Version, compat.ErrBadRuntime)
		}
		list = append(list, compat.Runtime{
			Name:           strings.ToLower(t.Name),
			Version:        version,
			Release:        t.Version,
			Status:         compat.StatusCustom,
			ExecutablePath: t.Path,
		})
	}
	return list, nil
}
