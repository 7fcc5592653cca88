package compat

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
)

// DefaultBrowsers lists runtimes offered for selection when none are named.
var DefaultBrowsers = []string{"firefox", "chrome", "safari", "edge"}

// Runtime is a target browser engine support is evaluated against.
type Runtime struct {
	Name           string  `json:"name" yaml:"name"`
	BrandName      string  `json:"brand_name,omitempty" yaml:"brand_name,omitempty"`
	Version        float64 `json:"version" yaml:"version"`
	Release        string  `json:"release,omitempty" yaml:"release,omitempty"`
	Status         Status  `json:"status" yaml:"status"`
	ExecutablePath string  `json:"path,omitempty" yaml:"path,omitempty"`
}

// VersionText returns version as written in the dataset when known.
func (r Runtime) VersionText() string {
	if r.Release != "" {
		return r.Release
	}
	return strconv.FormatFloat(r.Version, 'f', -1, 64)
}

func (r Runtime) String() string {
	return r.Name + " " + r.VersionText()
}

// Label returns runtime name for presentation, e.g. "Firefox 68 [current]".
func (r Runtime) Label() string {
	name := r.BrandName
	if name == "" {
		name = r.Name
	}
	return fmt.Sprintf("%s %s [%s]", name, r.VersionText(), r.Status)
}

// ErrBadRuntime is returned for runtime specifications which cannot be parsed.
var ErrBadRuntime = errors.New("runtime must be specified as name and version, e.g. \"firefox 68\"")

// ParseRuntime parses "firefox 68", "firefox@68" or "firefox/68". Returned
// runtime has custom status until resolved against a dataset.
func ParseRuntime(spec string) (Runtime, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(spec), func(r rune) bool {
		return r == ' ' || r == '\t' || r == '@' || r == '/'
	})
	if len(fields) != 2 {
		return Runtime{}, fmt.Errorf("%q: %w", spec, ErrBadRuntime)
	}
	version, ok := ParseVersion(fields[1])
	if !ok {
		return Runtime{}, fmt.Errorf("%q: bad version: %w", spec, ErrBadRuntime)
	}
	return Runtime{
		Name:    strings.ToLower(fields[0]),
		Version: version,
		Release: fields[1],
		Status:  StatusCustom,
	}, nil
}

// Releases returns runtime releases known to the dataset in natural version
// order regardless of status.
func (d *Dataset) Releases(name string) []Runtime {
	b := d.Browsers[name]
	if b == nil {
		return nil
	}

	versions := make([]string, 0, len(b.Releases))
	for v := range b.Releases {
		versions = append(versions, v)
	}
	sort.Sort(natural.StringSlice(versions))

	list := make([]Runtime, 0, len(versions))
	for _, v := range versions {
		num, ok := ParseVersion(v)
		if !ok {
			continue
		}
		status, err := ParseStatus(b.Releases[v].Status)
		if err != nil {
			status = StatusRetired
		}
		list = append(list, Runtime{
			Name:      name,
			BrandName: b.Name,
			Version:   num,
			Release:   v,
			Status:    status,
		})
	}
	return list
}

// SelectableRuntimes returns current, beta and nightly releases of named
// runtimes (DefaultBrowsers when none given) in the order of names.
func SelectableRuntimes(d *Dataset, names ...string) []Runtime {
	if len(names) == 0 {
		names = DefaultBrowsers
	}
	var list []Runtime
	for _, name := range names {
		for _, rt := range d.Releases(name) {
			if rt.Status.Selectable() {
				list = append(list, rt)
			}
		}
	}
	return list
}

// Lookup fills brand name and status of runtime from the dataset. Runtimes
// or releases dataset does not know about get custom status.
func (d *Dataset) Lookup(rt Runtime) Runtime {
	rt.Status = StatusCustom
	b := d.Browsers[rt.Name]
	if b == nil {
		return rt
	}
	rt.BrandName = b.Name
	for _, v := range sortedKeys(b.Releases) {
		num, ok := ParseVersion(v)
		if !ok || num != rt.Version {
			continue
		}
		if status, err := ParseStatus(b.Releases[v].Status); err == nil {
			rt.Status = status
			rt.Release = v
		}
		break
	}
	return rt
}

// ResolveTargets turns runtime specifications into targets. Empty list
// selects every selectable runtime. Repeated runtimes are dropped, the first
// specification wins.
func ResolveTargets(d *Dataset, specs []Runtime) []Runtime {
	if len(specs) == 0 {
		return SelectableRuntimes(d)
	}
	list := make([]Runtime, 0, len(specs))
	for _, spec := range specs {
		if slices.ContainsFunc(list, func(rt Runtime) bool {
			return rt.Name == spec.Name && rt.Version == spec.Version
		}) {
			continue
		}
		rt := d.Lookup(spec)
		if spec.BrandName != "" {
			rt.BrandName = spec.BrandName
		}
		list = append(list, rt)
	}
	return list
}
