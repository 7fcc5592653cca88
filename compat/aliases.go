package compat

import (
	"maps"
	"slices"
	"sort"
	"strings"
)

const contextSuffix = "_context"

type alias struct {
	name    string
	context string
	runtime string
	state   SupportState
}

// WithAliases returns dataset where every prefixed or alternatively named
// support entry of a property is also recorded as a plain entry of a sibling
// property with that name (prefix + property or the alternative name), under
// the same layout context. So "-moz-column-count" resolves as supported
// wherever column-count was available with "-moz-" prefix.
//
// Input dataset is not modified, untouched records are shared with it.
func WithAliases(d *Dataset) *Dataset {
	if d == nil {
		return nil
	}

	var aliases []alias
	for _, name := range sortedKeys(d.CSS.Properties) {
		f := d.CSS.Properties[name]
		if f == nil {
			continue
		}
		aliases = collectAliases(aliases, name, "", f)
		for _, key := range sortedKeys(f.Sub) {
			if strings.HasSuffix(key, contextSuffix) && f.Sub[key] != nil {
				aliases = collectAliases(aliases, name, key, f.Sub[key])
			}
		}
	}

	out := &Dataset{
		Browsers: d.Browsers,
		CSS: CSSData{
			Properties: maps.Clone(d.CSS.Properties),
			AtRules:    d.CSS.AtRules,
		},
	}
	if out.CSS.Properties == nil {
		out.CSS.Properties = make(map[string]*Feature)
	}

	cloned := make(map[string]bool)
	for _, a := range aliases {
		f := out.CSS.Properties[a.name]
		if !cloned[a.name] {
			f = cloneFeature(f)
			out.CSS.Properties[a.name] = f
			cloned[a.name] = true
		}
		if a.context != "" {
			if f.Sub == nil {
				f.Sub = make(map[string]*Feature)
			}
			if f.Sub[a.context] == nil {
				f.Sub[a.context] = &Feature{}
			}
			f = f.Sub[a.context]
		}
		if f.Compat == nil {
			f.Compat = &CompatRecord{}
		}
		if f.Compat.Support == nil {
			f.Compat.Support = make(map[string]SupportList)
		}
		f.Compat.Support[a.runtime] = append(f.Compat.Support[a.runtime], a.state)
	}
	return out
}

func collectAliases(aliases []alias, property, context string, f *Feature) []alias {
	if f.Compat == nil {
		return aliases
	}
	for _, runtime := range sortedKeys(f.Compat.Support) {
		for _, s := range f.Compat.Support[runtime] {
			if s.Prefix == "" && s.AlternativeName == "" {
				continue
			}
			name := s.AlternativeName
			if name == "" {
				name = s.Prefix + property
			}
			aliases = append(aliases, alias{
				name:    name,
				context: context,
				runtime: runtime,
				state: SupportState{
					VersionAdded:   s.VersionAdded,
					VersionRemoved: s.VersionRemoved,
					Flags:          s.Flags,
				},
			})
		}
	}
	return aliases
}

func cloneFeature(f *Feature) *Feature {
	c := &Feature{}
	if f == nil {
		return c
	}
	if f.Compat != nil {
		rec := *f.Compat
		rec.Support = make(map[string]SupportList, len(f.Compat.Support))
		for k, v := range f.Compat.Support {
			rec.Support[k] = slices.Clone(v)
		}
		c.Compat = &rec
	}
	if f.Sub != nil {
		c.Sub = make(map[string]*Feature, len(f.Sub))
		for k, v := range f.Sub {
			c.Sub[k] = cloneFeature(v)
		}
	}
	return c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
