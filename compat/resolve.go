package compat

// Resolve determines support of construct in runtime. Non empty context
// selects context specific sub-record of the construct (for example
// "flex_context"), missing sub-record is reported as unknown.
//
// Entries which require vendor prefix or runtime flag never count as
// support. Entries are checked in dataset order and the first range covering
// runtime version wins.
func (d *Dataset) Resolve(section Section, construct, context string, rt Runtime) Verdict {
	if d == nil {
		return VerdictUnknown
	}
	return ResolveFeature(d.Section(section)[construct], context, rt)
}

// Property resolves support of a CSS property.
func (d *Dataset) Property(name, context string, rt Runtime) Verdict {
	return d.Resolve(SectionProperties, name, context, rt)
}

// AtRule resolves support of an at-rule, name is given without '@'.
func (d *Dataset) AtRule(name string, rt Runtime) Verdict {
	return d.Resolve(SectionAtRules, name, "", rt)
}

// ResolveFeature applies resolution rules to a single feature record.
func ResolveFeature(f *Feature, context string, rt Runtime) Verdict {
	if f == nil {
		return VerdictUnknown
	}
	if context != "" {
		if f = f.Sub[context]; f == nil {
			return VerdictUnknown
		}
	}
	if f.Compat == nil {
		return VerdictUnknown
	}

	for _, s := range f.Compat.Support[rt.Name] {
		if !s.Plain() {
			continue
		}
		if s.Covers(rt.Version) {
			return VerdictSupported
		}
	}
	return VerdictUnsupported
}
