// Package analyze evaluates parsed stylesheets against compatibility data and
// accumulates per runtime summaries.
package analyze

import (
	"strings"

	"go.uber.org/zap"

	"csscompat/compat"
	"csscompat/css"
)

// FlexContext is the dataset sub-record alignment properties are resolved
// against.
const FlexContext = "flex_context"

// alignment properties have different support data inside flex layout
var contextual = map[string]string{
	"align-content":   FlexContext,
	"align-items":     FlexContext,
	"align-self":      FlexContext,
	"justify-content": FlexContext,
	"justify-items":   FlexContext,
	"justify-self":    FlexContext,
}

// declaration blocks of these at-rules hold regular properties
var declarationAtRules = map[string]bool{
	"media": true,
	"page":  true,
}

type Options struct {
	// CheckAtRules resolves names of at-rules too.
	CheckAtRules bool
}

// Analyzer is stateless apart from its read only inputs and may be used from
// several goroutines at once.
type Analyzer struct {
	data    *compat.Dataset
	targets []compat.Runtime
	opts    Options
	log     *zap.Logger
}

func New(data *compat.Dataset, targets []compat.Runtime, opts Options, log *zap.Logger) *Analyzer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Analyzer{
		data:    data,
		targets: targets,
		opts:    opts,
		log:     log.Named("analyze"),
	}
}

// Targets returns runtimes summaries are produced for.
func (a *Analyzer) Targets() []compat.Runtime {
	return a.targets
}

// Empty returns result with no evaluated constructs for every target, ready
// to Merge into.
func (a *Analyzer) Empty() *Result {
	return newResult(a.targets)
}

// Analyze evaluates a parsed stylesheet.
func (a *Analyzer) Analyze(sheet *css.Stylesheet, ref Ref) *Result {
	res := newResult(a.targets)
	if sheet == nil {
		return res
	}

	evaluated := 0
	css.Walk(sheet.Rules, func(r css.Rule, _ css.Rule) bool {
		if a.opts.CheckAtRules {
			if name := css.AtRuleName(r); name != "" {
				a.evaluate(res, KindAtRule, strings.ToLower(name), "", r.Pos(), ref)
				evaluated++
			}
		}
		for _, d := range declarationsOf(r) {
			property := strings.ToLower(d.Property)
			if d.IsCustomProperty() || property == "*" {
				continue
			}
			a.evaluate(res, KindProperty, property, contextual[property], d.Position, ref)
			evaluated++
		}
		return true
	})

	a.log.Debug("Stylesheet analyzed",
		zap.Stringer("stylesheet", ref),
		zap.Int("rules", len(sheet.Rules)),
		zap.Int("evaluated", evaluated))
	return res
}

// AnalyzeText parses and evaluates stylesheet text.
func (a *Analyzer) AnalyzeText(text string, ref Ref) *Result {
	sheet := css.NewParser(a.log).ParseString(text, ref.String())
	return a.Analyze(sheet, ref)
}

func (a *Analyzer) evaluate(res *Result, kind Kind, name, context string, pos css.Position, ref Ref) {
	section := compat.SectionProperties
	if kind == KindAtRule {
		section = compat.SectionAtRules
	}
	for i := range res.Runtimes {
		s := &res.Runtimes[i]
		s.Total++
		verdict := a.data.Resolve(section, name, context, s.Runtime)
		if verdict == compat.VerdictSupported {
			continue
		}
		s.Issues = append(s.Issues, Issue{
			Property:   name,
			Kind:       kind,
			Verdict:    verdict,
			Line:       pos.Line,
			Column:     pos.Column,
			StyleSheet: ref,
			Runtime:    s.Runtime.String(),
		})
	}
}

// declarationsOf returns declarations of rules which are real declaration
// contexts: selector rules at any depth and @media/@page blocks. Declarations
// of other at-rule blocks (@font-face, @counter-style, ...) are not evaluated.
func declarationsOf(r css.Rule) []css.Declaration {
	switch v := r.(type) {
	case *css.SelectorRule:
		return v.Declarations
	case *css.AtRuleWithBlock:
		if declarationAtRules[v.Name] {
			return v.Declarations
		}
	}
	return nil
}
