package css

import "strings"

// AtRuleKind describes how the body of an at-rule is shaped.
type AtRuleKind int

const (
	HasBlock    AtRuleKind = iota // single declaration block (default)
	HasNoBlock                    // terminated by ';'
	HasSubRules                   // block of nested rules
)

func (k AtRuleKind) String() string {
	switch k {
	case HasNoBlock:
		return "no-block"
	case HasSubRules:
		return "sub-rules"
	default:
		return "block"
	}
}

var atRules = map[string]AtRuleKind{
	"charset":   HasNoBlock,
	"import":    HasNoBlock,
	"namespace": HasNoBlock,

	"counter-style": HasBlock,
	"font-face":     HasBlock,
	"page":          HasBlock,
	"viewport":      HasBlock,

	"document":            HasSubRules,
	"font-feature-values": HasSubRules,
	"keyframes":           HasSubRules,
	"media":               HasSubRules,
	"supports":            HasSubRules,
}

// ClassifyAtRule returns body shape for at-rule name (without '@').
// Vendor prefixed names are classified by their unprefixed form and unknown
// names are treated as having a declaration block.
func ClassifyAtRule(name string) AtRuleKind {
	name = strings.ToLower(name)
	if kind, ok := atRules[name]; ok {
		return kind
	}
	if kind, ok := atRules[unprefixed(name)]; ok {
		return kind
	}
	return HasBlock
}

func unprefixed(name string) string {
	if !strings.HasPrefix(name, "-") {
		return name
	}
	if i := strings.IndexByte(name[1:], '-'); i >= 0 {
		return name[i+2:]
	}
	return name
}

// Rule is one parsed statement of a stylesheet. Concrete types are
// *SelectorRule, *AtRuleNoBlock, *AtRuleWithBlock, *AtRuleWithSubRules and
// *UnknownRule.
type Rule interface {
	// Pos returns position of the first token of the rule.
	Pos() Position
	rule()
}

// Declaration is a single property: value pair. Value tokens exclude
// surrounding whitespace and comments.
type Declaration struct {
	Property    string
	ValueTokens []Token
	Position
}

// Value returns declaration value text as it appears in the source.
func (d Declaration) Value(src string) string {
	if len(d.ValueTokens) == 0 {
		return ""
	}
	return src[d.ValueTokens[0].Start:d.ValueTokens[len(d.ValueTokens)-1].End]
}

// IsCustomProperty reports whether declaration defines a custom property.
func (d Declaration) IsCustomProperty() bool {
	return strings.HasPrefix(d.Property, "--")
}

type SelectorRule struct {
	Selectors    []string
	Declarations []Declaration
	Position
}

type AtRuleNoBlock struct {
	Name     string
	Keywords []string
	Prelude  []Token
	Position
}

type AtRuleWithBlock struct {
	Name         string
	Keywords     []string
	Prelude      []Token
	Declarations []Declaration
	Position
}

type AtRuleWithSubRules struct {
	Name     string
	Keywords []string
	Prelude  []Token
	Children []Rule
	Position
}

// ImportURL returns location referenced by @import rule.
func (r *AtRuleNoBlock) ImportURL() string {
	if r.Name != "import" {
		return ""
	}
	for _, t := range r.Prelude {
		switch t.Kind {
		case KindString:
			return unquote(t.Text)
		case KindURL:
			s := t.Text[strings.IndexByte(t.Text, '(')+1:]
			return unquote(strings.TrimSpace(strings.TrimSuffix(s, ")")))
		}
	}
	return ""
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

// UnknownRule keeps tokens of a statement which could not be classified.
type UnknownRule struct {
	Tokens []Token
	Position
}

func (p Position) Pos() Position { return p }

func (*SelectorRule) rule()       {}
func (*AtRuleNoBlock) rule()      {}
func (*AtRuleWithBlock) rule()    {}
func (*AtRuleWithSubRules) rule() {}
func (*UnknownRule) rule()        {}

// AtRuleName returns name of an at-rule or empty string for other rules.
func AtRuleName(r Rule) string {
	switch v := r.(type) {
	case *AtRuleNoBlock:
		return v.Name
	case *AtRuleWithBlock:
		return v.Name
	case *AtRuleWithSubRules:
		return v.Name
	}
	return ""
}

// Walk calls fn for every rule in depth first order, parent before its
// children. Returning false from fn skips children of that rule.
func Walk(rules []Rule, fn func(r Rule, parent Rule) bool) {
	walk(rules, nil, fn)
}

func walk(rules []Rule, parent Rule, fn func(Rule, Rule) bool) {
	for _, r := range rules {
		if !fn(r, parent) {
			continue
		}
		if sub, ok := r.(*AtRuleWithSubRules); ok {
			walk(sub.Children, sub, fn)
		}
	}
}
