package css

import (
	"fmt"
	"io"
	"strings"

	"csscompat/utils/debug"
)

// Stylesheet represents a parsed CSS stylesheet. Rule and declaration text
// refers to Source.
type Stylesheet struct {
	Source   string
	Rules    []Rule   // All top-level rules in source order
	Warnings []string // Statements which could not be classified
}

// Imports returns all @import locations from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, r := range s.Rules {
		if ar, ok := r.(*AtRuleNoBlock); ok {
			if u := ar.ImportURL(); u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls
}

// Charset returns encoding name declared by leading @charset rule, if any.
func (s *Stylesheet) Charset() string {
	if len(s.Rules) == 0 {
		return ""
	}
	if ar, ok := s.Rules[0].(*AtRuleNoBlock); ok && ar.Name == "charset" && len(ar.Keywords) > 0 {
		return unquote(ar.Keywords[0])
	}
	return ""
}

// CountDeclarations returns number of declarations in all rules.
func (s *Stylesheet) CountDeclarations() int {
	count := 0
	Walk(s.Rules, func(r Rule, _ Rule) bool {
		switch v := r.(type) {
		case *SelectorRule:
			count += len(v.Declarations)
		case *AtRuleWithBlock:
			count += len(v.Declarations)
		}
		return true
	})
	return count
}

func (s *Stylesheet) text(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	return s.Source[tokens[0].Start:tokens[len(tokens)-1].End]
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
// Output is normalized: one declaration per line, two spaces indentation.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, r := range s.Rules {
		if i > 0 {
			n, err := fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
		n, err := s.writeRule(w, r, 0)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func (s *Stylesheet) writeRule(w io.Writer, r Rule, depth int) (int, error) {
	indent := strings.Repeat("  ", depth)
	switch v := r.(type) {
	case *SelectorRule:
		return s.writeBlock(w, indent+strings.Join(v.Selectors, ", "), v.Declarations, depth)
	case *AtRuleNoBlock:
		return fmt.Fprintf(w, "%s;\n", atRuleHeader(indent, v.Name, v.Keywords))
	case *AtRuleWithBlock:
		return s.writeBlock(w, atRuleHeader(indent, v.Name, v.Keywords), v.Declarations, depth)
	case *AtRuleWithSubRules:
		total, err := fmt.Fprintf(w, "%s {\n", atRuleHeader(indent, v.Name, v.Keywords))
		if err != nil {
			return total, err
		}
		for _, child := range v.Children {
			n, err := s.writeRule(w, child, depth+1)
			total += n
			if err != nil {
				return total, err
			}
		}
		n, err := fmt.Fprintf(w, "%s}\n", indent)
		return total + n, err
	case *UnknownRule:
		return fmt.Fprintf(w, "%s/* %s */\n", indent, strings.ReplaceAll(s.text(v.Tokens), "*/", "* /"))
	}
	return 0, nil
}

func atRuleHeader(indent, name string, keywords []string) string {
	if len(keywords) == 0 {
		return indent + "@" + name
	}
	return indent + "@" + name + " " + strings.Join(keywords, " ")
}

func (s *Stylesheet) writeBlock(w io.Writer, header string, decls []Declaration, depth int) (int, error) {
	total, err := fmt.Fprintf(w, "%s {\n", header)
	if err != nil {
		return total, err
	}
	indent := strings.Repeat("  ", depth+1)
	for _, d := range decls {
		n, err := fmt.Fprintf(w, "%s%s: %s;\n", indent, d.Property, d.Value(s.Source))
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err := fmt.Fprintf(w, "%s}\n", strings.Repeat("  ", depth))
	return total + n, err
}

// Dump returns human readable tree of parsed rules for troubleshooting.
func (s *Stylesheet) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "stylesheet rules=%d warnings=%d", len(s.Rules), len(s.Warnings))
	for _, r := range s.Rules {
		s.dumpRule(tw, r, 1)
	}
	return tw.String()
}

func (s *Stylesheet) dumpRule(tw *debug.TreeWriter, r Rule, depth int) {
	switch v := r.(type) {
	case *SelectorRule:
		tw.Line(depth, "selector-rule @%s", v.Location())
		tw.List(depth+1, "selectors", v.Selectors)
		s.dumpDeclarations(tw, v.Declarations, depth+1)
	case *AtRuleNoBlock:
		tw.Line(depth, "at-rule %s (%s) @%s", v.Name, HasNoBlock, v.Location())
		tw.List(depth+1, "keywords", v.Keywords)
	case *AtRuleWithBlock:
		tw.Line(depth, "at-rule %s (%s) @%s", v.Name, HasBlock, v.Location())
		tw.List(depth+1, "keywords", v.Keywords)
		s.dumpDeclarations(tw, v.Declarations, depth+1)
	case *AtRuleWithSubRules:
		tw.Line(depth, "at-rule %s (%s) @%s", v.Name, HasSubRules, v.Location())
		tw.List(depth+1, "keywords", v.Keywords)
		for _, child := range v.Children {
			s.dumpRule(tw, child, depth+1)
		}
	case *UnknownRule:
		tw.Line(depth, "unknown @%s", v.Location())
		tw.TextBlock(depth+1, "text", s.text(v.Tokens))
	}
}

func (s *Stylesheet) dumpDeclarations(tw *debug.TreeWriter, decls []Declaration, depth int) {
	for _, d := range decls {
		tw.TextBlock(depth, d.Property+" @"+d.Location(), d.Value(s.Source))
	}
}
