package css

import (
	"fmt"

	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into rule trees.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	return p.ParseString(string(data), source...)
}

// ParseString parses CSS text into a Stylesheet without copying it.
func (p *Parser) ParseString(src string, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Source:   src,
		Rules:    make([]Rule, 0),
		Warnings: make([]string, 0),
	}

	log := p.log
	if len(source) > 0 && source[0] != "" {
		log = log.With(zap.String("source", source[0]))
		log.Debug("Parsing CSS", zap.Int("bytes", len(src)))
	}

	tz := NewTokenizer(src)
	for rule := tz.NextRule(); rule != nil; rule = tz.NextRule() {
		sheet.Rules = append(sheet.Rules, rule)
	}
	if err := tz.Err(); err != nil {
		// whatever was read before the error is still usable
		log.Debug("CSS lexer stopped early", zap.Error(err))
		sheet.Warnings = append(sheet.Warnings, "input was not read completely: "+err.Error())
	}

	Walk(sheet.Rules, func(r Rule, _ Rule) bool {
		if u, ok := r.(*UnknownRule); ok {
			w := fmt.Sprintf("unrecognized statement at %s: %q", u.Location(), sheet.text(u.Tokens))
			sheet.Warnings = append(sheet.Warnings, w)
			log.Debug("Unrecognized statement", zap.String("at", u.Location()), zap.Int("tokens", len(u.Tokens)))
		}
		return true
	})

	log.Debug("Parsed CSS", zap.Int("rules", len(sheet.Rules)), zap.Int("warnings", len(sheet.Warnings)))
	return sheet
}
