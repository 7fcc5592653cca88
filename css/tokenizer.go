package css

import "strings"

// Tokenizer groups lexer tokens into rules. Rules are produced lazily, one at
// a time, so callers may stop early.
type Tokenizer struct {
	src    string
	lex    *Lexer
	pushed []Token
	depth  int // number of currently open sub-rule blocks
}

// NewTokenizer creates tokenizer over stylesheet text.
func NewTokenizer(src string) *Tokenizer {
	return &Tokenizer{src: src, lex: NewLexer(src)}
}

// Source returns text tokenizer works on.
func (t *Tokenizer) Source() string {
	return t.src
}

// Err returns lexer error which terminated input prematurely, if any.
func (t *Tokenizer) Err() error {
	return t.lex.Err()
}

// NextRule returns next rule or nil when input is exhausted. When called for
// the body of a sub-rule block (@media, @supports, ...) nil is also returned
// on the closing brace of that block.
func (t *Tokenizer) NextRule() Rule {
	for {
		first, ok := t.skipWhitespace()
		if !ok {
			return nil
		}

		switch {
		case first.Is("}"):
			if t.depth > 0 {
				return nil
			}
			// stray closer on top level
			continue
		case first.Is(";"):
			// empty statement
			continue
		case first.Kind == KindAtKeyword:
			return t.atRule(first)
		case first.Is("{"):
			// block without selector, nothing in it could apply
			t.skipBlock()
			return &UnknownRule{Tokens: []Token{first}, Position: first.Pos()}
		}
		return t.selectorRule(first)
	}
}

func (t *Tokenizer) selectorRule(first Token) Rule {
	tokens, stop, found := t.readUntil("{", ";", "}")
	tokens = append([]Token{first}, tokens...)

	if !found || !stop.Is("{") {
		if found && stop.Is("}") {
			// belongs to enclosing block
			t.unread(stop)
		}
		return &UnknownRule{Tokens: trimSpace(tokens), Position: first.Pos()}
	}

	return &SelectorRule{
		Selectors:    t.splitList(trimSpace(tokens)),
		Declarations: t.declarations(),
		Position:     first.Pos(),
	}
}

func (t *Tokenizer) atRule(first Token) Rule {
	name := strings.ToLower(strings.TrimPrefix(first.Text, "@"))
	kind := ClassifyAtRule(name)

	if kind == HasNoBlock {
		tokens, stop, found := t.readUntil(";", "{", "}")
		if found {
			switch {
			case stop.Is("}"):
				t.unread(stop)
			case stop.Is("{"):
				// malformed, block is not expected here
				t.skipBlock()
			}
		}
		prelude := trimSpace(tokens)
		return &AtRuleNoBlock{Name: name, Keywords: t.splitWords(prelude), Prelude: prelude, Position: first.Pos()}
	}

	tokens, stop, found := t.readUntil("{", ";", "}")
	prelude := trimSpace(tokens)
	if !found || !stop.Is("{") {
		if found && stop.Is(";") {
			// best effort - statement form of an at-rule we expected to have a block
			return &AtRuleNoBlock{Name: name, Keywords: t.splitWords(prelude), Prelude: prelude, Position: first.Pos()}
		}
		if found {
			t.unread(stop)
		}
		return &UnknownRule{Tokens: append([]Token{first}, prelude...), Position: first.Pos()}
	}

	if kind == HasSubRules {
		rule := &AtRuleWithSubRules{Name: name, Keywords: t.splitWords(prelude), Prelude: prelude, Position: first.Pos()}
		t.depth++
		for child := t.NextRule(); child != nil; child = t.NextRule() {
			rule.Children = append(rule.Children, child)
		}
		t.depth--
		return rule
	}

	return &AtRuleWithBlock{
		Name:         name,
		Keywords:     t.splitWords(prelude),
		Prelude:      prelude,
		Declarations: t.declarations(),
		Position:     first.Pos(),
	}
}

// declarations reads declaration block, opening brace is already consumed.
func (t *Tokenizer) declarations() []Declaration {
	var decls []Declaration
	for {
		tokens, stop, found := t.readUntil(":", ";", "}")
		if !found || stop.Is("}") {
			return decls
		}
		if stop.Is(";") {
			// empty statement or property without value
			continue
		}

		property := propertyOf(tokens)
		value, stop, found := t.readUntil(";", "}")
		if len(property) > 0 {
			decls = append(decls, Declaration{
				Property:    t.text(property),
				ValueTokens: trimSpace(value),
				Position:    property[0].Pos(),
			})
		}
		if !found || stop.Is("}") {
			return decls
		}
	}
}

// propertyOf returns property name tokens of declaration. Nested blocks
// preceding the name are dropped, names starting with at-keyword are not
// properties.
func propertyOf(tokens []Token) []Token {
	for i := len(tokens) - 1; i >= 0; i-- {
		if tokens[i].Is("}") {
			tokens = tokens[i+1:]
			break
		}
	}
	tokens = trimSpace(tokens)
	if len(tokens) > 0 && tokens[0].Kind == KindAtKeyword {
		return nil
	}
	return tokens
}

func (t *Tokenizer) next() (Token, bool) {
	if n := len(t.pushed); n > 0 {
		tok := t.pushed[n-1]
		t.pushed = t.pushed[:n-1]
		return tok, true
	}
	for {
		tok, ok := t.lex.Next()
		if !ok {
			return Token{}, false
		}
		if tok.Kind != KindComment {
			return tok, true
		}
	}
}

func (t *Tokenizer) unread(tok Token) {
	t.pushed = append(t.pushed, tok)
}

func (t *Tokenizer) skipWhitespace() (Token, bool) {
	for {
		tok, ok := t.next()
		if !ok || tok.Kind != KindWhitespace {
			return tok, ok
		}
	}
}

// readUntil collects tokens up to the first stop punctuation found outside of
// nested braces. Stop token is not included. found is false when input ended.
func (t *Tokenizer) readUntil(stops ...string) (tokens []Token, stop Token, found bool) {
	nested := 0
	for {
		tok, ok := t.next()
		if !ok {
			return tokens, Token{}, false
		}
		if tok.Kind == KindPunct {
			if nested == 0 && isOneOf(tok.Text, stops) {
				return tokens, tok, true
			}
			switch tok.Text {
			case "{":
				nested++
			case "}":
				nested--
			}
		}
		tokens = append(tokens, tok)
	}
}

// skipBlock consumes tokens up to and including the brace closing current
// block.
func (t *Tokenizer) skipBlock() {
	t.readUntil("}")
}

func isOneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// text returns source text covered by tokens.
func (t *Tokenizer) text(tokens []Token) string {
	if len(tokens) == 0 {
		return ""
	}
	return t.src[tokens[0].Start:tokens[len(tokens)-1].End]
}

// splitList splits selector list on top level commas.
func (t *Tokenizer) splitList(tokens []Token) []string {
	var (
		list  []string
		start int
		depth int
	)
	for i, tok := range tokens {
		switch {
		case tok.Text == "[" || strings.HasSuffix(tok.Text, "("):
			// function tokens carry their opening parenthesis
			depth++
		case tok.Text == ")" || tok.Text == "]":
			depth--
		case tok.Text == ",":
			if depth == 0 {
				if part := trimSpace(tokens[start:i]); len(part) > 0 {
					list = append(list, t.text(part))
				}
				start = i + 1
			}
		}
	}
	if part := trimSpace(tokens[start:]); len(part) > 0 {
		list = append(list, t.text(part))
	}
	return list
}

// splitWords splits tokens on whitespace.
func (t *Tokenizer) splitWords(tokens []Token) []string {
	var (
		words []string
		start = -1
	)
	for i, tok := range tokens {
		if tok.Kind == KindWhitespace {
			if start >= 0 {
				words = append(words, t.text(tokens[start:i]))
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, t.text(tokens[start:]))
	}
	return words
}

func trimSpace(tokens []Token) []Token {
	for len(tokens) > 0 && tokens[0].Kind == KindWhitespace {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].Kind == KindWhitespace {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}
