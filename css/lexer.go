package css

import (
	"io"
	"unicode/utf8"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// Lexer is a pull based token source over immutable stylesheet text.
type Lexer struct {
	src    string
	lex    *css.Lexer
	offset int
	line   int
	column int
	err    error
	done   bool
}

// NewLexer creates lexer for the given stylesheet text.
func NewLexer(src string) *Lexer {
	return &Lexer{
		src:    src,
		lex:    css.NewLexer(parse.NewInputString(src)),
		line:   1,
		column: 1,
	}
}

// Next returns the next token. When input is exhausted it returns false.
func (l *Lexer) Next() (Token, bool) {
	if l.done {
		return Token{}, false
	}

	tt, data := l.lex.Next()
	if tt == css.ErrorToken {
		l.done = true
		if err := l.lex.Err(); err != nil && err != io.EOF {
			l.err = err
		}
		return Token{}, false
	}

	// lexer is lossless - token data always covers the next len(data) bytes
	// of the source, so the source itself backs token text
	start := l.offset
	end := min(start+len(data), len(l.src))

	t := Token{
		Kind:   kindOf(tt, data),
		Text:   l.src[start:end],
		Start:  start,
		End:    end,
		Line:   l.line,
		Column: l.column,
	}
	l.advance(t.Text)
	l.offset = end
	return t, true
}

// Err returns lexer error if input was not consumed completely.
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) advance(text string) {
	for len(text) > 0 {
		r, size := utf8.DecodeRuneInString(text)
		text = text[size:]
		if r == '\r' && len(text) > 0 && text[0] == '\n' {
			continue
		}
		if r == '\n' || r == '\r' || r == '\f' {
			l.line++
			l.column = 1
			continue
		}
		l.column++
	}
}

func kindOf(tt css.TokenType, data []byte) Kind {
	switch tt {
	case css.IdentToken, css.CustomPropertyNameToken:
		return KindIdent
	case css.AtKeywordToken:
		return KindAtKeyword
	case css.LeftBraceToken, css.RightBraceToken, css.SemicolonToken, css.ColonToken:
		return KindPunct
	case css.WhitespaceToken:
		return KindWhitespace
	case css.CommentToken:
		return KindComment
	case css.StringToken:
		return KindString
	case css.URLToken:
		return KindURL
	case css.DelimToken:
		// some lexer versions report braces inside broken input as delimiters
		if len(data) == 1 && (data[0] == '{' || data[0] == '}' || data[0] == ';' || data[0] == ':') {
			return KindPunct
		}
	}
	return KindOther
}
